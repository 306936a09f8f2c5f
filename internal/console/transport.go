// Package console runs the wizard in a terminal: prompts are printed with
// numbered choices and each input line becomes one update.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/alexanderramin/sitepilot/internal/wizard"
)

var animationGlyphs = map[string]string{
	wizard.AnimationScanning: "🔎",
	wizard.AnimationThinking: "💭",
	wizard.AnimationWriting:  "✍️",
}

// Transport prints wizard output to a writer and remembers the choices of
// the last prompt per chat so the REPL can map "2" to a command.
type Transport struct {
	mu      sync.Mutex
	out     io.Writer
	choices map[string][]wizard.Choice
}

func NewTransport(out io.Writer) *Transport {
	return &Transport{out: out, choices: make(map[string][]wizard.Choice)}
}

func (t *Transport) Prompt(_ context.Context, chatID, text string, choices []wizard.Choice) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	b.WriteString(StyleFg.Render(text))
	b.WriteString("\n")
	for i, c := range choices {
		fmt.Fprintf(&b, "  %s %s\n", StyleBlue.Render(fmt.Sprintf("[%d]", i+1)), c.Label)
	}
	t.choices[chatID] = append([]wizard.Choice(nil), choices...)
	_, err := io.WriteString(t.out, b.String()+"\n")
	return err
}

func (t *Transport) Show(_ context.Context, _ string, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := io.WriteString(t.out, StyleFg.Render(text)+"\n\n")
	return err
}

func (t *Transport) ShowAnimation(_ context.Context, _ string, asset, caption string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	glyph, ok := animationGlyphs[asset]
	if !ok {
		glyph = "…"
	}
	_, err := io.WriteString(t.out, StyleDim.Render(glyph+" "+caption)+"\n")
	return err
}

// Choice returns the n-th (1-based) choice of the chat's last prompt.
func (t *Transport) Choice(chatID string, n int) (wizard.Choice, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cs := t.choices[chatID]
	if n < 1 || n > len(cs) {
		return wizard.Choice{}, false
	}
	return cs[n-1], true
}

var _ wizard.Transport = (*Transport)(nil)
