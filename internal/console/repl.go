package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/alexanderramin/sitepilot/internal/llm"
	"github.com/alexanderramin/sitepilot/internal/wizard"
)

// Handler consumes updates; *wizard.Wizard satisfies it.
type Handler interface {
	HandleUpdate(ctx context.Context, upd wizard.Update) error
}

// REPL reads lines from In and turns them into updates:
//
//	<n>              press the n-th button of the last prompt
//	/menu            open the main menu
//	/image <path>... upload images
//	/quit            leave
//
// Anything else is sent as a text reply.
type REPL struct {
	Transport *Transport
	Handler   Handler
	UserID    string
	ChatID    string
	In        io.Reader
	Out       io.Writer

	// Wait blocks until background work started by the last update is done,
	// so its output is printed before the next input prompt.
	Wait func()

	ReadFile func(path string) ([]byte, error)
}

const help = "Type a number to press a button, /menu, /image <path>, or /quit."

// Run loops until /quit, end of input or ctx cancellation.
func (r *REPL) Run(ctx context.Context) error {
	readFile := r.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	fmt.Fprintln(r.Out, Header("sitepilot"))
	fmt.Fprintln(r.Out, Dim(help))
	fmt.Fprintln(r.Out)

	if err := r.send(ctx, wizard.Update{Command: wizard.MainMenu().Encode()}); err != nil {
		return err
	}

	scanner := bufio.NewScanner(r.In)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(r.Out, StyleYellow.Render("› "))
		if !scanner.Scan() {
			fmt.Fprintln(r.Out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		upd, quit, err := r.parse(line, readFile)
		if quit {
			return nil
		}
		if err != nil {
			fmt.Fprintln(r.Out, StyleRed.Render(err.Error()))
			continue
		}
		if upd == nil {
			continue
		}
		if err := r.send(ctx, *upd); err != nil {
			fmt.Fprintln(r.Out, StyleRed.Render("error: "+err.Error()))
		}
	}
}

func (r *REPL) parse(line string, readFile func(string) ([]byte, error)) (*wizard.Update, bool, error) {
	switch {
	case line == "":
		return nil, false, nil
	case line == "/quit" || line == "/exit":
		return nil, true, nil
	case line == "/help":
		fmt.Fprintln(r.Out, Dim(help))
		return nil, false, nil
	case line == "/menu":
		return &wizard.Update{Command: wizard.MainMenu().Encode()}, false, nil
	case strings.HasPrefix(line, "/image"):
		paths := strings.Fields(strings.TrimPrefix(line, "/image"))
		if len(paths) == 0 {
			return nil, false, fmt.Errorf("usage: /image <path> [path...]")
		}
		images, err := loadImages(paths, readFile)
		if err != nil {
			return nil, false, err
		}
		return &wizard.Update{Images: images}, false, nil
	}

	if n, err := strconv.Atoi(line); err == nil {
		c, ok := r.Transport.Choice(r.ChatID, n)
		if !ok {
			return nil, false, fmt.Errorf("no button %d on the last message", n)
		}
		return &wizard.Update{Command: c.Command.Encode()}, false, nil
	}
	return &wizard.Update{Text: line}, false, nil
}

func (r *REPL) send(ctx context.Context, upd wizard.Update) error {
	upd.UserID = r.UserID
	upd.ChatID = r.ChatID
	err := r.Handler.HandleUpdate(ctx, upd)
	if r.Wait != nil {
		r.Wait()
	}
	return err
}

func loadImages(paths []string, readFile func(string) ([]byte, error)) ([]llm.Image, error) {
	images := make([]llm.Image, 0, len(paths))
	for _, p := range paths {
		data, err := readFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		mime := http.DetectContentType(data)
		if !strings.HasPrefix(mime, "image/") {
			return nil, fmt.Errorf("%s is not an image (%s)", p, mime)
		}
		images = append(images, llm.Image{Data: data, MimeType: mime})
	}
	return images, nil
}
