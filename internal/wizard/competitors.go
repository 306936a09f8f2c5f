package wizard

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/alexanderramin/sitepilot/internal/domain"
	"github.com/alexanderramin/sitepilot/internal/llm"
	"github.com/alexanderramin/sitepilot/internal/session"
	"github.com/mitchellh/mapstructure"
)

// Competitor is one analyzed competitor page kept in the project's info.
type Competitor struct {
	URL     string `mapstructure:"url"`
	Summary string `mapstructure:"summary"`
	Opinion string `mapstructure:"opinion"`
	Links   int    `mapstructure:"links"`
}

// Competitors decodes info[competitors_list]. Entries that do not decode are
// dropped.
func Competitors(info domain.Info) []Competitor {
	raw, ok := info[domain.InfoCompetitors].([]any)
	if !ok {
		if typed, ok := info[domain.InfoCompetitors].([]map[string]any); ok {
			raw = make([]any, len(typed))
			for i, m := range typed {
				raw[i] = m
			}
		}
	}
	out := make([]Competitor, 0, len(raw))
	for _, item := range raw {
		var c Competitor
		if err := decodeLoose(item, &c); err != nil || c.URL == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (c Competitor) toInfo() map[string]any {
	return map[string]any{"url": c.URL, "summary": c.Summary, "opinion": c.Opinion, "links": c.Links}
}

// decodeLoose decodes JSON-shaped values, tolerating numbers sent as
// strings and the float64 numbers JSON decoding produces.
func decodeLoose(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

func (w *Wizard) enterCompetitors(ctx context.Context, upd Update, p *domain.Project) error {
	if err := w.putSession(ctx, upd, session.NewInCompetitorLoop(p.ID)); err != nil {
		return err
	}
	text := "Send the address of a competitor's page and I will analyze it."
	choices := []Choice{{Label: "🏠 Main menu", Command: MainMenu()}}
	if n := len(Competitors(p.Info)); n > 0 {
		text = fmt.Sprintf("%d competitor(s) analyzed so far. Send another address or finish.", n)
		choices = append([]Choice{{Label: "✅ Finish", Command: FinishCompetitors(p.ID)}}, choices...)
	}
	return w.prompt(ctx, upd, text, choices)
}

func (w *Wizard) addCompetitor(ctx context.Context, upd Update, id string) error {
	p, ok, err := w.current(ctx, upd, id, StepCompetitors)
	if err != nil || !ok {
		return err
	}
	if err := w.putSession(ctx, upd, session.NewInCompetitorLoop(p.ID)); err != nil {
		return err
	}
	return w.prompt(ctx, upd, "Send the next competitor address.", []Choice{
		{Label: "✅ Finish", Command: FinishCompetitors(p.ID)},
	})
}

func (w *Wizard) analyzeCompetitor(ctx context.Context, upd Update, id, raw string) error {
	p, ok, err := w.current(ctx, upd, id, StepCompetitors)
	if err != nil || !ok {
		return err
	}
	pageURL, err := normalizePageURL(raw)
	if err != nil {
		return w.prompt(ctx, upd, "That does not look like a web address. Try again, e.g. https://competitor.com/blog", []Choice{
			{Label: "🏠 Main menu", Command: MainMenu()},
		})
	}

	w.animate(ctx, upd, AnimationThinking, "Analyzing "+pageURL+"…")
	summary, links, err := w.site.AnalyzePage(ctx, pageURL)
	if err != nil {
		return w.competitorRetry(ctx, upd, p, fmt.Errorf("analyzing %s: %w", pageURL, err))
	}
	opinion, err := w.generate(ctx, llm.TaskCompetitor, competitorSystemPrompt, competitorPrompt(p, pageURL, summary))
	if err != nil {
		return w.competitorRetry(ctx, upd, p, err)
	}

	c := Competitor{URL: pageURL, Summary: summary, Opinion: opinion, Links: len(links)}
	if _, err := w.update(ctx, p.ID, func(p *domain.Project) error {
		list := Competitors(p.Info)
		entries := make([]any, 0, len(list)+1)
		for _, prev := range list {
			if prev.URL != c.URL {
				entries = append(entries, prev.toInfo())
			}
		}
		p.Info[domain.InfoCompetitors] = append(entries, c.toInfo())
		return nil
	}); err != nil {
		return fmt.Errorf("saving competitor: %w", err)
	}

	return w.prompt(ctx, upd, fmt.Sprintf("🕵️ %s\n\n%s", pageURL, opinion), []Choice{
		{Label: "➕ Add another", Command: AddCompetitor(p.ID)},
		{Label: "✅ Finish", Command: FinishCompetitors(p.ID)},
	})
}

// competitorRetry keeps the loop open after a failed analysis.
func (w *Wizard) competitorRetry(ctx context.Context, upd Update, p *domain.Project, err error) error {
	step, _ := StepByNumber(StepCompetitors)
	w.recorder.StepFailed(step.Flag)
	w.log.ErrorContext(ctx, "step_failed", "project_id", p.ID, "step", step.Flag, "error", err)
	choices := []Choice{{Label: "➕ Try another", Command: AddCompetitor(p.ID)}}
	if len(Competitors(p.Info)) > 0 {
		choices = append(choices, Choice{Label: "✅ Finish", Command: FinishCompetitors(p.ID)})
	}
	return w.prompt(ctx, upd, "⚠️ Analysis failed: "+userMessage(err), choices)
}

func (w *Wizard) finishCompetitors(ctx context.Context, upd Update, id string) error {
	p, ok, err := w.current(ctx, upd, id, StepCompetitors)
	if err != nil || !ok {
		return err
	}
	if len(Competitors(p.Info)) == 0 {
		return w.prompt(ctx, upd, "Analyze at least one competitor first. Send an address.", []Choice{
			{Label: "🏠 Main menu", Command: MainMenu()},
		})
	}
	w.clearSessionFor(ctx, upd, p.ID)
	step, _ := StepByNumber(StepCompetitors)
	return w.complete(ctx, upd, p.ID, step, pathNormal, nil)
}

func normalizePageURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || !strings.Contains(u.Hostname(), ".") || strings.ContainsAny(u.Host, " _") {
		return "", fmt.Errorf("invalid page URL %q", raw)
	}
	u.Fragment = ""
	return u.String(), nil
}
