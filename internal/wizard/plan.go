package wizard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/alexanderramin/sitepilot/internal/domain"
	"github.com/alexanderramin/sitepilot/internal/llm"
)

// Publishing frequency bounds, in articles per week.
const (
	MinFrequency = 1
	MaxFrequency = 7
)

func (w *Wizard) enterContentPlan(ctx context.Context, upd Update, p *domain.Project) error {
	choices := make([]Choice, 0, MaxFrequency)
	for n := MinFrequency; n <= MaxFrequency; n++ {
		choices = append(choices, Choice{Label: fmt.Sprintf("%d", n), Command: SaveFrequency(p.ID, n)})
	}
	return w.prompt(ctx, upd, "🗓 How many articles per week should be published?", choices)
}

func (w *Wizard) saveFrequency(ctx context.Context, upd Update, id string, n int) error {
	p, ok, err := w.current(ctx, upd, id, StepContentPlan)
	if err != nil || !ok {
		return err
	}
	if n < MinFrequency || n > MaxFrequency {
		return w.enterContentPlan(ctx, upd, p)
	}
	if _, err := w.update(ctx, id, func(p *domain.Project) error {
		p.PublishFrequency = n
		return nil
	}); err != nil {
		return err
	}
	return w.proposePlan(ctx, upd, id)
}

func (w *Wizard) regeneratePlan(ctx context.Context, upd Update, id string) error {
	p, ok, err := w.current(ctx, upd, id, StepContentPlan)
	if err != nil || !ok {
		return err
	}
	if p.PublishFrequency < MinFrequency {
		return w.enterContentPlan(ctx, upd, p)
	}
	return w.proposePlan(ctx, upd, id)
}

// proposePlan generates a calendar, keeps it as a draft in info and asks
// for approval.
func (w *Wizard) proposePlan(ctx context.Context, upd Update, id string) error {
	step, _ := StepByNumber(StepContentPlan)
	p, err := w.load(ctx, upd, id)
	if err != nil {
		return err
	}
	w.animate(ctx, upd, AnimationThinking, "Planning your content…")

	raw, err := w.generate(ctx, llm.TaskContentPlan, planSystemPrompt, planPrompt(p, p.PublishFrequency))
	if err != nil && !errors.Is(err, llm.ErrInvalidOutput) {
		return w.fail(ctx, upd, id, step, err)
	}
	var plan []domain.PlanEntry
	if err == nil {
		plan, err = ParsePlan(raw)
	}
	if err != nil {
		w.log.WarnContext(ctx, "plan_fallback", "project_id", id, "error", err)
		plan = DefaultPlan(p)
	}

	if _, err := w.update(ctx, id, func(p *domain.Project) error {
		p.Info[domain.InfoPlan] = planToInfo(plan)
		return nil
	}); err != nil {
		return w.fail(ctx, upd, id, step, err)
	}
	return w.prompt(ctx, upd, "🗓 Proposed plan\n"+formatPlan(plan), []Choice{
		{Label: "✅ Approve", Command: ApprovePlan(id)},
		{Label: "🔁 Regenerate", Command: RegeneratePlan(id)},
	})
}

// approvePlan makes the draft plan final and completes the wizard.
func (w *Wizard) approvePlan(ctx context.Context, upd Update, id string) error {
	p, ok, err := w.current(ctx, upd, id, StepContentPlan)
	if err != nil || !ok {
		return err
	}
	if len(PlanFromInfo(p.Info)) == 0 {
		return w.enterContentPlan(ctx, upd, p)
	}
	step, _ := StepByNumber(StepContentPlan)
	return w.complete(ctx, upd, id, step, pathNormal, func(p *domain.Project) error {
		plan := PlanFromInfo(p.Info)
		if len(plan) == 0 {
			return errors.New("draft plan disappeared")
		}
		p.ContentPlan = plan
		delete(p.Info, domain.InfoPlan)
		return nil
	})
}

// ParsePlan extracts a calendar from model output. Entries without a title
// are dropped; the result is ordered by day.
func ParsePlan(raw string) ([]domain.PlanEntry, error) {
	items, err := llm.ExtractJSON[[]map[string]any](raw, func(items []map[string]any) error {
		if len(items) == 0 {
			return errors.New("plan is empty")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	plan := decodePlan(items)
	if len(plan) == 0 {
		return nil, fmt.Errorf("%w: no usable plan entries", llm.ErrInvalidOutput)
	}
	return plan, nil
}

// DefaultPlan is the single-entry calendar used when the model's answer
// cannot be parsed.
func DefaultPlan(p *domain.Project) []domain.PlanEntry {
	topic := oneLine(p.Info.String(domain.SurveyKey(1)), 60)
	if topic == "" {
		topic = p.DisplayName()
	}
	return []domain.PlanEntry{{
		Day:    1,
		Title:  "Getting started with " + topic,
		Intent: "informational",
	}}
}

// PlanFromInfo decodes the draft plan stored under info[temp_plan].
func PlanFromInfo(info domain.Info) []domain.PlanEntry {
	raw, _ := info[domain.InfoPlan].([]any)
	return decodePlan(raw)
}

func decodePlan[T any](items []T) []domain.PlanEntry {
	out := make([]domain.PlanEntry, 0, len(items))
	for _, item := range items {
		var e domain.PlanEntry
		if err := decodeLoose(item, &e); err != nil {
			continue
		}
		e.Title = strings.TrimSpace(e.Title)
		if e.Title == "" {
			continue
		}
		if e.Day < 1 {
			e.Day = 1
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

func planToInfo(plan []domain.PlanEntry) []any {
	out := make([]any, len(plan))
	for i, e := range plan {
		out[i] = map[string]any{
			"day":      e.Day,
			"title":    e.Title,
			"keywords": toAnySlice(e.Keywords),
			"intent":   e.Intent,
		}
	}
	return out
}

func formatPlan(plan []domain.PlanEntry) string {
	var b strings.Builder
	for _, e := range plan {
		fmt.Fprintf(&b, "Day %d: %s", e.Day, e.Title)
		if len(e.Keywords) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(e.Keywords, ", "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
