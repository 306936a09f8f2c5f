package wizard

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/sitepilot/internal/cms"
	"github.com/alexanderramin/sitepilot/internal/domain"
	"github.com/alexanderramin/sitepilot/internal/llm"
	"github.com/alexanderramin/sitepilot/internal/repository"
	"github.com/alexanderramin/sitepilot/internal/session"
)

// TargetKind is where the dispatcher routes a user.
type TargetKind int

const (
	TargetResume TargetKind = iota
	TargetDashboard
	TargetNotFound
)

// Target is the outcome of Dispatch. Step is set for TargetResume only.
type Target struct {
	Kind TargetKind
	Step Step
}

func (t Target) label() string {
	switch t.Kind {
	case TargetDashboard:
		return "dashboard"
	case TargetNotFound:
		return "not_found"
	default:
		return t.Step.Flag
	}
}

// Resolve computes the dispatch target for a progress map.
func Resolve(p domain.Progress) Target {
	step, ok := NextStep(p)
	if !ok {
		return Target{Kind: TargetDashboard}
	}
	return Target{Kind: TargetResume, Step: step}
}

// ResumeText is the resume prompt for a project stopped at step.
func ResumeText(p *domain.Project, step Step) string {
	return fmt.Sprintf("Project %s stopped at step %d: %s", p.DisplayName(), step.Number, step.Label)
}

// Dispatch shows the resume prompt for the project's earliest incomplete
// step, or the dashboard when every checkpoint is set. It changes no state.
func (w *Wizard) Dispatch(ctx context.Context, upd Update, projectID string) (Target, error) {
	p, err := w.load(ctx, upd, projectID)
	if errors.Is(err, repository.ErrNotFound) {
		w.recorder.Dispatched("not_found")
		return Target{Kind: TargetNotFound}, w.notFound(ctx, upd, projectID)
	}
	if err != nil {
		return Target{}, err
	}

	target := Resolve(p.Progress)
	w.recorder.Dispatched(target.label())
	w.log.DebugContext(ctx, "dispatch", "project_id", p.ID, "target", target.label())

	if target.Kind == TargetDashboard {
		return target, w.dashboard(ctx, upd, p)
	}
	return target, w.prompt(ctx, upd, ResumeText(p, target.Step), []Choice{
		{Label: "▶️ Continue", Command: ContinueStep(p.ID)},
		{Label: "🗑 Delete project", Command: AskDelete(p.ID)},
		{Label: "🏠 Main menu", Command: MainMenu()},
	})
}

// load fetches a project owned by the user. Projects of other users are
// reported as not found.
func (w *Wizard) load(ctx context.Context, upd Update, id string) (*domain.Project, error) {
	p, err := w.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != upd.UserID {
		return nil, fmt.Errorf("project %s: %w", id, repository.ErrNotFound)
	}
	return p, nil
}

const maxSaveAttempts = 3

// update loads the project, applies fn and saves, retrying when another
// writer got there first.
func (w *Wizard) update(ctx context.Context, id string, fn func(p *domain.Project) error) (*domain.Project, error) {
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		p, err := w.projects.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if p.Info == nil {
			p.Info = domain.Info{}
		}
		if p.Progress == nil {
			p.Progress = domain.Progress{}
		}
		if err := fn(p); err != nil {
			return nil, err
		}
		err = w.projects.Save(ctx, p)
		if errors.Is(err, repository.ErrConflict) {
			w.log.DebugContext(ctx, "project_save_conflict", "project_id", id, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("updating project %s: %w", id, repository.ErrConflict)
}

// current loads the project and checks that want is its earliest incomplete
// step. Otherwise the user is re-dispatched and ok is false.
func (w *Wizard) current(ctx context.Context, upd Update, id string, want int) (p *domain.Project, ok bool, err error) {
	p, err = w.load(ctx, upd, id)
	if err != nil {
		return nil, false, err
	}
	next, more := NextStep(p.Progress)
	if more && next.Number == want {
		return p, true, nil
	}
	w.log.InfoContext(ctx, "step_locked", "project_id", id, "requested", want, "next", next.Number, "error", ErrStepLocked)
	w.clearSessionFor(ctx, upd, id)
	_, err = w.Dispatch(ctx, upd, id)
	return nil, false, err
}

func (w *Wizard) continueStep(ctx context.Context, upd Update, id string) error {
	p, err := w.load(ctx, upd, id)
	if err != nil {
		return err
	}
	step, ok := NextStep(p.Progress)
	if !ok {
		return w.dashboard(ctx, upd, p)
	}
	return w.enter(ctx, upd, p, step)
}

func (w *Wizard) retryStep(ctx context.Context, upd Update, id string, n int) error {
	p, ok, err := w.current(ctx, upd, id, n)
	if err != nil || !ok {
		return err
	}
	step, _ := StepByNumber(n)
	return w.enter(ctx, upd, p, step)
}

// skipStep completes a skippable step without its normal side effect.
func (w *Wizard) skipStep(ctx context.Context, upd Update, id string, n int) error {
	step, _ := StepByNumber(n)
	if !step.Skippable {
		w.log.InfoContext(ctx, "skip_rejected", "project_id", id, "step", n)
		_ = w.say(ctx, upd, fmt.Sprintf("Step %d (%s) cannot be skipped.", step.Number, step.Label))
		_, err := w.Dispatch(ctx, upd, id)
		return err
	}
	if _, ok, err := w.current(ctx, upd, id, n); err != nil || !ok {
		return err
	}
	w.clearSessionFor(ctx, upd, id)
	return w.complete(ctx, upd, id, step, pathSkip, nil)
}

// enter (re)starts a step from scratch.
func (w *Wizard) enter(ctx context.Context, upd Update, p *domain.Project, step Step) error {
	w.log.InfoContext(ctx, "step_entered", "project_id", p.ID, "step", step.Flag)
	switch step.Number {
	case StepScan:
		return w.enterScan(ctx, upd, p)
	case StepSurvey:
		return w.enterSurvey(ctx, upd, p)
	case StepCompetitors:
		return w.enterCompetitors(ctx, upd, p)
	case StepLinks:
		return w.enterLinks(ctx, upd, p)
	case StepGallery:
		return w.enterGallery(ctx, upd, p)
	case StepVisualStyle:
		return w.enterVisualStyle(ctx, upd, p)
	case StepTextStyle:
		return w.enterTextStyle(ctx, upd, p)
	case StepCMS:
		return w.enterCMS(ctx, upd, p)
	case StepTestArticle:
		return w.enterTestArticle(ctx, upd, p)
	case StepContentPlan:
		return w.enterContentPlan(ctx, upd, p)
	default:
		return fmt.Errorf("no handler for step %d", step.Number)
	}
}

// Completion paths recorded in metrics and logs.
const (
	pathNormal = "normal"
	pathSkip   = "skip"
)

// complete applies fn and sets the step's flag in a single save, then hands
// the transition to advance.
func (w *Wizard) complete(ctx context.Context, upd Update, id string, step Step, path string, fn func(p *domain.Project) error) error {
	p, err := w.update(ctx, id, func(p *domain.Project) error {
		if fn != nil {
			if err := fn(p); err != nil {
				return err
			}
		}
		p.Progress.Mark(step.Flag)
		return nil
	})
	if err != nil {
		return w.fail(ctx, upd, id, step, err)
	}
	w.recorder.StepCompleted(step.Flag, path)
	w.log.InfoContext(ctx, "step_completed", "project_id", id, "step", step.Flag, "path", path)
	return w.advance(ctx, upd, p, step)
}

// advance decides what follows a completed step: the next step right away,
// a Continue button, or the dashboard.
func (w *Wizard) advance(ctx context.Context, upd Update, p *domain.Project, done Step) error {
	next, ok := NextStep(p.Progress)
	if !ok {
		_ = w.say(ctx, upd, "🎉 Setup complete!")
		return w.dashboard(ctx, upd, p)
	}
	if done.AutoAdvance {
		return w.enter(ctx, upd, p, next)
	}
	return w.prompt(ctx, upd,
		fmt.Sprintf("✅ Step %d: %s done.\nNext up: step %d: %s.", done.Number, done.Label, next.Number, next.Label),
		[]Choice{
			{Label: "▶️ Continue", Command: ContinueStep(p.ID)},
			{Label: "🏠 Main menu", Command: MainMenu()},
		})
}

// fail reports a step failure with a Retry button. The flag stays unset.
func (w *Wizard) fail(ctx context.Context, upd Update, id string, step Step, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return err
	}
	w.recorder.StepFailed(step.Flag)
	w.log.ErrorContext(ctx, "step_failed", "project_id", id, "step", step.Flag, "error", err)
	return w.prompt(ctx, upd, fmt.Sprintf("⚠️ %s failed: %s", step.Label, userMessage(err)), []Choice{
		{Label: "🔁 Retry", Command: RetryStep(step.Number, id)},
		{Label: "🏠 Main menu", Command: MainMenu()},
	})
}

func (w *Wizard) notFound(ctx context.Context, upd Update, id string) error {
	w.clearSessionFor(ctx, upd, id)
	return w.prompt(ctx, upd, "Project not found. It may have been deleted.", []Choice{
		{Label: "🏠 Main menu", Command: MainMenu()},
	})
}

// clearSessionFor drops the user's transient state if it refers to id.
func (w *Wizard) clearSessionFor(ctx context.Context, upd Update, id string) {
	st, err := w.sessions.Get(ctx, upd.UserID)
	if err != nil || st.ProjectID != id {
		return
	}
	if err := w.sessions.Clear(ctx, upd.UserID); err != nil {
		w.log.WarnContext(ctx, "session_clear_failed", "user", upd.UserID, "error", err)
	}
}

func (w *Wizard) putSession(ctx context.Context, upd Update, st session.State) error {
	if err := w.sessions.Put(ctx, upd.UserID, st); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// maxUserMessage caps, in runes, the raw error text shown to the user.
const maxUserMessage = 200

// userMessage is the short, user-facing form of err.
func userMessage(err error) string {
	switch {
	case errors.Is(err, llm.ErrDisabled):
		return "text generation is not configured."
	case errors.Is(err, llm.ErrTimeout):
		return "the AI service timed out. Please try again."
	case errors.Is(err, llm.ErrUnavailable), errors.Is(err, llm.ErrRetryExhausted):
		return "the AI service is unavailable right now."
	case errors.Is(err, llm.ErrRejected):
		return "the AI service refused the request. Check the model settings."
	case errors.Is(err, cms.ErrUnauthorized):
		return "the CMS rejected the login or password."
	case errors.Is(err, cms.ErrNoAPI):
		return "no WordPress API answered at that address."
	case errors.Is(err, repository.ErrConflict):
		return "the project changed while saving. Please try again."
	case errors.Is(err, context.DeadlineExceeded):
		return "the operation timed out."
	}
	if r := []rune(err.Error()); len(r) > maxUserMessage {
		return string(r[:maxUserMessage]) + "…"
	}
	return err.Error()
}
