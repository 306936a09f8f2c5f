// Package wizard drives the project setup wizard: an ordered list of
// checkpoints persisted on the project, a dispatcher that resumes at the
// earliest unfinished one, and the handlers that do each step's work.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/alexanderramin/sitepilot/internal/cms"
	"github.com/alexanderramin/sitepilot/internal/llm"
	"github.com/alexanderramin/sitepilot/internal/logging"
	"github.com/alexanderramin/sitepilot/internal/repository"
	"github.com/alexanderramin/sitepilot/internal/session"
	"github.com/alexanderramin/sitepilot/internal/worker"
)

// ErrStepLocked is logged when a command targets a step that is not the
// earliest incomplete one.
var ErrStepLocked = errors.New("step is not the next incomplete step")

// Deps are the collaborators of a Wizard. Projects, Articles, Images,
// Transport and Site are required; the rest have defaults.
type Deps struct {
	Projects  repository.ProjectRepo
	Articles  repository.ArticleRepo
	Images    repository.ImageRepo
	Transport Transport
	Site      SiteIntel

	LLM      llm.LLMClient
	Vision   llm.ImageDescriber
	CMS      CMS
	Sessions session.Store
	Runner   Runner
	Recorder Recorder
	Logger   *slog.Logger
	Now      func() time.Time
}

// Wizard handles chat updates for every user.
type Wizard struct {
	projects  repository.ProjectRepo
	articles  repository.ArticleRepo
	images    repository.ImageRepo
	transport Transport
	site      SiteIntel
	llm       llm.LLMClient
	vision    llm.ImageDescriber
	cms       CMS
	sessions  session.Store
	runner    Runner
	recorder  Recorder
	log       *slog.Logger
	now       func() time.Time
}

func New(d Deps) (*Wizard, error) {
	if d.Projects == nil || d.Articles == nil || d.Images == nil {
		return nil, fmt.Errorf("wizard: repositories are required")
	}
	if d.Transport == nil || d.Site == nil {
		return nil, fmt.Errorf("wizard: transport and site intelligence are required")
	}
	w := &Wizard{
		projects:  d.Projects,
		articles:  d.Articles,
		images:    d.Images,
		transport: d.Transport,
		site:      d.Site,
		llm:       d.LLM,
		vision:    d.Vision,
		cms:       d.CMS,
		sessions:  d.Sessions,
		runner:    d.Runner,
		recorder:  d.Recorder,
		log:       d.Logger,
		now:       d.Now,
	}
	if w.llm == nil {
		w.llm = llm.NewClient(llm.LLMConfig{}, nil)
	}
	if w.cms == nil {
		w.cms = cms.NewWordPress(nil)
	}
	if w.sessions == nil {
		w.sessions = session.NewMemoryStore()
	}
	if w.runner == nil {
		w.runner = worker.New(4)
	}
	if w.recorder == nil {
		w.recorder = noopRecorder{}
	}
	if w.log == nil {
		w.log = logging.NewNop()
	}
	if w.now == nil {
		w.now = func() time.Time { return time.Now().UTC() }
	}
	return w, nil
}

// HandleUpdate routes one inbound update. It never panics: a panicking
// handler is logged, reported to the user and swallowed.
func (w *Wizard) HandleUpdate(ctx context.Context, upd Update) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.recovered(ctx, upd, r)
			err = nil
		}
	}()

	switch {
	case upd.Command != "":
		w.recorder.UpdateHandled("command")
		cmd, err := DecodeCommand(upd.Command)
		if err != nil {
			w.log.WarnContext(ctx, "update_unknown_command", "user", upd.UserID, "error", err)
			return w.say(ctx, upd, "⚠️ Unknown action. Use the buttons from the latest message.")
		}
		return w.handleCommand(ctx, upd, cmd)
	case len(upd.Images) > 0:
		w.recorder.UpdateHandled("images")
		return w.handleImages(ctx, upd)
	default:
		w.recorder.UpdateHandled("text")
		return w.handleText(ctx, upd)
	}
}

func (w *Wizard) recovered(ctx context.Context, upd Update, r any) {
	w.recorder.UpdatePanicked()
	w.log.ErrorContext(ctx, "update_panic",
		"user", upd.UserID,
		"panic", fmt.Sprint(r),
		"stack", string(debug.Stack()),
	)
	_ = w.transport.Show(ctx, upd.ChatID, "⚠️ Something went wrong. Please try again.")
}

func (w *Wizard) handleCommand(ctx context.Context, upd Update, cmd Command) error {
	switch cmd.Verb {
	case VerbMainMenu:
		return w.mainMenu(ctx, upd)
	case VerbNewProject:
		return w.newProject(ctx, upd)
	case VerbOpenProject:
		return w.onProject(ctx, upd, cmd.ProjectID, func(ctx context.Context) error {
			_, err := w.Dispatch(ctx, upd, cmd.ProjectID)
			return err
		})
	case VerbContinueStep:
		return w.onProject(ctx, upd, cmd.ProjectID, func(ctx context.Context) error {
			return w.continueStep(ctx, upd, cmd.ProjectID)
		})
	case VerbRetryStep:
		return w.onProject(ctx, upd, cmd.ProjectID, func(ctx context.Context) error {
			return w.retryStep(ctx, upd, cmd.ProjectID, cmd.Step)
		})
	case VerbSkipStep:
		return w.onProject(ctx, upd, cmd.ProjectID, func(ctx context.Context) error {
			return w.skipStep(ctx, upd, cmd.ProjectID, cmd.Step)
		})
	case VerbAskDelete:
		return w.onProject(ctx, upd, cmd.ProjectID, func(ctx context.Context) error {
			return w.askDelete(ctx, upd, cmd.ProjectID)
		})
	case VerbConfirmDelete:
		return w.onProject(ctx, upd, cmd.ProjectID, func(ctx context.Context) error {
			return w.confirmDelete(ctx, upd, cmd.ProjectID)
		})
	case VerbAddCompetitor:
		return w.onProject(ctx, upd, cmd.ProjectID, func(ctx context.Context) error {
			return w.addCompetitor(ctx, upd, cmd.ProjectID)
		})
	case VerbFinishCompetitors:
		return w.onProject(ctx, upd, cmd.ProjectID, func(ctx context.Context) error {
			return w.finishCompetitors(ctx, upd, cmd.ProjectID)
		})
	case VerbApproveLinks:
		return w.onProject(ctx, upd, cmd.ProjectID, func(ctx context.Context) error {
			return w.approveLinks(ctx, upd, cmd.ProjectID)
		})
	case VerbRetryLinks:
		return w.onProject(ctx, upd, cmd.ProjectID, func(ctx context.Context) error {
			return w.retryLinks(ctx, upd, cmd.ProjectID)
		})
	case VerbSkipLinks:
		return w.onProject(ctx, upd, cmd.ProjectID, func(ctx context.Context) error {
			return w.skipLinks(ctx, upd, cmd.ProjectID)
		})
	case VerbFinishGallery:
		return w.onProject(ctx, upd, cmd.ProjectID, func(ctx context.Context) error {
			return w.finishGallery(ctx, upd, cmd.ProjectID)
		})
	case VerbSaveFrequency:
		return w.onProject(ctx, upd, cmd.ProjectID, func(ctx context.Context) error {
			return w.saveFrequency(ctx, upd, cmd.ProjectID, cmd.N)
		})
	case VerbApprovePlan:
		return w.onProject(ctx, upd, cmd.ProjectID, func(ctx context.Context) error {
			return w.approvePlan(ctx, upd, cmd.ProjectID)
		})
	case VerbRegeneratePlan:
		return w.onProject(ctx, upd, cmd.ProjectID, func(ctx context.Context) error {
			return w.regeneratePlan(ctx, upd, cmd.ProjectID)
		})
	case VerbWriteArticle:
		return w.onProject(ctx, upd, cmd.ProjectID, func(ctx context.Context) error {
			return w.writeNextArticle(ctx, upd, cmd.ProjectID)
		})
	case VerbPublishArticle:
		return w.onProject(ctx, upd, cmd.ProjectID, func(ctx context.Context) error {
			return w.publishLatest(ctx, upd, cmd.ProjectID)
		})
	case VerbShowPlan:
		return w.onProject(ctx, upd, cmd.ProjectID, func(ctx context.Context) error {
			return w.showPlan(ctx, upd, cmd.ProjectID)
		})
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Verb)
	}
}

func (w *Wizard) handleText(ctx context.Context, upd Update) error {
	st, err := w.sessions.Get(ctx, upd.UserID)
	if err != nil {
		w.log.WarnContext(ctx, "session_read_failed", "user", upd.UserID, "error", err)
		st = session.State{}
	}
	text := strings.TrimSpace(upd.Text)

	switch st.Kind {
	case session.None:
		return w.mainMenu(ctx, upd)
	case session.AwaitingSiteURL:
		return w.createProject(ctx, upd, text)
	case session.InSurvey:
		return w.onProject(ctx, upd, st.ProjectID, func(ctx context.Context) error {
			return w.answerSurvey(ctx, upd, st, text)
		})
	case session.InCompetitorLoop:
		return w.onProject(ctx, upd, st.ProjectID, func(ctx context.Context) error {
			return w.analyzeCompetitor(ctx, upd, st.ProjectID, text)
		})
	case session.AwaitingUpload:
		return w.prompt(ctx, upd, "Send images, or press Finish when you are done.", galleryChoices(st.ProjectID))
	case session.InCMSForm:
		return w.onProject(ctx, upd, st.ProjectID, func(ctx context.Context) error {
			return w.cmsField(ctx, upd, st, text)
		})
	default:
		w.log.WarnContext(ctx, "session_unknown_kind", "user", upd.UserID, "kind", st.Kind)
		_ = w.sessions.Clear(ctx, upd.UserID)
		return w.mainMenu(ctx, upd)
	}
}

func (w *Wizard) handleImages(ctx context.Context, upd Update) error {
	st, err := w.sessions.Get(ctx, upd.UserID)
	if err != nil || st.Kind != session.AwaitingUpload {
		return w.say(ctx, upd, "I was not expecting images right now.")
	}
	return w.onProject(ctx, upd, st.ProjectID, func(ctx context.Context) error {
		return w.saveImages(ctx, upd, st.ProjectID, upd.Images)
	})
}

// onProject runs fn on the worker pool under the project's key. A second
// action for the same project is turned away while the first still runs.
func (w *Wizard) onProject(ctx context.Context, upd Update, projectID string, fn func(ctx context.Context) error) error {
	err := w.runner.Go(ctx, "project:"+projectID, func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				w.recovered(ctx, upd, r)
			}
		}()
		if err := fn(ctx); err != nil {
			w.report(ctx, upd, projectID, err)
		}
	})
	if errors.Is(err, worker.ErrBusy) {
		return w.say(ctx, upd, "⏳ Still working on your previous request for this project. Please wait.")
	}
	return err
}

// report turns an error that escaped a handler into a user message.
func (w *Wizard) report(ctx context.Context, upd Update, projectID string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		_ = w.notFound(ctx, upd, projectID)
		return
	}
	w.log.ErrorContext(ctx, "update_failed", "user", upd.UserID, "project_id", projectID, "error", err)
	_ = w.say(ctx, upd, "⚠️ "+userMessage(err))
}

func (w *Wizard) say(ctx context.Context, upd Update, text string) error {
	return w.transport.Show(ctx, upd.ChatID, text)
}

func (w *Wizard) prompt(ctx context.Context, upd Update, text string, choices []Choice) error {
	return w.transport.Prompt(ctx, upd.ChatID, text, choices)
}

func (w *Wizard) animate(ctx context.Context, upd Update, asset, caption string) {
	if err := w.transport.ShowAnimation(ctx, upd.ChatID, asset, caption); err != nil {
		w.log.WarnContext(ctx, "animation_failed", "asset", asset, "error", err)
	}
}
