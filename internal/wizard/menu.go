package wizard

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/sitepilot/internal/domain"
	"github.com/alexanderramin/sitepilot/internal/session"
	"github.com/google/uuid"
)

// mainMenu clears any multi-turn flow and lists the user's projects.
func (w *Wizard) mainMenu(ctx context.Context, upd Update) error {
	if err := w.sessions.Clear(ctx, upd.UserID); err != nil {
		w.log.WarnContext(ctx, "session_clear_failed", "user", upd.UserID, "error", err)
	}
	projects, err := w.projects.ListByOwner(ctx, upd.UserID)
	if err != nil {
		return fmt.Errorf("listing projects: %w", err)
	}

	choices := make([]Choice, 0, len(projects)+1)
	for _, p := range projects {
		label := p.DisplayName()
		if n := p.Progress.CompletedCount(); n < domain.CheckpointsTotal {
			label = fmt.Sprintf("%s (%d/%d)", label, n, domain.CheckpointsTotal)
		}
		choices = append(choices, Choice{Label: label, Command: OpenProject(p.ID)})
	}
	choices = append(choices, Choice{Label: "➕ New project", Command: NewProject()})

	text := "Your projects:"
	if len(projects) == 0 {
		text = "You have no projects yet."
	}
	return w.prompt(ctx, upd, text, choices)
}

func (w *Wizard) newProject(ctx context.Context, upd Update) error {
	if err := w.putSession(ctx, upd, session.NewAwaitingSiteURL()); err != nil {
		return err
	}
	return w.prompt(ctx, upd, "Send the address of your website, e.g. example.com", []Choice{
		{Label: "🏠 Main menu", Command: MainMenu()},
	})
}

// createProject stores a project for a valid site URL and starts the wizard.
func (w *Wizard) createProject(ctx context.Context, upd Update, raw string) error {
	siteURL, err := domain.NormalizeSiteURL(raw)
	if err != nil {
		return w.prompt(ctx, upd, "That does not look like a website address. Try again, e.g. example.com", []Choice{
			{Label: "🏠 Main menu", Command: MainMenu()},
		})
	}

	now := w.now()
	p := &domain.Project{
		ID:        uuid.New().String(),
		OwnerID:   upd.UserID,
		SiteURL:   siteURL,
		Progress:  domain.Progress{domain.FlagCreated: true},
		Info:      domain.Info{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := w.projects.Create(ctx, p); err != nil {
		return fmt.Errorf("creating project: %w", err)
	}
	if err := w.sessions.Clear(ctx, upd.UserID); err != nil {
		w.log.WarnContext(ctx, "session_clear_failed", "user", upd.UserID, "error", err)
	}
	created, _ := StepByNumber(StepCreated)
	w.recorder.StepCompleted(created.Flag, pathNormal)
	w.log.InfoContext(ctx, "project_created", "project_id", p.ID, "site", siteURL, "user", upd.UserID)

	_ = w.say(ctx, upd, fmt.Sprintf("Project %s created.", p.DisplayName()))
	return w.onProject(ctx, upd, p.ID, func(ctx context.Context) error {
		return w.advance(ctx, upd, p, created)
	})
}

func (w *Wizard) askDelete(ctx context.Context, upd Update, id string) error {
	p, err := w.load(ctx, upd, id)
	if err != nil {
		return err
	}
	return w.prompt(ctx, upd,
		fmt.Sprintf("Delete project %s and all of its articles? This cannot be undone.", p.DisplayName()),
		[]Choice{
			{Label: "🗑 Yes, delete", Command: ConfirmDelete(p.ID)},
			{Label: "↩️ Cancel", Command: OpenProject(p.ID)},
		})
}

func (w *Wizard) confirmDelete(ctx context.Context, upd Update, id string) error {
	p, err := w.load(ctx, upd, id)
	if err != nil {
		return err
	}
	if err := w.projects.Delete(ctx, p.ID); err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	w.clearSessionFor(ctx, upd, p.ID)
	w.log.InfoContext(ctx, "project_deleted", "project_id", p.ID, "user", upd.UserID)
	_ = w.say(ctx, upd, fmt.Sprintf("Project %s deleted.", p.DisplayName()))
	return w.mainMenu(ctx, upd)
}

// dashboard is the management menu of a fully set-up project.
func (w *Wizard) dashboard(ctx context.Context, upd Update, p *domain.Project) error {
	articles, err := w.articles.ListByProject(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("listing articles: %w", err)
	}
	drafts := 0
	for _, a := range articles {
		if a.Status == domain.ArticleDraft {
			drafts++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s\n", p.DisplayName())
	fmt.Fprintf(&b, "Articles: %d (%d drafts)\n", len(articles), drafts)
	fmt.Fprintf(&b, "Plan: %d entries, %d per week\n", len(p.ContentPlan), p.PublishFrequency)
	if p.CMS != nil {
		fmt.Fprintf(&b, "CMS: %s", p.CMS.Endpoint)
	} else {
		b.WriteString("CMS: not connected")
	}

	choices := []Choice{
		{Label: "✍️ Write article", Command: WriteArticle(p.ID)},
	}
	if p.CMS != nil && drafts > 0 {
		choices = append(choices, Choice{Label: "🚀 Publish latest draft", Command: PublishArticle(p.ID)})
	}
	choices = append(choices,
		Choice{Label: "🗓 Show plan", Command: ShowPlan(p.ID)},
		Choice{Label: "🗑 Delete project", Command: AskDelete(p.ID)},
		Choice{Label: "🏠 Main menu", Command: MainMenu()},
	)
	return w.prompt(ctx, upd, b.String(), choices)
}

func (w *Wizard) showPlan(ctx context.Context, upd Update, id string) error {
	p, err := w.load(ctx, upd, id)
	if err != nil {
		return err
	}
	text := "No content plan yet."
	if len(p.ContentPlan) > 0 {
		text = "🗓 Content plan\n" + formatPlan(p.ContentPlan)
	}
	return w.prompt(ctx, upd, text, []Choice{
		{Label: "↩️ Back", Command: OpenProject(p.ID)},
	})
}
