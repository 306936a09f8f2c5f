package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/sitepilot/internal/cms"
	"github.com/alexanderramin/sitepilot/internal/domain"
	"github.com/alexanderramin/sitepilot/internal/llm"
	"github.com/google/uuid"
)

// articleDraft is the JSON shape requested from the writer model.
type articleDraft struct {
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	MetaTitle       string   `json:"meta_title"`
	MetaDescription string   `json:"meta_description"`
	Keywords        []string `json:"keywords"`
	Slug            string   `json:"slug"`
}

// draftArticle generates and stores a draft. When the reply is not the
// requested JSON the whole reply becomes the body.
func (w *Wizard) draftArticle(ctx context.Context, p *domain.Project, title string, keywords []string) (*domain.Article, error) {
	raw, err := w.generate(ctx, llm.TaskArticle, articleSystemPrompt, articlePrompt(p, title, keywords))
	if err != nil {
		return nil, err
	}

	draft, err := llm.ExtractJSON[articleDraft](raw, func(d articleDraft) error {
		if strings.TrimSpace(d.Content) == "" {
			return errors.New("content is empty")
		}
		return nil
	})
	if err != nil {
		w.log.WarnContext(ctx, "article_json_fallback", "project_id", p.ID, "error", err)
		draft = articleDraft{Content: raw}
	}
	if draft.Title == "" {
		draft.Title = title
	}
	if draft.Title == "" {
		draft.Title = fmt.Sprintf("Welcome to %s", p.DisplayName())
	}
	if len(draft.Keywords) == 0 {
		draft.Keywords = keywords
	}

	now := w.now()
	a := &domain.Article{
		ID:        uuid.New().String(),
		ProjectID: p.ID,
		Title:     draft.Title,
		Content:   draft.Content,
		SEO: domain.SEOMeta{
			MetaTitle:       draft.MetaTitle,
			MetaDescription: draft.MetaDescription,
			Keywords:        draft.Keywords,
			Slug:            draft.Slug,
		},
		Status:    domain.ArticleDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := w.articles.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("saving article: %w", err)
	}
	return a, nil
}

func articlePreview(a *domain.Article) string {
	return fmt.Sprintf("📝 %s\n\n%s", a.Title, oneLine(a.Content, 600))
}

// enterTestArticle writes one draft; the flag is set once it is stored.
func (w *Wizard) enterTestArticle(ctx context.Context, upd Update, p *domain.Project) error {
	step, _ := StepByNumber(StepTestArticle)
	w.animate(ctx, upd, AnimationWriting, "Writing a test article…")
	a, err := w.draftArticle(ctx, p, "", nil)
	if err != nil {
		return w.fail(ctx, upd, p.ID, step, err)
	}
	_ = w.say(ctx, upd, articlePreview(a))
	return w.complete(ctx, upd, p.ID, step, pathNormal, nil)
}

// writeNextArticle drafts the first plan entry that has no article yet.
func (w *Wizard) writeNextArticle(ctx context.Context, upd Update, id string) error {
	p, err := w.load(ctx, upd, id)
	if err != nil {
		return err
	}
	if _, incomplete := NextStep(p.Progress); incomplete {
		_, err := w.Dispatch(ctx, upd, id)
		return err
	}
	existing, err := w.articles.ListByProject(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("listing articles: %w", err)
	}
	entry, ok := nextPlanEntry(p.ContentPlan, existing)
	if !ok {
		return w.prompt(ctx, upd, "Every planned article has been written.", []Choice{
			{Label: "↩️ Back", Command: OpenProject(p.ID)},
		})
	}

	w.animate(ctx, upd, AnimationWriting, "Writing \""+entry.Title+"\"…")
	a, err := w.draftArticle(ctx, p, entry.Title, entry.Keywords)
	if err != nil {
		return err
	}
	return w.prompt(ctx, upd, articlePreview(a), []Choice{
		{Label: "↩️ Back", Command: OpenProject(p.ID)},
	})
}

func nextPlanEntry(plan []domain.PlanEntry, written []*domain.Article) (domain.PlanEntry, bool) {
	have := make(map[string]bool, len(written))
	for _, a := range written {
		have[strings.ToLower(strings.TrimSpace(a.Title))] = true
	}
	for _, e := range plan {
		if !have[strings.ToLower(strings.TrimSpace(e.Title))] {
			return e, true
		}
	}
	return domain.PlanEntry{}, false
}

// publishLatest sends the newest draft to the CMS.
func (w *Wizard) publishLatest(ctx context.Context, upd Update, id string) error {
	p, err := w.load(ctx, upd, id)
	if err != nil {
		return err
	}
	if p.CMS == nil {
		return w.prompt(ctx, upd, "No CMS is connected to this project.", []Choice{
			{Label: "↩️ Back", Command: OpenProject(p.ID)},
		})
	}
	articles, err := w.articles.ListByProject(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("listing articles: %w", err)
	}
	var latest *domain.Article
	for _, a := range articles {
		if a.Status == domain.ArticleDraft && (latest == nil || !a.CreatedAt.Before(latest.CreatedAt)) {
			latest = a
		}
	}
	if latest == nil {
		return w.prompt(ctx, upd, "There is no draft to publish.", []Choice{
			{Label: "↩️ Back", Command: OpenProject(p.ID)},
		})
	}

	w.animate(ctx, upd, AnimationWriting, "Publishing \""+latest.Title+"\"…")
	pub, err := w.cms.Publish(ctx, *p.CMS, cms.Post{
		Title:       latest.Title,
		Markdown:    latest.Content,
		Excerpt:     latest.SEO.MetaDescription,
		Slug:        latest.SEO.Slug,
		ScheduledAt: latest.ScheduledAt,
	})
	if err != nil {
		return err
	}
	latest.Status = domain.ArticlePublished
	latest.PublishedURL = pub.Link
	if err := w.articles.Update(ctx, latest); err != nil {
		return fmt.Errorf("updating article: %w", err)
	}
	w.log.InfoContext(ctx, "article_published", "project_id", p.ID, "article_id", latest.ID, "url", pub.Link)
	return w.prompt(ctx, upd, "🚀 Published: "+pub.Link, []Choice{
		{Label: "↩️ Back", Command: OpenProject(p.ID)},
	})
}
