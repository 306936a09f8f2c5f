package wizard

import (
	"context"
	"fmt"

	"github.com/alexanderramin/sitepilot/internal/domain"
	"github.com/alexanderramin/sitepilot/internal/session"
)

// SurveyQuestions are asked in order; answer n is stored under
// domain.SurveyKey(n).
var SurveyQuestions = [domain.SurveyQuestionCount]string{
	"1/5 What does your business do? Describe it in a sentence or two.",
	"2/5 Who are your customers?",
	"3/5 Which products or services matter most to you?",
	"4/5 Which region and language do you target?",
	"5/5 What should the articles achieve, and in what tone?",
}

func (w *Wizard) enterScan(ctx context.Context, upd Update, p *domain.Project) error {
	step, _ := StepByNumber(StepScan)
	w.animate(ctx, upd, AnimationScanning, fmt.Sprintf("Scanning %s…", p.DisplayName()))

	pages, err := w.site.DiscoverPages(ctx, p.SiteURL)
	if err != nil {
		return w.fail(ctx, upd, p.ID, step, err)
	}
	_ = w.say(ctx, upd, scanSummary(pages))
	return w.complete(ctx, upd, p.ID, step, pathNormal, func(p *domain.Project) error {
		p.SitemapLinks = pages
		return nil
	})
}

func scanSummary(pages []string) string {
	if len(pages) == 0 {
		return "🔎 No content pages found. The wizard will continue without a sitemap."
	}
	s := fmt.Sprintf("🔎 Found %d content pages.", len(pages))
	for i, u := range pages {
		if i == 5 {
			s += fmt.Sprintf("\n… and %d more", len(pages)-5)
			break
		}
		s += "\n• " + u
	}
	return s
}

// enterSurvey restarts the survey at question 1.
func (w *Wizard) enterSurvey(ctx context.Context, upd Update, p *domain.Project) error {
	if err := w.putSession(ctx, upd, session.NewInSurvey(p.ID, 1)); err != nil {
		return err
	}
	return w.askSurvey(ctx, upd, 1)
}

func (w *Wizard) askSurvey(ctx context.Context, upd Update, q int) error {
	return w.prompt(ctx, upd, SurveyQuestions[q-1], []Choice{
		{Label: "🏠 Main menu", Command: MainMenu()},
	})
}

// answerSurvey stores one reply. The last reply is saved together with the
// survey flag.
func (w *Wizard) answerSurvey(ctx context.Context, upd Update, st session.State, answer string) error {
	p, ok, err := w.current(ctx, upd, st.ProjectID, StepSurvey)
	if err != nil || !ok {
		return err
	}
	q := st.Question
	if q < 1 || q > domain.SurveyQuestionCount {
		q = 1
	}
	if answer == "" {
		_ = w.say(ctx, upd, "Please answer with some text.")
		return w.askSurvey(ctx, upd, q)
	}

	if q < domain.SurveyQuestionCount {
		if err := w.projects.MergeInfo(ctx, p.ID, domain.SurveyKey(q), answer); err != nil {
			return fmt.Errorf("saving survey answer: %w", err)
		}
		if err := w.putSession(ctx, upd, session.NewInSurvey(p.ID, q+1)); err != nil {
			return err
		}
		return w.askSurvey(ctx, upd, q+1)
	}

	if err := w.sessions.Clear(ctx, upd.UserID); err != nil {
		w.log.WarnContext(ctx, "session_clear_failed", "user", upd.UserID, "error", err)
	}
	step, _ := StepByNumber(StepSurvey)
	return w.complete(ctx, upd, p.ID, step, pathNormal, func(p *domain.Project) error {
		p.Info[domain.SurveyKey(q)] = answer
		return nil
	})
}
