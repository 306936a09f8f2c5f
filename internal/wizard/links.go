package wizard

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/sitepilot/internal/domain"
)

const (
	// MaxInternalLinks caps the internal links offered for approval.
	MaxInternalLinks = 100
	// MaxExternalLinks caps the search results offered for approval.
	MaxExternalLinks = 10

	linksPhaseReview = "review"
)

// enterLinks collects internal pages, then runs the external search.
func (w *Wizard) enterLinks(ctx context.Context, upd Update, p *domain.Project) error {
	step, _ := StepByNumber(StepLinks)
	w.animate(ctx, upd, AnimationScanning, "Collecting internal pages…")

	internal, err := w.site.DiscoverPages(ctx, p.SiteURL)
	if err != nil {
		w.log.WarnContext(ctx, "internal_links_failed", "project_id", p.ID, "error", err)
		internal = nil
	}
	if len(internal) > MaxInternalLinks {
		internal = internal[:MaxInternalLinks]
	}
	if _, err := w.update(ctx, p.ID, func(p *domain.Project) error {
		p.Info[domain.InfoInternalLinks] = toAnySlice(internal)
		p.Info[domain.InfoLinksPhase] = "external"
		return nil
	}); err != nil {
		return w.fail(ctx, upd, p.ID, step, err)
	}
	return w.searchExternal(ctx, upd, p.ID)
}

// searchExternal runs the web search and offers the batch for approval.
func (w *Wizard) searchExternal(ctx context.Context, upd Update, id string) error {
	p, err := w.load(ctx, upd, id)
	if err != nil {
		return err
	}
	w.animate(ctx, upd, AnimationThinking, "Searching for external sources…")

	query := searchQuery(p)
	external, searchErr := w.site.SearchWeb(ctx, query, MaxExternalLinks)
	if searchErr != nil {
		w.log.WarnContext(ctx, "external_search_failed", "project_id", id, "query", query, "error", searchErr)
		external = nil
	}
	if len(external) > MaxExternalLinks {
		external = external[:MaxExternalLinks]
	}

	p, err = w.update(ctx, id, func(p *domain.Project) error {
		entries := make([]any, len(external))
		for i, l := range external {
			entries[i] = map[string]any{"title": l.Title, "url": l.URL, "snippet": l.Snippet}
		}
		p.Info[domain.InfoExternalLinks] = entries
		p.Info[domain.InfoLinksPhase] = linksPhaseReview
		return nil
	})
	if err != nil {
		step, _ := StepByNumber(StepLinks)
		return w.fail(ctx, upd, id, step, err)
	}

	internal := p.Info.Strings(domain.InfoInternalLinks)
	text := linksSummary(internal, external, searchErr != nil)
	var choices []Choice
	if len(internal) > 0 || len(external) > 0 {
		choices = append(choices, Choice{Label: "✅ Approve all", Command: ApproveLinks(id)})
	}
	choices = append(choices, Choice{Label: "🔁 Retry search", Command: RetryLinks(id)})
	if len(internal) == 0 || len(external) == 0 {
		choices = append(choices, Choice{Label: "⏭ Skip", Command: SkipLinks(id)})
	}
	return w.prompt(ctx, upd, text, choices)
}

func linksSummary(internal []string, external []domain.ExternalLink, searchFailed bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔗 Internal pages: %d\n", len(internal))
	switch {
	case searchFailed:
		b.WriteString("🌐 External search failed.\n")
	case len(external) == 0:
		b.WriteString("🌐 No suitable external sources found.\n")
	default:
		fmt.Fprintf(&b, "🌐 External sources: %d\n", len(external))
		for _, l := range external {
			fmt.Fprintf(&b, "• %s\n  %s\n", l.Title, l.URL)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// approveLinks persists the reviewed batch verbatim with the links flag.
func (w *Wizard) approveLinks(ctx context.Context, upd Update, id string) error {
	p, ok, err := w.current(ctx, upd, id, StepLinks)
	if err != nil || !ok {
		return err
	}
	if p.Info.String(domain.InfoLinksPhase) != linksPhaseReview {
		return w.enterLinks(ctx, upd, p)
	}
	step, _ := StepByNumber(StepLinks)
	return w.complete(ctx, upd, id, step, pathNormal, func(p *domain.Project) error {
		p.InternalLinks = p.Info.Strings(domain.InfoInternalLinks)
		p.ExternalLinks = ExternalLinks(p.Info)
		clearLinkScratch(p.Info)
		return nil
	})
}

func (w *Wizard) retryLinks(ctx context.Context, upd Update, id string) error {
	if _, ok, err := w.current(ctx, upd, id, StepLinks); err != nil || !ok {
		return err
	}
	return w.searchExternal(ctx, upd, id)
}

// skipLinks completes the links step with empty approved lists.
func (w *Wizard) skipLinks(ctx context.Context, upd Update, id string) error {
	if _, ok, err := w.current(ctx, upd, id, StepLinks); err != nil || !ok {
		return err
	}
	step, _ := StepByNumber(StepLinks)
	return w.complete(ctx, upd, id, step, pathSkip, func(p *domain.Project) error {
		p.InternalLinks = []string{}
		p.ExternalLinks = []domain.ExternalLink{}
		clearLinkScratch(p.Info)
		return nil
	})
}

// ExternalLinks decodes the external links under review.
func ExternalLinks(info domain.Info) []domain.ExternalLink {
	raw, _ := info[domain.InfoExternalLinks].([]any)
	out := make([]domain.ExternalLink, 0, len(raw))
	for _, item := range raw {
		var l domain.ExternalLink
		if err := decodeLoose(item, &l); err != nil || l.URL == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

func clearLinkScratch(info domain.Info) {
	delete(info, domain.InfoInternalLinks)
	delete(info, domain.InfoExternalLinks)
	delete(info, domain.InfoLinksPhase)
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
