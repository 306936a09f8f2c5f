package wizard

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/sitepilot/internal/domain"
	"github.com/alexanderramin/sitepilot/internal/llm"
)

// generate runs one text completion and returns the trimmed text.
func (w *Wizard) generate(ctx context.Context, task llm.TaskType, system, user string) (string, error) {
	resp, err := w.llm.Generate(ctx, llm.GenerateRequest{
		Task:         task,
		SystemPrompt: system,
		UserPrompt:   user,
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", llm.ErrInvalidOutput)
	}
	return text, nil
}

const competitorSystemPrompt = `You are an SEO consultant. Given a summary of a competitor's web page and a
brief about the client's business, explain in at most five short bullet points
what the competitor does well and what the client can do better. Plain text.`

func competitorPrompt(p *domain.Project, pageURL, summary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Client site: %s\n", p.SiteURL)
	writeBrief(&b, p.Info)
	fmt.Fprintf(&b, "\nCompetitor page: %s\n%s\n", pageURL, summary)
	return b.String()
}

const textStyleSystemPrompt = `You write style guides for blog authors. From the business brief and the
competitor notes, produce a concise writing style instruction (tone, voice,
sentence length, vocabulary, formatting habits) that an AI writer can follow.
Return only the instruction text.`

func textStylePrompt(p *domain.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Site: %s\n", p.SiteURL)
	writeBrief(&b, p.Info)
	if cs := Competitors(p.Info); len(cs) > 0 {
		b.WriteString("\nCompetitor notes:\n")
		for _, c := range cs {
			fmt.Fprintf(&b, "- %s: %s\n", c.URL, oneLine(c.Opinion, 300))
		}
	}
	return b.String()
}

const visualStyleInstruction = `Describe the consistent visual style shared by these reference images so an
illustrator can reproduce it: palette, lighting, composition, medium and mood.
Answer with one paragraph of prose.`

// DefaultStylePrompt is used when no reference images were uploaded.
const (
	DefaultStylePrompt         = "clean modern editorial photography, natural light, soft neutral palette, uncluttered composition"
	DefaultStyleNegativePrompt = "text, watermark, logo, blurry, distorted faces, low quality"
)

const articleSystemPrompt = `You are an SEO copywriter. Write a complete blog article in Markdown following
the style guide. Use the internal links where they fit naturally and cite at
most two of the external sources. Reply with a single JSON object:
{"title": "...", "content": "markdown body", "meta_title": "...",
 "meta_description": "...", "keywords": ["..."], "slug": "..."}`

func articlePrompt(p *domain.Project, title string, keywords []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Site: %s\n", p.SiteURL)
	writeBrief(&b, p.Info)
	if p.TextStylePrompt != "" {
		fmt.Fprintf(&b, "\nStyle guide:\n%s\n", p.TextStylePrompt)
	}
	if title != "" {
		fmt.Fprintf(&b, "\nArticle title: %s\n", title)
	} else {
		b.WriteString("\nPick a title that introduces the business to new readers.\n")
	}
	if len(keywords) > 0 {
		fmt.Fprintf(&b, "Target keywords: %s\n", strings.Join(keywords, ", "))
	}
	if len(p.InternalLinks) > 0 {
		b.WriteString("\nInternal links:\n")
		for i, l := range p.InternalLinks {
			if i == 20 {
				break
			}
			fmt.Fprintf(&b, "- %s\n", l)
		}
	}
	if len(p.ExternalLinks) > 0 {
		b.WriteString("\nExternal sources:\n")
		for _, l := range p.ExternalLinks {
			fmt.Fprintf(&b, "- %s (%s)\n", l.Title, l.URL)
		}
	}
	return b.String()
}

const planSystemPrompt = `You plan blog content calendars. Reply with a JSON array only, one object per
article: {"day": <day number starting at 1>, "title": "...", "keywords": ["..."],
"intent": "informational|commercial|navigational"}.`

// PlanWeeks is how many weeks a generated calendar covers.
const PlanWeeks = 4

func planPrompt(p *domain.Project, perWeek int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Site: %s\n", p.SiteURL)
	writeBrief(&b, p.Info)
	fmt.Fprintf(&b, "\nPlan %d articles: %d per week for %d weeks, spread over days 1-%d.\n",
		perWeek*PlanWeeks, perWeek, PlanWeeks, PlanWeeks*7)
	return b.String()
}

// searchQuery builds the external-link search from the survey: the business
// niche biased toward the target region.
func searchQuery(p *domain.Project) string {
	niche := oneLine(p.Info.String(domain.SurveyKey(1)), 80)
	if niche == "" {
		niche = p.DisplayName()
	}
	region := oneLine(p.Info.String(domain.SurveyKey(4)), 40)
	if region == "" {
		return niche + " guide"
	}
	return niche + " " + region + " guide"
}

var briefLabels = [domain.SurveyQuestionCount]string{
	"Business", "Customers", "Key offers", "Region and language", "Goals and tone",
}

func writeBrief(b *strings.Builder, info domain.Info) {
	answers := info.SurveyAnswers()
	wrote := false
	for i, a := range answers {
		if a == "" {
			continue
		}
		if !wrote {
			b.WriteString("Brief:\n")
			wrote = true
		}
		fmt.Fprintf(b, "- %s: %s\n", briefLabels[i], a)
	}
}

// oneLine flattens whitespace and truncates to n runes.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > n {
		return string(r[:n]) + "…"
	}
	return s
}
