package wizard

import (
	"fmt"

	"github.com/alexanderramin/sitepilot/internal/domain"
)

// Step numbers. They equal the number in the step's progress flag.
const (
	StepCreated = iota + 1
	StepScan
	StepSurvey
	StepCompetitors
	StepLinks
	StepGallery
	StepVisualStyle
	StepTextStyle
	StepCMS
	StepTestArticle
	StepContentPlan
)

// Step describes one checkpoint of the project wizard.
type Step struct {
	Number int
	Flag   string
	Label  string
	// AutoAdvance steps enter the next step as soon as they complete;
	// the others stop and offer a Continue button.
	AutoAdvance bool
	Skippable   bool
	// Implied steps hold by the project existing; the earliest-gap scan
	// never stops on them.
	Implied bool
}

var catalog = [domain.CheckpointsTotal]Step{
	{Number: StepCreated, Flag: domain.FlagCreated, Label: "Project created", AutoAdvance: true, Implied: true},
	{Number: StepScan, Flag: domain.FlagScan, Label: "Scanning"},
	{Number: StepSurvey, Flag: domain.FlagSurvey, Label: "Survey"},
	{Number: StepCompetitors, Flag: domain.FlagCompetitors, Label: "Competitor analysis", AutoAdvance: true},
	{Number: StepLinks, Flag: domain.FlagLinks, Label: "Links", AutoAdvance: true},
	{Number: StepGallery, Flag: domain.FlagGallery, Label: "Gallery", AutoAdvance: true, Skippable: true},
	{Number: StepVisualStyle, Flag: domain.FlagVisualStyle, Label: "Visual style", AutoAdvance: true},
	{Number: StepTextStyle, Flag: domain.FlagTextStyle, Label: "Text style", AutoAdvance: true},
	{Number: StepCMS, Flag: domain.FlagCMS, Label: "CMS connection", AutoAdvance: true, Skippable: true},
	{Number: StepTestArticle, Flag: domain.FlagTestArticle, Label: "Test article"},
	{Number: StepContentPlan, Flag: domain.FlagContentPlan, Label: "Content plan"},
}

// Steps returns the catalog in wizard order.
func Steps() []Step {
	out := make([]Step, len(catalog))
	copy(out, catalog[:])
	return out
}

// StepByNumber looks up a step by its 1-based number.
func StepByNumber(n int) (Step, bool) {
	if n < 1 || n > len(catalog) {
		return Step{}, false
	}
	return catalog[n-1], true
}

// NextStep returns the earliest non-implied step whose flag is not set. ok is
// false when every such checkpoint is complete.
func NextStep(p domain.Progress) (step Step, ok bool) {
	for _, s := range catalog {
		if !s.Implied && !p.Done(s.Flag) {
			return s, true
		}
	}
	return Step{}, false
}

func (s Step) String() string {
	return fmt.Sprintf("step %d: %s", s.Number, s.Label)
}
