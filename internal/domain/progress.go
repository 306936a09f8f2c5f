package domain

import "fmt"

// Step flag names. Flags are persisted verbatim in the progress map, so the
// names are part of the storage format.
const (
	FlagCreated      = "step1"
	FlagScan         = "step2"
	FlagSurvey       = "step3"
	FlagCompetitors  = "step4"
	FlagLinks        = "step5"
	FlagGallery      = "step6"
	FlagVisualStyle  = "step7"
	FlagTextStyle    = "step8"
	FlagCMS          = "step9"
	FlagTestArticle  = "step10"
	FlagContentPlan  = "step11"
	CheckpointsTotal = 11
)

// FlagName returns the progress key for the n-th checkpoint.
func FlagName(n int) string {
	return fmt.Sprintf("step%d", n)
}

// Progress maps a step flag to its completion state. Missing keys are false.
type Progress map[string]bool

// Done reports whether the flag has been set.
func (p Progress) Done(flag string) bool {
	return p[flag]
}

// Mark sets a flag. Flags only move from false to true; Mark reports whether
// the call changed anything.
func (p Progress) Mark(flag string) bool {
	if p[flag] {
		return false
	}
	p[flag] = true
	return true
}

// Merge folds every true flag of other into p. Used by storage to keep the
// map monotonic when a stale copy is written back.
func (p Progress) Merge(other Progress) {
	for k, v := range other {
		if v {
			p[k] = true
		}
	}
}

// CompletedCount returns how many checkpoints are set. FlagCreated always
// counts: a stored project has been created whether or not the key is present.
func (p Progress) CompletedCount() int {
	n := 1
	for i := 2; i <= CheckpointsTotal; i++ {
		if p[FlagName(i)] {
			n++
		}
	}
	return n
}

// Clone returns an independent copy.
func (p Progress) Clone() Progress {
	out := make(Progress, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
