package wizard

import (
	"math/rand"
	"testing"

	"github.com/alexanderramin/sitepilot/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_LabelsInOrder(t *testing.T) {
	var labels []string
	for i, s := range Steps() {
		assert.Equal(t, i+1, s.Number)
		assert.Equal(t, domain.FlagName(i+1), s.Flag)
		labels = append(labels, s.Label)
	}
	want := []string{
		"Project created", "Scanning", "Survey", "Competitor analysis", "Links", "Gallery",
		"Visual style", "Text style", "CMS connection", "Test article", "Content plan",
	}
	if diff := cmp.Diff(want, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalog_OnlyGalleryAndCMSAreSkippable(t *testing.T) {
	var skippable []int
	for _, s := range Steps() {
		if s.Skippable {
			skippable = append(skippable, s.Number)
		}
	}
	assert.Equal(t, []int{StepGallery, StepCMS}, skippable)
}

func TestCatalog_ManualStops(t *testing.T) {
	var manual []int
	for _, s := range Steps() {
		if !s.AutoAdvance {
			manual = append(manual, s.Number)
		}
	}
	assert.Equal(t, []int{StepScan, StepSurvey, StepTestArticle, StepContentPlan}, manual)
}

func TestSteps_ReturnsCopy(t *testing.T) {
	s := Steps()
	s[1].Label = "changed"
	again, _ := StepByNumber(StepScan)
	assert.Equal(t, "Scanning", again.Label)
}

func TestStepByNumber_OutOfRange(t *testing.T) {
	_, ok := StepByNumber(0)
	assert.False(t, ok)
	_, ok = StepByNumber(domain.CheckpointsTotal + 1)
	assert.False(t, ok)
}

func TestResolve_FreshProjectResumesAtScanning(t *testing.T) {
	target := Resolve(domain.Progress{domain.FlagCreated: true})
	require.Equal(t, TargetResume, target.Kind)
	assert.Equal(t, StepScan, target.Step.Number)
	assert.Equal(t, "Scanning", target.Step.Label)

	p := &domain.Project{SiteURL: "https://bakery.example.com"}
	assert.Equal(t, "Project bakery.example.com stopped at step 2: Scanning", ResumeText(p, target.Step))
}

func TestResolve_EmptyProgressResumesAtScanning(t *testing.T) {
	target := Resolve(domain.Progress{})
	require.Equal(t, TargetResume, target.Kind)
	assert.Equal(t, StepScan, target.Step.Number)
	assert.Equal(t, "Scanning", target.Step.Label)
	assert.Equal(t, target, Resolve(domain.Progress{}))
}

func TestResolve_ImpliedCreationFlag(t *testing.T) {
	progress := domain.Progress{}
	for n := 2; n <= 9; n++ {
		progress[domain.FlagName(n)] = true
	}
	progress[domain.FlagTestArticle] = false
	progress[domain.FlagContentPlan] = false

	target := Resolve(progress)
	require.Equal(t, TargetResume, target.Kind)
	assert.Equal(t, StepTestArticle, target.Step.Number)
	assert.Equal(t, "Test article", target.Step.Label)

	progress[domain.FlagTestArticle] = true
	progress[domain.FlagContentPlan] = true
	assert.Equal(t, Target{Kind: TargetDashboard}, Resolve(progress))
}

func TestResolve_StopsAtTestArticle(t *testing.T) {
	progress := domain.Progress{domain.FlagCreated: true}
	for n := 2; n <= 9; n++ {
		progress[domain.FlagName(n)] = true
	}
	progress[domain.FlagTestArticle] = false

	target := Resolve(progress)
	require.Equal(t, TargetResume, target.Kind)
	assert.Equal(t, StepTestArticle, target.Step.Number)
}

func TestResolve_AllDoneIsDashboard(t *testing.T) {
	progress := domain.Progress{}
	for n := 1; n <= domain.CheckpointsTotal; n++ {
		progress[domain.FlagName(n)] = true
	}
	assert.Equal(t, Target{Kind: TargetDashboard}, Resolve(progress))
}

// Random progress maps always resolve to the first unset flag, and resolving
// twice gives the same answer.
func TestResolve_EarliestGapProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		progress := domain.Progress{}
		for n := 1; n <= domain.CheckpointsTotal; n++ {
			if rng.Intn(3) > 0 {
				progress[domain.FlagName(n)] = true
			}
		}

		first := 0
		for n := 2; n <= domain.CheckpointsTotal; n++ {
			if !progress[domain.FlagName(n)] {
				first = n
				break
			}
		}

		got := Resolve(progress)
		if first == 0 {
			assert.Equal(t, TargetDashboard, got.Kind)
		} else {
			assert.Equal(t, first, got.Step.Number, "progress %v", progress)
		}
		assert.Equal(t, got, Resolve(progress))
	}
}
