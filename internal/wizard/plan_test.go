package wizard

import (
	"context"
	"testing"

	"github.com/alexanderramin/sitepilot/internal/domain"
	"github.com/alexanderramin/sitepilot/internal/llm"
	"github.com/alexanderramin/sitepilot/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planTitles(plan []domain.PlanEntry) []string {
	out := make([]string, len(plan))
	for i, e := range plan {
		out[i] = e.Title
	}
	return out
}

func TestParsePlan(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{
			name: "sorted by day",
			raw:  `[{"day":5,"title":"B"},{"day":2,"title":"A"}]`,
			want: []string{"A", "B"},
		},
		{
			name: "fenced with prose",
			raw:  "Sure!\n```json\n[{\"day\":\"1\",\"title\":\"Intro\"}]\n```",
			want: []string{"Intro"},
		},
		{
			name: "untitled entries dropped",
			raw:  `[{"day":1,"title":"  "},{"day":2,"title":"Kept"}]`,
			want: []string{"Kept"},
		},
		{name: "empty array", raw: `[]`, wantErr: true},
		{name: "only untitled", raw: `[{"day":1}]`, wantErr: true},
		{name: "not json", raw: "Week 1: write about bread", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := ParsePlan(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, planTitles(plan))
		})
	}
}

func TestParsePlan_ClampsDay(t *testing.T) {
	plan, err := ParsePlan(`[{"day":0,"title":"Zero"},{"day":-3,"title":"Negative"}]`)
	require.NoError(t, err)
	for _, e := range plan {
		assert.Equal(t, 1, e.Day)
	}
}

func TestDefaultPlan(t *testing.T) {
	p := testutil.NewTestProject(testutil.WithSiteURL("https://bakery.example.com"))
	assert.Equal(t, []domain.PlanEntry{{Day: 1, Title: "Getting started with bakery.example.com", Intent: "informational"}}, DefaultPlan(p))

	p.Info[domain.SurveyKey(1)] = "sourdough baking"
	assert.Equal(t, "Getting started with sourdough baking", DefaultPlan(p)[0].Title)
}

func TestContentPlan_ValidReplyIsSortedAndApproved(t *testing.T) {
	h := newHarness(t)
	p := h.seed(t, testutil.WithStepsThrough(10))

	h.click(t, ContinueStep(p.ID))
	assert.Len(t, h.tr.last().Choices, MaxFrequency)

	h.click(t, SaveFrequency(p.ID, 3))
	last := h.tr.last()
	assert.Contains(t, last.Text, "Day 1: Our bakery story\nDay 3: Sourdough basics")
	assert.Equal(t, []Verb{VerbApprovePlan, VerbRegeneratePlan}, verbs(last.Choices))
	assert.Equal(t, 3, h.project(t, p.ID).PublishFrequency)
	assert.False(t, h.project(t, p.ID).Progress.Done(domain.FlagContentPlan))

	h.click(t, ApprovePlan(p.ID))

	got := h.project(t, p.ID)
	assert.True(t, got.Progress.Done(domain.FlagContentPlan))
	assert.Equal(t, []string{"Our bakery story", "Sourdough basics"}, planTitles(got.ContentPlan))
	assert.Equal(t, []string{"sourdough"}, got.ContentPlan[1].Keywords)
	assert.NotContains(t, got.Info, domain.InfoPlan)
	assert.True(t, h.tr.contains("Setup complete"))
	assert.Contains(t, h.tr.last().Text, "📊")
}

func TestContentPlan_UnparsableReplyFallsBack(t *testing.T) {
	h := newHarness(t)
	h.llm.set(llm.TaskContentPlan, "I would write about bread every Monday.", nil)
	p := h.seed(t, testutil.WithSiteURL("https://bakery.example.com"), testutil.WithStepsThrough(10))

	h.click(t, SaveFrequency(p.ID, 2))
	h.click(t, ApprovePlan(p.ID))

	got := h.project(t, p.ID)
	require.Len(t, got.ContentPlan, 1)
	assert.Equal(t, "Getting started with bakery.example.com", got.ContentPlan[0].Title)
	assert.Equal(t, 1, got.ContentPlan[0].Day)
	assert.True(t, got.Progress.Done(domain.FlagContentPlan))
}

func TestContentPlan_BlankReplyFallsBack(t *testing.T) {
	h := newHarness(t)
	h.llm.set(llm.TaskContentPlan, "   ", nil)
	p := h.seed(t, testutil.WithSiteURL("https://bakery.example.com"), testutil.WithStepsThrough(10))

	h.click(t, SaveFrequency(p.ID, 3))
	assert.Contains(t, h.tr.last().Text, "Getting started with bakery.example.com")
	assert.False(t, h.tr.contains("Content plan failed"))

	h.click(t, ApprovePlan(p.ID))

	got := h.project(t, p.ID)
	require.Len(t, got.ContentPlan, 1)
	assert.Equal(t, "Getting started with bakery.example.com", got.ContentPlan[0].Title)
	assert.True(t, got.Progress.Done(domain.FlagContentPlan))
}

func TestContentPlan_GenerationFailureOffersRetry(t *testing.T) {
	h := newHarness(t)
	h.llm.set(llm.TaskContentPlan, "", llm.ErrTimeout)
	p := h.seed(t, testutil.WithStepsThrough(10))

	h.click(t, SaveFrequency(p.ID, 2))

	assert.Equal(t, RetryStep(StepContentPlan, p.ID), h.tr.last().Choices[0].Command)
	assert.NotContains(t, h.project(t, p.ID).Info, domain.InfoPlan)
}

func TestContentPlan_ApproveWithoutDraftAsksFrequency(t *testing.T) {
	h := newHarness(t)
	p := h.seed(t, testutil.WithStepsThrough(10))

	h.click(t, ApprovePlan(p.ID))

	assert.False(t, h.project(t, p.ID).Progress.Done(domain.FlagContentPlan))
	assert.Contains(t, h.tr.last().Text, "articles per week")
}

func TestContentPlan_RegenerateCallsModelAgain(t *testing.T) {
	h := newHarness(t)
	p := h.seed(t, testutil.WithStepsThrough(10))

	h.click(t, SaveFrequency(p.ID, 4))
	h.click(t, RegeneratePlan(p.ID))

	assert.Equal(t, 2, h.llm.count(llm.TaskContentPlan))
	assert.Len(t, PlanFromInfo(h.project(t, p.ID).Info), 2)
}

func TestDashboard_WriteAndPublish(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.seed(t, testutil.WithStepsThrough(domain.CheckpointsTotal))
	stored := h.project(t, p.ID)
	stored.CMS = &domain.CMSCredentials{Endpoint: "https://bakery.example.com", Login: "admin", Password: "pw"}
	stored.ContentPlan = []domain.PlanEntry{{Day: 1, Title: "Fresh bread every day"}, {Day: 2, Title: "Rye 101"}}
	require.NoError(t, h.projects.Save(ctx, stored))

	h.click(t, WriteArticle(p.ID))
	articles, err := h.articles.ListByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, articles, 1)

	h.click(t, OpenProject(p.ID))
	assert.Contains(t, verbs(h.tr.last().Choices), VerbPublishArticle)

	h.click(t, PublishArticle(p.ID))
	require.Len(t, h.cms.published, 1)
	assert.Equal(t, "Fresh bread every day", h.cms.published[0].Title)
	assert.Contains(t, h.tr.last().Text, "https://bakery.example.com/?p=42")

	articles, err = h.articles.ListByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ArticlePublished, articles[0].Status)
	assert.Equal(t, "https://bakery.example.com/?p=42", articles[0].PublishedURL)
}

func TestDashboard_WriteArticleBeforeSetupReDispatches(t *testing.T) {
	h := newHarness(t)
	p := h.seed(t, testutil.WithStepsThrough(5))

	h.click(t, WriteArticle(p.ID))

	assert.Equal(t, 0, h.llm.count(llm.TaskArticle))
	assert.Contains(t, h.tr.last().Text, "stopped at step 6: Gallery")
}
