package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type planPayload struct {
	Plan []struct {
		Day   int    `json:"day"`
		Title string `json:"title"`
	} `json:"plan"`
}

type articlePayload struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

func TestExtractJSON_CleanObject(t *testing.T) {
	raw := `{"title":"Rye bread","content":"# Rye","score":0.95}`
	result, err := ExtractJSON[articlePayload](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "Rye bread", result.Title)
	assert.Equal(t, 0.95, result.Score)
}

func TestExtractJSON_FencedWithProse(t *testing.T) {
	raw := "Here is your plan:\n```json\n{\"plan\":[{\"day\":1,\"title\":\"Intro\"}]}\n```\nEnjoy!"
	result, err := ExtractJSON[planPayload](raw, nil)
	require.NoError(t, err)
	require.Len(t, result.Plan, 1)
	assert.Equal(t, "Intro", result.Plan[0].Title)
}

func TestExtractJSON_TopLevelArray(t *testing.T) {
	raw := `Sure: [{"day":2,"title":"Flour types"},{"day":5,"title":"Starter care"}] done`
	result, err := ExtractJSON[[]map[string]any](raw, nil)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "Starter care", result[1]["title"])
}

func TestExtractJSON_BracesInsideStrings(t *testing.T) {
	raw := `{"title":"Use {curly} and [square]","content":"a \"quoted\" } brace"}`
	result, err := ExtractJSON[articlePayload](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "Use {curly} and [square]", result.Title)
	assert.Equal(t, `a "quoted" } brace`, result.Content)
}

func TestExtractJSON_CommentsAndLeadingDecimals(t *testing.T) {
	raw := "{\n  // model note\n  \"title\": \"x\", /* inline */ \"score\": .8\n}"
	result, err := ExtractJSON[articlePayload](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.8, result.Score)
}

func TestExtractJSON_CommentMarkersInStringKept(t *testing.T) {
	raw := `{"title":"see https://example.com/a","content":"x"}`
	result, err := ExtractJSON[articlePayload](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "see https://example.com/a", result.Title)
}

func TestExtractJSON_NoJSON(t *testing.T) {
	_, err := ExtractJSON[articlePayload]("I cannot help with that.", nil)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestExtractJSON_Unbalanced(t *testing.T) {
	_, err := ExtractJSON[articlePayload](`{"title":"x"`, nil)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestExtractJSON_InvalidJSON(t *testing.T) {
	_, err := ExtractJSON[articlePayload](`{"title":"x", broken}`, nil)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestExtractJSON_Validator(t *testing.T) {
	nonEmpty := func(p planPayload) error {
		if len(p.Plan) == 0 {
			return errors.New("plan is empty")
		}
		return nil
	}

	_, err := ExtractJSON(`{"plan":[]}`, nonEmpty)
	assert.ErrorIs(t, err, ErrInvalidOutput)
	assert.Contains(t, err.Error(), "validation failed")

	result, err := ExtractJSON(`{"plan":[{"day":1,"title":"ok"}]}`, nonEmpty)
	require.NoError(t, err)
	assert.Len(t, result.Plan, 1)
}
