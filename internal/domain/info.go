package domain

import "fmt"

// Info keys. Each step owns its own namespace inside the free-form info map.
const (
	InfoCompetitors     = "competitors_list"
	InfoTopics          = "temp_topics"
	InfoPlan            = "temp_plan"
	InfoInternalLinks   = "temp_internal_links"
	InfoExternalLinks   = "temp_external_links"
	InfoLinksPhase      = "links_phase"
	SurveyQuestionCount = 5
)

// SurveyKey returns the info key holding the answer to survey question n (1-based).
func SurveyKey(n int) string {
	return fmt.Sprintf("survey_step%d", n)
}

// Info is open-ended scratch storage attached to a project.
type Info map[string]any

// String returns the value under key if it is a string.
func (i Info) String(key string) string {
	s, _ := i[key].(string)
	return s
}

// Strings returns the value under key as a string slice. Values decoded from
// JSON arrive as []any and are converted element by element.
func (i Info) Strings(key string) []string {
	switch v := i[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// SurveyAnswers returns the answers recorded so far, in question order.
// Unanswered questions are returned as empty strings.
func (i Info) SurveyAnswers() []string {
	out := make([]string, SurveyQuestionCount)
	for n := 1; n <= SurveyQuestionCount; n++ {
		out[n-1] = i.String(SurveyKey(n))
	}
	return out
}
