// Package session holds the short-lived, per-user state of multi-turn wizard
// flows: which project a user is answering questions for and where in the
// flow they are. Durable progress never lives here.
package session

import (
	"context"
	"errors"
)

// Kind tags the variant held by a State.
type Kind string

const (
	None             Kind = ""
	AwaitingSiteURL  Kind = "awaiting_site_url"
	InSurvey         Kind = "in_survey"
	InCompetitorLoop Kind = "in_competitor_loop"
	AwaitingUpload   Kind = "awaiting_upload"
	InCMSForm        Kind = "in_cms_form"
)

// CMS form fields, asked in this order.
const (
	FieldEndpoint = "endpoint"
	FieldLogin    = "login"
	FieldPassword = "password"
)

// CMSFields lists the CMS form fields in prompt order.
var CMSFields = []string{FieldEndpoint, FieldLogin, FieldPassword}

// State is one user's transient sub-state. Only the fields relevant to Kind
// are set; use the constructors below rather than filling it by hand.
type State struct {
	Kind      Kind              `json:"kind"`
	ProjectID string            `json:"project_id,omitempty"`
	Question  int               `json:"question,omitempty"`
	Field     string            `json:"field,omitempty"`
	Values    map[string]string `json:"values,omitempty"`
}

func NewAwaitingSiteURL() State {
	return State{Kind: AwaitingSiteURL}
}

// NewInSurvey starts or advances a survey; question is 1-based.
func NewInSurvey(projectID string, question int) State {
	return State{Kind: InSurvey, ProjectID: projectID, Question: question}
}

func NewInCompetitorLoop(projectID string) State {
	return State{Kind: InCompetitorLoop, ProjectID: projectID}
}

func NewAwaitingUpload(projectID string) State {
	return State{Kind: AwaitingUpload, ProjectID: projectID}
}

// NewInCMSForm positions the form at field with the values collected so far.
func NewInCMSForm(projectID, field string, values map[string]string) State {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return State{Kind: InCMSForm, ProjectID: projectID, Field: field, Values: cp}
}

// IsNone reports whether the user is not inside any multi-turn flow.
func (s State) IsNone() bool { return s.Kind == None }

// Store keeps State per user id. Get on an unknown user returns the None
// state without error.
type Store interface {
	Get(ctx context.Context, userID string) (State, error)
	Put(ctx context.Context, userID string, s State) error
	Clear(ctx context.Context, userID string) error
}

// ErrCorrupt is returned when a stored state cannot be decoded.
var ErrCorrupt = errors.New("session state corrupt")
