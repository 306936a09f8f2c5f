package wizard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownCommand is returned when a command token cannot be decoded.
var ErrUnknownCommand = errors.New("unknown command")

// Verb names a wizard action. The string value is the token prefix.
type Verb string

const (
	VerbMainMenu          Verb = "menu"
	VerbNewProject        Verb = "new"
	VerbOpenProject       Verb = "open"
	VerbContinueStep      Verb = "continue"
	VerbRetryStep         Verb = "retry"
	VerbSkipStep          Verb = "skip"
	VerbAskDelete         Verb = "delete"
	VerbConfirmDelete     Verb = "delete_yes"
	VerbAddCompetitor     Verb = "competitor_add"
	VerbFinishCompetitors Verb = "competitor_done"
	VerbApproveLinks      Verb = "links_ok"
	VerbRetryLinks        Verb = "links_retry"
	VerbSkipLinks         Verb = "links_skip"
	VerbFinishGallery     Verb = "gallery_done"
	VerbSaveFrequency     Verb = "frequency"
	VerbApprovePlan       Verb = "plan_ok"
	VerbRegeneratePlan    Verb = "plan_again"
	VerbWriteArticle      Verb = "article_write"
	VerbPublishArticle    Verb = "article_publish"
	VerbShowPlan          Verb = "plan_show"
)

// argShape says which arguments follow a verb in its token.
type argShape int

const (
	argsNone argShape = iota
	argsProject
	argsStepProject
	argsProjectN
)

func (s argShape) argc() int {
	switch s {
	case argsProject:
		return 1
	case argsStepProject, argsProjectN:
		return 2
	default:
		return 0
	}
}

var verbShapes = map[Verb]argShape{
	VerbMainMenu:          argsNone,
	VerbNewProject:        argsNone,
	VerbOpenProject:       argsProject,
	VerbContinueStep:      argsProject,
	VerbRetryStep:         argsStepProject,
	VerbSkipStep:          argsStepProject,
	VerbAskDelete:         argsProject,
	VerbConfirmDelete:     argsProject,
	VerbAddCompetitor:     argsProject,
	VerbFinishCompetitors: argsProject,
	VerbApproveLinks:      argsProject,
	VerbRetryLinks:        argsProject,
	VerbSkipLinks:         argsProject,
	VerbFinishGallery:     argsProject,
	VerbSaveFrequency:     argsProjectN,
	VerbApprovePlan:       argsProject,
	VerbRegeneratePlan:    argsProject,
	VerbWriteArticle:      argsProject,
	VerbPublishArticle:    argsProject,
	VerbShowPlan:          argsProject,
}

// Command is a decoded user action. Only the fields used by Verb are set.
type Command struct {
	Verb      Verb
	ProjectID string
	Step      int
	N         int
}

func MainMenu() Command { return Command{Verb: VerbMainMenu} }
func NewProject() Command { return Command{Verb: VerbNewProject} }
func OpenProject(id string) Command { return Command{Verb: VerbOpenProject, ProjectID: id} }
func ContinueStep(id string) Command { return Command{Verb: VerbContinueStep, ProjectID: id} }
func AskDelete(id string) Command { return Command{Verb: VerbAskDelete, ProjectID: id} }
func ConfirmDelete(id string) Command { return Command{Verb: VerbConfirmDelete, ProjectID: id} }
func AddCompetitor(id string) Command { return Command{Verb: VerbAddCompetitor, ProjectID: id} }
func FinishCompetitors(id string) Command { return Command{Verb: VerbFinishCompetitors, ProjectID: id} }
func ApproveLinks(id string) Command { return Command{Verb: VerbApproveLinks, ProjectID: id} }
func RetryLinks(id string) Command { return Command{Verb: VerbRetryLinks, ProjectID: id} }
func SkipLinks(id string) Command { return Command{Verb: VerbSkipLinks, ProjectID: id} }
func FinishGallery(id string) Command { return Command{Verb: VerbFinishGallery, ProjectID: id} }
func ApprovePlan(id string) Command { return Command{Verb: VerbApprovePlan, ProjectID: id} }
func RegeneratePlan(id string) Command { return Command{Verb: VerbRegeneratePlan, ProjectID: id} }
func WriteArticle(id string) Command { return Command{Verb: VerbWriteArticle, ProjectID: id} }
func PublishArticle(id string) Command { return Command{Verb: VerbPublishArticle, ProjectID: id} }
func ShowPlan(id string) Command { return Command{Verb: VerbShowPlan, ProjectID: id} }

func RetryStep(step int, id string) Command {
	return Command{Verb: VerbRetryStep, Step: step, ProjectID: id}
}

func SkipStep(step int, id string) Command {
	return Command{Verb: VerbSkipStep, Step: step, ProjectID: id}
}

// SaveFrequency records n articles per week.
func SaveFrequency(id string, n int) Command {
	return Command{Verb: VerbSaveFrequency, ProjectID: id, N: n}
}

// Encode renders c as a transport token: verb[:arg...].
func (c Command) Encode() string {
	switch verbShapes[c.Verb] {
	case argsProject:
		return string(c.Verb) + ":" + c.ProjectID
	case argsStepProject:
		return fmt.Sprintf("%s:%d:%s", c.Verb, c.Step, c.ProjectID)
	case argsProjectN:
		return fmt.Sprintf("%s:%s:%d", c.Verb, c.ProjectID, c.N)
	default:
		return string(c.Verb)
	}
}

func (c Command) String() string { return c.Encode() }

// DecodeCommand parses a token produced by Encode.
func DecodeCommand(token string) (Command, error) {
	parts := strings.Split(strings.TrimSpace(token), ":")
	verb := Verb(parts[0])
	shape, ok := verbShapes[verb]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, token)
	}
	args := parts[1:]
	want := shape.argc()
	if len(args) != want {
		return Command{}, fmt.Errorf("%w: %q takes %d argument(s)", ErrUnknownCommand, token, want)
	}
	for _, a := range args {
		if a == "" {
			return Command{}, fmt.Errorf("%w: %q has an empty argument", ErrUnknownCommand, token)
		}
	}

	cmd := Command{Verb: verb}
	switch shape {
	case argsProject:
		cmd.ProjectID = args[0]
	case argsStepProject:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("%w: bad step in %q", ErrUnknownCommand, token)
		}
		if _, ok := StepByNumber(n); !ok {
			return Command{}, fmt.Errorf("%w: no step %d", ErrUnknownCommand, n)
		}
		cmd.Step = n
		cmd.ProjectID = args[1]
	case argsProjectN:
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return Command{}, fmt.Errorf("%w: bad number in %q", ErrUnknownCommand, token)
		}
		cmd.ProjectID = args[0]
		cmd.N = n
	}
	return cmd, nil
}
