package wizard

import (
	"context"

	"github.com/alexanderramin/sitepilot/internal/cms"
	"github.com/alexanderramin/sitepilot/internal/domain"
	"github.com/alexanderramin/sitepilot/internal/llm"
)

// Choice is one button offered with a prompt.
type Choice struct {
	Label   string
	Command Command
}

// Transport renders wizard output to a chat. Replies and button clicks come
// back through Wizard.HandleUpdate.
type Transport interface {
	Prompt(ctx context.Context, chatID, text string, choices []Choice) error
	Show(ctx context.Context, chatID, text string) error
	ShowAnimation(ctx context.Context, chatID, asset, caption string) error
}

// Animation assets shown while background work runs.
const (
	AnimationScanning = "scanning"
	AnimationThinking = "thinking"
	AnimationWriting  = "writing"
)

// Update is one inbound chat event: a button click (Command), a free-form
// reply (Text) or an upload (Images).
type Update struct {
	UserID  string
	ChatID  string
	Text    string
	Command string
	Images  []llm.Image
}

// SiteIntel discovers and summarizes web pages.
type SiteIntel interface {
	DiscoverPages(ctx context.Context, siteURL string) ([]string, error)
	AnalyzePage(ctx context.Context, pageURL string) (summary string, links []string, err error)
	SearchWeb(ctx context.Context, query string, maxResults int) ([]domain.ExternalLink, error)
}

// CMS verifies credentials and publishes articles.
type CMS interface {
	Verify(ctx context.Context, creds domain.CMSCredentials) error
	Publish(ctx context.Context, creds domain.CMSCredentials, post cms.Post) (*cms.Published, error)
}

// Runner runs project-scoped work with at most one task per key.
type Runner interface {
	Go(ctx context.Context, key string, fn func(ctx context.Context)) error
}

// Recorder receives wizard metrics.
type Recorder interface {
	StepCompleted(step, path string)
	StepFailed(step string)
	Dispatched(target string)
	UpdateHandled(kind string)
	UpdatePanicked()
}

type noopRecorder struct{}

func (noopRecorder) StepCompleted(string, string) {}
func (noopRecorder) StepFailed(string)            {}
func (noopRecorder) Dispatched(string)            {}
func (noopRecorder) UpdateHandled(string)         {}
func (noopRecorder) UpdatePanicked()              {}
