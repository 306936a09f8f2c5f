package cli

import (
	"context"
	"errors"

	"github.com/alexanderramin/sitepilot/internal/config"
	"github.com/alexanderramin/sitepilot/internal/metrics"
	"github.com/alexanderramin/sitepilot/internal/repository"
	"github.com/alexanderramin/sitepilot/internal/wizard"
	"github.com/alexanderramin/sitepilot/internal/worker"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

// App holds everything the commands need. main wires it.
type App struct {
	Config   config.Config
	Projects repository.ProjectRepo
	Articles repository.ArticleRepo
	Pool     *worker.Pool
	Metrics  *metrics.Metrics

	// NewWizard builds a wizard that talks through tr.
	NewWizard func(tr wizard.Transport) (*wizard.Wizard, error)

	// IsInteractive reports whether stdin is a terminal.
	IsInteractive func() bool

	// Confirm asks a yes/no question. Defaults to a huh confirm form.
	Confirm func(title string) (bool, error)
}

// NewRootCmd creates the top-level "sitepilot" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "sitepilot",
		Short: "Step-by-step setup of SEO content projects",
		Long: "sitepilot walks a site owner through the setup of an SEO content project:\n" +
			"scan, survey, competitors, links, visual and text style, CMS, test article\n" +
			"and content plan. Progress is saved after every step.",
		SilenceUsage: true,
	}

	root.AddCommand(
		newChatCmd(app),
		newServeCmd(app),
		newProjectCmd(app),
		newStepsCmd(),
	)
	return root
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) confirm(title string) (bool, error) {
	if a.Confirm != nil {
		return a.Confirm(title)
	}
	ok := false
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Delete").
				Negative("Cancel").
				Value(&ok),
		),
	).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

func (a *App) shutdownPool(ctx context.Context) error {
	if a.Pool == nil {
		return nil
	}
	return a.Pool.Close(ctx)
}
