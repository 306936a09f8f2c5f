package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/alexanderramin/sitepilot/internal/console"
	"github.com/spf13/cobra"
)

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

func newChatCmd(app *App) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run the setup wizard in this terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			tr := console.NewTransport(cmd.OutOrStdout())
			w, err := app.NewWizard(tr)
			if err != nil {
				return fmt.Errorf("building wizard: %w", err)
			}
			repl := &console.REPL{
				Transport: tr,
				Handler:   w,
				UserID:    user,
				ChatID:    "console:" + user,
				In:        cmd.InOrStdin(),
				Out:       cmd.OutOrStdout(),
			}
			if app.Pool != nil {
				repl.Wait = app.Pool.Wait
			}
			runErr := repl.Run(ctx)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := app.shutdownPool(shutdownCtx); err != nil && runErr == nil {
				runErr = err
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&user, "user", defaultUser(), "User ID the projects belong to")
	return cmd
}
