package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexanderramin/sitepilot/internal/httpapi"
	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the wizard over HTTP",
		Long: "Accepts chat updates on POST /v1/updates and queues replies per chat on\n" +
			"GET /v1/chats/{chatID}/outbox. Also serves /metrics and /healthz.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = app.Config.HTTP.Addr
			}
			outbox := httpapi.NewOutbox(httpapi.DefaultOutboxLimit)
			w, err := app.NewWizard(outbox)
			if err != nil {
				return fmt.Errorf("building wizard: %w", err)
			}
			srv := &httpapi.Server{Updates: w, Outbox: outbox}
			if app.Metrics != nil {
				srv.Metrics = app.Metrics.Handler()
			}
			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           httpapi.NewHandler(srv),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				errc <- httpSrv.ListenAndServe()
			}()
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", addr)

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serving http: %w", err)
				}
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutting down http: %w", err)
			}
			return app.shutdownPool(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}
