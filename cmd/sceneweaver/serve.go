package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/sceneweaver/internal/cli"
	"github.com/aretw0/sceneweaver/internal/presentation/tui"
	httpAdapter "github.com/aretw0/sceneweaver/pkg/adapters/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the editor HTTP server",
	Long: `Starts the editor API for a canvas front end. Editing sessions keep their
drafts in the configured draft store and save to the configured scenario store.
Prometheus metrics are served at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *cli.App) error {
			sessions, err := app.Sessions()
			if err != nil {
				return err
			}

			port := app.Config.Server.Port
			if cmd.Flags().Changed("port") {
				port, _ = cmd.Flags().GetInt("port")
			}

			handler := httpAdapter.NewHandler(sessions,
				httpAdapter.WithStore(app.Store),
				httpAdapter.WithMetrics(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})),
				httpAdapter.WithLogger(app.Logger),
			)
			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx := cli.NewSignalContext(cmd.Context())
			defer ctx.Cancel()

			serverErrors := make(chan error, 1)
			go func() {
				tui.PrintBanner(os.Stderr)
				app.Logger.Info("editor server listening", "addr", srv.Addr, "store", app.Config.Store.Backend, "drafts", app.Config.Drafts.Backend)
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)
			case <-ctx.Done():
				app.Logger.Info("shutting down", "signal", ctx.Signal())
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					app.Logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
					return srv.Close()
				}
				app.Logger.Info("editor server stopped")
				return nil
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides server.port)")
}
