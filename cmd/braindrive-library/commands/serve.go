// Package commands wires the service commands for the cobra root.
package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/braindrive/library/internal/observability"
	"github.com/braindrive/library/internal/server"
	"github.com/braindrive/library/pkg/config"
)

// NewServeCommand creates the HTTP server command.
func NewServeCommand() *cobra.Command {
	var (
		dotenvPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP tool facade",
		Long: `Start the HTTP server exposing every library tool as a POST route,
plus the tool catalogue, health, and Prometheus metrics endpoints.

Requests are scoped per tenant through the X-BrainDrive-User-Id header.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(dotenvPath)
			if err != nil {
				return err
			}

			providers, err := initObservability(cfg, observability.ModeServe, debug)
			if err != nil {
				return err
			}

			defer func() {
				shutdownErr := providers.Shutdown(context.Background())
				if shutdownErr != nil {
					providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
				}
			}()

			metricsHandler, meterProvider, err := observability.PrometheusHandler()
			if err != nil {
				return err
			}

			red, err := observability.NewREDMetrics(meterProvider.Meter("braindrive-library"))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cobraCmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(cfg, providers.Logger,
				server.WithTracer(providers.Tracer),
				server.WithMetrics(red),
				server.WithMetricsHandler(metricsHandler),
			)

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&dotenvPath, "env-file", ".env", "path to a .env fallback file")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	return cmd
}
