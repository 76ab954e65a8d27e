package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/braindrive/library/internal/mcp"
	"github.com/braindrive/library/internal/observability"
	"github.com/braindrive/library/internal/scope"
	"github.com/braindrive/library/pkg/config"
)

// NewMCPCommand creates the MCP stdio server command.
func NewMCPCommand() *cobra.Command {
	var (
		dotenvPath string
		userID     string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP stdio server for one tenant library",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes the full library tool surface for a single tenant,
resolved from --user under the configured library path.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(dotenvPath)
			if err != nil {
				return err
			}

			providers, err := initObservability(cfg, observability.ModeMCP, debug)
			if err != nil {
				return err
			}

			defer func() {
				shutdownErr := providers.Shutdown(context.Background())
				if shutdownErr != nil {
					providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
				}
			}()

			red, err := observability.NewREDMetrics(providers.Meter)
			if err != nil {
				return err
			}

			root, err := scope.EnsureLibraryRoot(cfg.Library.Path, userID)
			if err != nil {
				return err
			}

			srv, err := mcp.NewServer(mcp.ServerDeps{
				LibraryRoot:  root,
				TemplatePath: cfg.Library.BaseTemplatePath,
				Logger:       providers.Logger,
				Metrics:      red,
				Tracer:       providers.Tracer,
			})
			if err != nil {
				return err
			}

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().StringVar(&dotenvPath, "env-file", ".env", "path to a .env fallback file")
	cmd.Flags().StringVar(&userID, "user", "", "tenant user id owning the library (required)")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging to stderr")

	_ = cmd.MarkFlagRequired("user")

	return cmd
}
