// Package main provides the entry point for the braindrive-library server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/braindrive/library/cmd/braindrive-library/commands"
	"github.com/braindrive/library/pkg/version"
)

func main() {
	version.Init()

	rootCmd := &cobra.Command{
		Use:   "braindrive-library",
		Short: "BrainDrive Library - multi-tenant markdown library service",
		Long: `BrainDrive Library serves per-user markdown libraries with git-backed
mutation history and an activity journal.

Commands:
  serve     Start the HTTP tool facade
  mcp       Start the MCP stdio server for one tenant library`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "braindrive-library %s (commit: %s, built: %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}
}
