// Package cmd holds the command line interface of the starter binary.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/starter/core/logger"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "starter",
		Short: "Session-authenticated starter API",
		Long: `starter serves the JSON API with cookie sessions, CSRF protection,
login throttling, user management and notifications.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newUserCmd(),
	)
	return root
}

func cliLogger(level string) *slog.Logger {
	return logger.New(
		logger.WithDevelopment("starter"),
		logger.WithLevel(logger.ParseLevel(level)),
	)
}
