package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/starter/app"
	"github.com/dmitrymomot/starter/core/config"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the HTTP server until SIGINT or SIGTERM.

PostgreSQL is used when PG_CONN_URL is set and Redis when REDIS_URL is set;
otherwise state is kept in memory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg app.Config
			if err := config.Load(&cfg); err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
}
