package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/starter/core/config"
	"github.com/dmitrymomot/starter/integration/database/pg"
	"github.com/dmitrymomot/starter/migrations"
)

func newMigrateCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg pg.Config
			if err := config.Load(&cfg); err != nil {
				return err
			}

			pool, err := pg.Connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			return pg.Migrate(cmd.Context(), pool, migrations.FS, cfg, cliLogger(logLevel))
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	return cmd
}
