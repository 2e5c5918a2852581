package main

import (
	"github.com/phrazzld/summa/internal/platform/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCmd(load runtimeLoader) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate <up|down|reset|status|version>",
		Short:     "Run database migrations",
		ValidArgs: postgres.MigrationCommands,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load(cmd)
			if err != nil {
				return err
			}

			db, err := openDatabase(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			return postgres.Migrate(cmd.Context(), db, args[0], log)
		},
	}
}
