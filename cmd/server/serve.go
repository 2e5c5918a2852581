package main

import (
	"github.com/phrazzld/summa/internal/platform/postgres"
	"github.com/spf13/cobra"
)

func newServeCmd(load runtimeLoader) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background summarization workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			db, err := openDatabase(ctx, cfg, log)
			if err != nil {
				return err
			}

			if migrate {
				if err := postgres.Migrate(ctx, db, "up", log); err != nil {
					_ = db.Close()
					return err
				}
			}

			app, err := newApplication(ctx, cfg, log, db)
			if err != nil {
				_ = db.Close()
				return err
			}

			if err := app.startTaskRunner(); err != nil {
				app.cleanup()
				return err
			}

			return app.startHTTPServer(ctx, setupRouter(app.routerDeps()))
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before starting")
	return cmd
}
