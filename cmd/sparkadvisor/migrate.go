package main

import (
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/sparkadvisor/config"
	"github.com/mohammad-safakhou/sparkadvisor/internal/runtime"
	"github.com/mohammad-safakhou/sparkadvisor/internal/store"
)

func migrateCMD(cfgPath *string) *cobra.Command {
	var migDir string
	var direction string
	var steps int

	var migrate = &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(*cfgPath)
			dsn, err := runtime.BuildPostgresDSN(cfg)
			if err != nil {
				return err
			}
			if migDir == "" {
				migDir = cfg.Server.MigrationsDir
			}
			if err := store.Migrate(migDir, dsn, direction, steps); err != nil {
				return err
			}
			cmd.Printf("migrations %s applied from %s\n", direction, migDir)
			return nil
		},
	}
	migrate.Flags().StringVar(&migDir, "dir", "", "migrations source (default server.migrations_dir, file://migrations)")
	migrate.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")

	return migrate
}
