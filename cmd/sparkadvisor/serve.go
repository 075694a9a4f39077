package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	srv "github.com/mohammad-safakhou/sparkadvisor/internal/server"
)

func serveCMD(cfgPath *string) *cobra.Command {
	var serveAddr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath, appOptions{longRunning: true})
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.cfg.Server
			if serveAddr != "" {
				cfg.Address = serveAddr
			}
			a.logger.Info("starting sparkadvisor", zap.String("version", version), zap.String("addr", cfg.Address))
			return srv.New(a.advisor, cfg, a.registry, a.logger.Named("http")).Run(ctx)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.address)")

	return serve
}
