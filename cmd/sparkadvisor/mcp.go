package main

import (
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/sparkadvisor/mcp"
)

func mcpCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the advisor tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath, appOptions{longRunning: true})
			if err != nil {
				return err
			}
			defer a.Close()

			a.logger.Info("mcp server listening on stdio")
			return mcp.NewServer(a.advisor, version, a.logger.Named("mcp")).Run(ctx)
		},
	}
}
