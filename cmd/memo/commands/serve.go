package commands

import (
	"github.com/spf13/cobra"

	"github.com/code-payments/memo-server/pkg/app"
	"github.com/code-payments/memo-server/pkg/memo/server"
)

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the memo HTTP API, relaying memos through the configured keypair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(server.NewApp(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "configuration file path")
	return cmd
}
