package cmd

import (
	"github.com/netrixframework/qagent/cmd/inspect"
	"github.com/netrixframework/qagent/cmd/serve"
	"github.com/netrixframework/qagent/config"
	"github.com/spf13/cobra"
)

// RootCmd returns the root cobra command of the agent tool
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qagent",
		Short: "Tool to serve and inspect tabular agents",
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.PersistentFlags().StringVarP(&config.ConfigPath, "config", "c", "config.json", "Config file path")
	cmd.AddCommand(serve.ServeCmd())
	cmd.AddCommand(inspect.InspectCmd())
	return cmd
}
