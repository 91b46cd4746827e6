package serve

import (
	"errors"
	"fmt"

	"github.com/netrixframework/qagent/agent"
	"github.com/netrixframework/qagent/apiserver"
	"github.com/netrixframework/qagent/config"
	"github.com/netrixframework/qagent/log"
	"github.com/netrixframework/qagent/qtable"
	"github.com/netrixframework/qagent/util"
	"github.com/spf13/cobra"
)

// ServeCmd returns the command serving the configured agent over HTTP
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured agent to an external training loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			termCh := util.Term()

			conf, err := config.ParseConfig(config.ConfigPath)
			if err != nil {
				return fmt.Errorf("failed to parse config: %s", err)
			}
			log.Init(conf.LogConfig)
			defer log.Destroy()

			a, err := agent.New(&conf.Agent, log.DefaultLogger)
			if err != nil {
				return fmt.Errorf("failed to initialize agent: %s", err)
			}
			if conf.Agent.LoadOnStart && conf.Agent.ModelPath != "" {
				err := a.LoadModel(conf.Agent.ModelPath)
				if errors.Is(err, qtable.ErrModelNotFound) {
					log.With(log.LogParams{"path": conf.Agent.ModelPath}).Warn("No model to load, starting empty")
				} else if err != nil {
					return fmt.Errorf("failed to load model: %s", err)
				}
			}

			server := apiserver.NewAPIServer(conf, a, log.DefaultLogger)
			if err := server.Start(); err != nil {
				return fmt.Errorf("failed to start server: %s", err)
			}

			select {
			case <-termCh:
			case <-server.QuitCh():
			}
			server.Stop()

			if conf.Agent.SaveOnExit && conf.Agent.ModelPath != "" {
				if err := a.SaveModel(conf.Agent.ModelPath); err != nil {
					return fmt.Errorf("failed to save model: %s", err)
				}
			}
			return nil
		},
	}
}
