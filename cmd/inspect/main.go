package inspect

import (
	"encoding/json"
	"fmt"

	"github.com/netrixframework/qagent/config"
	"github.com/netrixframework/qagent/log"
	"github.com/netrixframework/qagent/qtable"
	"github.com/spf13/cobra"
)

// InspectCmd returns the command printing the contents of a model file
func InspectCmd() *cobra.Command {
	var entries bool
	cmd := &cobra.Command{
		Use:   "inspect [model_path]",
		Short: "Print a summary of a saved value table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Init(config.DefaultLogConfig())
			defer log.Destroy()

			table := qtable.NewValueTable()
			if err := table.Load(args[0]); err != nil {
				return fmt.Errorf("failed to load model: %w", err)
			}
			log.With(log.LogParams{
				"path":    args[0],
				"states":  len(table.States()),
				"entries": table.Len(),
			}).Info("Loaded model")

			if !entries {
				return nil
			}
			out := cmd.OutOrStdout()
			for _, e := range table.Entries() {
				b, err := json.Marshal(e)
				if err != nil {
					return fmt.Errorf("failed to encode entry %s %s: %w", e.State, e.Action, err)
				}
				fmt.Fprintln(out, string(b))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&entries, "entries", "e", false, "Print every entry as a JSON line")
	return cmd
}
