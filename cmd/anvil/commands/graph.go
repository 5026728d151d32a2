package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/anvil/internal/core/domain"
)

func (c *CLI) newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print the topological build order, or the cycle blocking it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dag, err := c.app.LoadGraph()
			if err != nil {
				return err
			}

			if cycle := dag.DetectCycles(); cycle.HasCycle {
				fmt.Fprintf(cmd.OutOrStdout(), "cycle detected: %s\n", domain.CyclePathString(cycle.Path))
				return nil
			}

			order, err := dag.TopologicalSort()
			if err != nil {
				return err
			}
			for i, name := range order {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, name.String())
			}
			return nil
		},
	}
}
