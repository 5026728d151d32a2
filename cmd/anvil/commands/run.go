package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/anvil/internal/app"
)

func (c *CLI) newRunCmd(force, dryRun *bool, parallelism *int, stopOnError *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "run [targets...]",
		Short: "Build the given targets and their dependencies",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}

			stats, err := c.app.Run(cmd.Context(), args, app.RunOptions{
				Force:       *force,
				DryRun:      *dryRun,
				Parallelism: *parallelism,
				StopOnError: *stopOnError,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"built %d, skipped %d, failed %d of %d targets in %s\n",
				stats.BuiltTargets, stats.SkippedTargets, stats.FailedTargets,
				stats.TotalTargets, stats.ElapsedDuration)
			return nil
		},
	}
}
