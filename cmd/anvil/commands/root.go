// Package commands implements the CLI commands for the anvil build tool.
package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/anvil/internal/app"
)

// CLI represents the command line interface for anvil.
type CLI struct {
	app     *app.App
	rootCmd *cobra.Command
}

// New creates a new CLI instance with the given app.
func New(a *app.App) *CLI {
	rootCmd := &cobra.Command{
		Use:           "anvil",
		Short:         "An incremental build engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var (
		force       bool
		dryRun      bool
		parallelism int
		stopOnError bool
	)
	rootCmd.PersistentFlags().BoolVar(&force, "force", false, "Rebuild requested targets regardless of cache state")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Report what would run without running it")
	rootCmd.PersistentFlags().IntVarP(&parallelism, "jobs", "j", 0, "Maximum number of targets to build concurrently (0 = number of CPUs)")
	rootCmd.PersistentFlags().BoolVar(&stopOnError, "stop-on-error", true, "Stop scheduling new targets after the first failure")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newRunCmd(&force, &dryRun, &parallelism, &stopOnError))
	rootCmd.AddCommand(c.newVersionCmd())
	rootCmd.AddCommand(c.newGraphCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOut redirects the root command's output stream. Used for testing.
func (c *CLI) SetOut(w io.Writer) {
	c.rootCmd.SetOut(w)
}
