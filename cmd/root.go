package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// Execute runs the command line with ctx cancelled on shutdown
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the command tree; with no subcommand it serves the HTTP API
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "lendledger",
		Short:         "Reconciles daily interest accrual for lending positions",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveFunc,
	}
	root.AddCommand(serveCommand(), reportCommand(), migrateCommand())
	return root
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serves the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  serveFunc,
	}
}

func serveFunc(c *cobra.Command, _ []string) error {
	return Run(c.Context())
}
