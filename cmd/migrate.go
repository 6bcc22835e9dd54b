package cmd

import (
	"lendledger/database"

	"github.com/spf13/cobra"
)

func migrateCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "migrate",
		Short: "Manages database migrations",
	}
	c.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Applies all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return database.MigrateUp()
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Rolls back migrations, one by default",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				steps := "1"
				if len(args) == 1 {
					steps = args[0]
				}
				return database.MigrateDown(steps)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Shows the current migration version",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return database.MigrateStatus()
			},
		},
	)
	return c
}
