package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newSetupCmd creates the 'setup' subcommand: the one-shot database
// bootstrap run before the monitor is started for the first time.
func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Creates the database schema",
		Long: `Creates the monitoring_jobs and subscriptions tables when they do
not exist yet. Idempotent; safe to run against an initialized database.`,

		RunE: runSetupCommand,
	}
}

func runSetupCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	if err := appInstance.Store().InitSchema(cmd.Context()); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "database initialized")
	return nil
}
