package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agent-007-kali/intel-agent/internal/intel"
)

// newRunCmd creates the 'run' subcommand: the monitoring loop itself.
func newRunCmd() *cobra.Command {
	var (
		testMode      bool
		simulateEmail string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Starts the monitoring loop",
		Long: `Polls every active monitoring job on the configured interval. With
--test a single batch is processed and the command exits; with
--simulate a fabricated content change is pushed through the full
pipeline for one user, which exercises inference, persistence and
email delivery end to end.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd, testMode, simulateEmail)
		},
	}

	cmd.Flags().BoolVar(&testMode, "test", false, "process one batch and exit")
	cmd.Flags().StringVar(&simulateEmail, "simulate", "",
		"push a simulated change through the pipeline for this user and exit")

	return cmd
}

func runMonitor(cmd *cobra.Command, testMode bool, simulateEmail string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger()

	if simulateEmail != "" {
		outcome := appInstance.Runner().Simulate(cmd.Context(), simulateEmail)
		if outcome.Status != intel.OutcomeSuccess {
			return fmt.Errorf("simulation for %s ended with %s (%s)",
				simulateEmail, outcome.Status, outcome.Reason)
		}
		logger.Info("simulation complete", zap.String("user", simulateEmail))
		return nil
	}

	if testMode {
		processed, err := appInstance.Orchestrator().RunOnce(cmd.Context())
		if err != nil {
			return fmt.Errorf("run batch: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "processed %d jobs\n", processed)
		return nil
	}

	logger.Info("starting monitoring loop",
		zap.Duration("interval", appInstance.Config().Interval()))
	if err := appInstance.Orchestrator().Run(cmd.Context()); err != nil &&
		!errors.Is(err, context.Canceled) {
		return fmt.Errorf("monitoring loop: %w", err)
	}
	logger.Info("monitoring loop stopped")
	return nil
}
