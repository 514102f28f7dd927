package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newHealthCmd creates the 'health' subcommand: a preflight probe of the
// database and the inference server, meant to run before the monitor is
// started for real.
func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Checks database and inference server connectivity",

		RunE: runHealthCommand,
	}
}

func runHealthCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	healthy := true

	count, err := appInstance.Store().CountJobs(ctx)
	if err != nil {
		healthy = false
		fmt.Fprintf(out, "database: FAIL (%v)\n", err)
	} else {
		fmt.Fprintf(out, "database: OK (%d monitoring jobs)\n", count)
	}

	model := appInstance.Config().Ollama.Model
	hasModel, err := appInstance.Summarizer().HasModel(ctx)
	switch {
	case err != nil:
		healthy = false
		fmt.Fprintf(out, "inference: FAIL (%v)\n", err)
	case !hasModel:
		healthy = false
		fmt.Fprintf(out, "inference: FAIL (model %q not installed)\n", model)
	default:
		fmt.Fprintf(out, "inference: OK (model %q available)\n", model)
	}

	if !healthy {
		return fmt.Errorf("health check failed")
	}
	return nil
}
