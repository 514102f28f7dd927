// Package cmd defines and implements the CLI commands for the intel-agent
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agent-007-kali/intel-agent/internal/agent"
	"github.com/agent-007-kali/intel-agent/internal/api"
	"github.com/agent-007-kali/intel-agent/internal/app"
	"github.com/agent-007-kali/intel-agent/internal/config"
	"github.com/agent-007-kali/intel-agent/internal/intel"
	"github.com/agent-007-kali/intel-agent/internal/orchestrator"
	"github.com/agent-007-kali/intel-agent/internal/summarizer/ollama"
)

var cfgFile string

// appKeyType is the key for storing the App in the command context.
type appKeyType string

const appKey appKeyType = "app"

// App is the application surface the commands use. Defined here as an
// interface so tests can substitute a lighter assembly for *app.App.
type App interface {
	Close()
	Logger() *zap.Logger
	Config() config.Config
	Store() intel.JobStore
	Summarizer() *ollama.Client
	Runner() *agent.Runner
	Orchestrator() *orchestrator.Orchestrator
	Server() *api.Server
}

// newApp is the application factory. It is a variable so tests can swap in
// a mock factory.
var newApp = func(ctx context.Context) (App, error) {
	return app.New(ctx, cfgFile)
}

// newRootCmd creates and configures the root command. Services are built
// in PersistentPreRunE so every subcommand finds a fully wired App in its
// context.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intel-agent",
		Short: "Monitors competitor pages and emails intelligence reports.",
		Long: `intel-agent polls each subscriber's competitor pages on a fixed
interval, detects content changes by hashing the extracted text, asks a
local inference server for an analysis of what changed, and emails the
result to the subscriber. A small HTTP server accepts payment-provider
webhooks that activate accounts.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (environment variables are used when unset)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newSetupCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
