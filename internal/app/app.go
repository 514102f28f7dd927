// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/agent-007-kali/intel-agent/internal/agent"
	"github.com/agent-007-kali/intel-agent/internal/api"
	"github.com/agent-007-kali/intel-agent/internal/clock/system"
	"github.com/agent-007-kali/intel-agent/internal/config"
	"github.com/agent-007-kali/intel-agent/internal/detector"
	collyfetcher "github.com/agent-007-kali/intel-agent/internal/fetcher/colly"
	"github.com/agent-007-kali/intel-agent/internal/hash/xxhash"
	"github.com/agent-007-kali/intel-agent/internal/intel"
	"github.com/agent-007-kali/intel-agent/internal/logging"
	"github.com/agent-007-kali/intel-agent/internal/metrics"
	"github.com/agent-007-kali/intel-agent/internal/notifier/smtp"
	"github.com/agent-007-kali/intel-agent/internal/orchestrator"
	"github.com/agent-007-kali/intel-agent/internal/storage/postgres"
	"github.com/agent-007-kali/intel-agent/internal/summarizer/ollama"
)

// App holds all the shared, long-lived services for the application. It is
// initialized once at startup and passed to the commands that need it.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	store      intel.JobStore
	summarizer *ollama.Client

	runner       *agent.Runner
	orchestrator *orchestrator.Orchestrator
	server       *api.Server
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Store exposes the job and subscription store.
func (a *App) Store() intel.JobStore { return a.store }

// Summarizer exposes the inference client, mainly for health probes.
func (a *App) Summarizer() *ollama.Client { return a.summarizer }

// Runner returns the per-job cycle runner.
func (a *App) Runner() *agent.Runner { return a.runner }

// Orchestrator returns the batch loop.
func (a *App) Orchestrator() *orchestrator.Orchestrator { return a.orchestrator }

// Server returns the webhook HTTP server.
func (a *App) Server() *api.Server { return a.server }

// New loads configuration from configPath (environment only when empty),
// connects to Postgres and wires every service. It fails fast: a process
// that cannot reach its database has nothing useful to do.
func New(ctx context.Context, configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics.Init()

	logger.Info("connecting to Postgres")
	store, err := postgres.NewStore(ctx, postgres.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime(),
	})
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Monitor.UserAgent,
		Timeout:   cfg.FetchTimeout(),
		MaxChars:  cfg.Monitor.MaxSnapshotChars,
	}, logger)

	summarizer := ollama.New(ollama.Config{
		BaseURL: cfg.Ollama.BaseURL,
		Model:   cfg.Ollama.Model,
		Timeout: cfg.InferenceTimeout(),
	}, logger)

	mailer := smtp.New(smtp.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, logger)

	clk := system.New()
	det := detector.New(xxhash.New())

	runner := agent.New(fetcher, det, summarizer, mailer, store, clk,
		agent.Config{MaxPromptChars: cfg.Monitor.MaxPromptChars}, logger)

	orch := orchestrator.New(store, runner, clk, orchestrator.Config{
		Interval: cfg.Interval(),
		JobDelay: cfg.JobDelay(),
	}, logger)

	server := api.NewServer(store, cfg.Webhook.Plan, logger)

	logger.Info("application services initialized",
		zap.String("model", cfg.Ollama.Model),
		zap.Int("port", cfg.Server.Port))

	return &App{
		cfg:          cfg,
		logger:       logger,
		store:        store,
		summarizer:   summarizer,
		runner:       runner,
		orchestrator: orch,
		server:       server,
	}, nil
}

// Close gracefully shuts down all services. It is called by a Cobra hook
// after the command finishes execution.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	a.store.Close()
	// Flushing the logger is best effort; stderr sync fails on some
	// platforms and there is nothing to do about it.
	_ = a.logger.Sync()
}
