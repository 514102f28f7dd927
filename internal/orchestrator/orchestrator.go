// Package orchestrator drives the polling loop over all eligible
// monitoring jobs.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agent-007-kali/intel-agent/internal/intel"
	"github.com/agent-007-kali/intel-agent/internal/metrics"
)

// CycleRunner is the per-job unit of work.
type CycleRunner interface {
	RunCycle(ctx context.Context, job intel.MonitoringJob) intel.Outcome
}

// Config controls loop pacing.
type Config struct {
	// Interval is the sleep between full batches.
	Interval time.Duration
	// JobDelay is the pause between jobs within a batch, to avoid
	// bursting the inference server and the monitored sites.
	JobDelay time.Duration
}

// Orchestrator runs batches of job cycles serially. There is deliberately
// no worker pool: a single local model can only serve one generation at a
// time anyway, and serial execution keeps failure isolation trivial.
type Orchestrator struct {
	store  intel.JobStore
	runner CycleRunner
	clock  intel.Clock
	cfg    Config
	logger *zap.Logger
}

// New constructs an Orchestrator.
func New(store intel.JobStore, runner CycleRunner, clock intel.Clock, cfg Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:  store,
		runner: runner,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
	}
}

// Run loops forever: process a batch, sleep the interval, repeat. It only
// returns when the context is canceled.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("orchestrator started", zap.Duration("interval", o.cfg.Interval))
	for {
		if _, err := o.RunOnce(ctx); err != nil {
			// Storage hiccups are transient; the next pass retries
			// the listing.
			o.logger.Error("batch failed", zap.Error(err))
		}
		o.logger.Info("batch complete, sleeping", zap.Duration("for", o.cfg.Interval))
		o.clock.Sleep(ctx, o.cfg.Interval)
		if ctx.Err() != nil {
			o.logger.Info("orchestrator stopping")
			return ctx.Err()
		}
	}
}

// RunOnce processes a single batch and returns how many jobs it handled.
// There is no batch sleep, which makes it the single-shot test entry point.
func (o *Orchestrator) RunOnce(ctx context.Context) (int, error) {
	jobs, err := o.store.ListActiveJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active jobs: %w", err)
	}
	if len(jobs) == 0 {
		o.logger.Info("no active jobs found")
		metrics.SetBatchSize(0)
		return 0, nil
	}

	o.logger.Info("processing batch", zap.Int("jobs", len(jobs)))
	processed := 0
	for i, job := range jobs {
		outcome := o.runCycleSafely(ctx, job)
		processed++
		metrics.RecordJobCycle(string(outcome.Status))
		o.logOutcome(job, outcome)

		if i < len(jobs)-1 {
			o.clock.Sleep(ctx, o.cfg.JobDelay)
		}
		if ctx.Err() != nil {
			break
		}
	}
	metrics.SetBatchSize(processed)
	return processed, nil
}

// runCycleSafely contains a panicking cycle to its own job. One user's bad
// page or bad data must never take down the batch.
func (o *Orchestrator) runCycleSafely(ctx context.Context, job intel.MonitoringJob) (outcome intel.Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("job cycle panicked",
				zap.String("user", job.UserEmail),
				zap.Any("panic", rec),
			)
			outcome = intel.Outcome{
				Status: intel.OutcomeError,
				Reason: intel.ReasonPanic,
				Err:    fmt.Errorf("job cycle panicked: %v", rec),
			}
		}
	}()
	return o.runner.RunCycle(ctx, job)
}

func (o *Orchestrator) logOutcome(job intel.MonitoringJob, outcome intel.Outcome) {
	fields := []zap.Field{
		zap.String("user", job.UserEmail),
		zap.String("outcome", string(outcome.Status)),
	}
	if outcome.Reason != "" {
		fields = append(fields, zap.String("reason", outcome.Reason))
	}
	if outcome.Err != nil {
		fields = append(fields, zap.Error(outcome.Err))
	}
	switch outcome.Status {
	case intel.OutcomeError:
		o.logger.Error("job cycle finished", fields...)
	default:
		o.logger.Info("job cycle finished", fields...)
	}
}
