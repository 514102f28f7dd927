// Package agent runs the per-job monitoring cycle: fetch, detect, summarize,
// persist, notify.
package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/agent-007-kali/intel-agent/internal/detector"
	"github.com/agent-007-kali/intel-agent/internal/intel"
	"github.com/agent-007-kali/intel-agent/internal/metrics"
)

// Config controls prompt construction.
type Config struct {
	// MaxPromptChars caps how much combined snapshot text reaches the
	// model. Small local models choke on long contexts.
	MaxPromptChars int
}

// Runner executes one monitoring cycle for one job. It is synchronous by
// design: collapsing fetch, hash, summarize, persist and notify into a
// single call keeps the blast radius of any failure to a single user.
type Runner struct {
	fetcher    intel.Fetcher
	detector   *detector.Detector
	summarizer intel.Summarizer
	notifier   intel.Notifier
	store      intel.JobStore
	clock      intel.Clock
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Runner.
func New(
	fetcher intel.Fetcher,
	det *detector.Detector,
	summarizer intel.Summarizer,
	notifier intel.Notifier,
	store intel.JobStore,
	clock intel.Clock,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	if cfg.MaxPromptChars <= 0 {
		cfg.MaxPromptChars = 2000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		fetcher:    fetcher,
		detector:   det,
		summarizer: summarizer,
		notifier:   notifier,
		store:      store,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
}

// RunCycle processes one job to a terminal outcome. It never returns an
// error and never panics past its own frame; every failure is folded into
// the Outcome so the orchestrator can keep going with the next job.
func (r *Runner) RunCycle(ctx context.Context, job intel.MonitoringJob) intel.Outcome {
	log := r.logger.With(zap.String("user", job.UserEmail))

	urls := job.TargetURLs()
	if len(urls) == 0 {
		log.Info("no URLs configured, skipping")
		return intel.Outcome{Status: intel.OutcomeSkipped, Reason: intel.ReasonNoURLs}
	}

	snapshots := r.scrape(ctx, log, urls)
	if len(snapshots) == 0 {
		log.Warn("every fetch came back empty")
		return intel.Outcome{Status: intel.OutcomeError, Reason: intel.ReasonScrapeFailed}
	}

	combined := r.detector.Combine(snapshots)
	digest, changed, err := r.detector.Detect(combined, job.LastContentHash)
	if err != nil {
		return intel.Outcome{Status: intel.OutcomeError, Reason: "hash_failed", Err: err}
	}

	if !changed {
		log.Info("no changes detected", zap.String("hash", digest))
		if err := r.store.TouchJob(ctx, job.UserEmail, r.clock.Now()); err != nil {
			// The cycle result is still "no changes"; the stale
			// timestamp only costs freshness reporting.
			log.Warn("failed to refresh check timestamp", zap.Error(err))
		}
		return intel.Outcome{Status: intel.OutcomeNoChanges}
	}

	log.Info("changes detected, requesting analysis", zap.String("hash", digest))
	report := r.summarize(ctx, log, combined)

	if err := r.store.SaveReport(ctx, job.UserEmail, digest, report, r.clock.Now()); err != nil {
		log.Error("failed to persist report", zap.Error(err))
		return intel.Outcome{Status: intel.OutcomeError, Reason: intel.ReasonPersistFailed, Err: err}
	}

	if err := r.notifier.Send(ctx, job.UserEmail, report, urls); err != nil {
		// Email is best-effort; the report is already persisted and
		// reachable through the dashboard.
		log.Warn("failed to email report", zap.Error(err))
	}

	return intel.Outcome{Status: intel.OutcomeSuccess, Report: report}
}

// Simulate fabricates a content change for one user and pushes it through
// the summarize, persist and notify stages. Meant for onboarding drills
// against a live stack.
func (r *Runner) Simulate(ctx context.Context, userEmail string) intel.Outcome {
	log := r.logger.With(zap.String("user", userEmail), zap.Bool("simulated", true))

	now := r.clock.Now()
	snapshot := intel.Snapshot{
		URL: "https://simulated.example/competitor",
		Text: fmt.Sprintf(
			"Simulated competitor update at %s. New product launched: Agentic Swarm v2.0. Pricing changed to $49.99.",
			now.Format("2006-01-02T15:04:05Z"),
		),
	}

	combined := r.detector.Combine([]intel.Snapshot{snapshot})
	digest, err := r.detector.DigestText(combined)
	if err != nil {
		return intel.Outcome{Status: intel.OutcomeError, Reason: "hash_failed", Err: err}
	}

	report := r.summarize(ctx, log, combined)

	if err := r.store.SaveReport(ctx, userEmail, digest, report, now); err != nil {
		log.Error("failed to persist simulated report", zap.Error(err))
		return intel.Outcome{Status: intel.OutcomeError, Reason: intel.ReasonPersistFailed, Err: err}
	}
	if err := r.notifier.Send(ctx, userEmail, report, []string{snapshot.URL}); err != nil {
		log.Warn("failed to email simulated report", zap.Error(err))
	}
	return intel.Outcome{Status: intel.OutcomeSuccess, Report: report}
}

func (r *Runner) scrape(ctx context.Context, log *zap.Logger, urls []string) []intel.Snapshot {
	snapshots := make([]intel.Snapshot, 0, len(urls))
	for _, url := range urls {
		result := r.fetcher.Fetch(ctx, url)
		metrics.RecordPageFetch(result.Kind.String())
		if !result.OK() {
			log.Warn("fetch produced no content",
				zap.String("url", url),
				zap.String("result", result.Kind.String()),
				zap.Int("status", result.StatusCode),
			)
			continue
		}
		snapshots = append(snapshots, intel.Snapshot{URL: url, Text: result.Text})
	}
	return snapshots
}

// summarize asks the model for a report. Summarizer failure degrades to an
// error-text report that still flows through persistence and notification;
// the data model does not distinguish "no report" from "error report".
func (r *Runner) summarize(ctx context.Context, log *zap.Logger, combined string) string {
	report, err := r.summarizer.Generate(ctx, r.buildPrompt(combined))
	if err != nil {
		log.Error("analysis failed", zap.Error(err))
		return fmt.Sprintf("Analysis unavailable: %v", err)
	}
	metrics.RecordReport()
	return report
}

func (r *Runner) buildPrompt(combined string) string {
	excerpt := combined
	if runes := []rune(excerpt); len(runes) > r.cfg.MaxPromptChars {
		excerpt = string(runes[:r.cfg.MaxPromptChars])
	}
	return fmt.Sprintf(
		"You are an expert competitive intelligence analyst. Analyze these competitor websites:\n%s\nFocus on pricing, new products, and marketing changes. Keep it concise.",
		excerpt,
	)
}
