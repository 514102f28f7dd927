package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agent-007-kali/intel-agent/internal/intel"
)

type fakeStore struct {
	intel.JobStore

	jobs    []intel.MonitoringJob
	listErr error
	calls   int
}

func (s *fakeStore) ListActiveJobs(context.Context) ([]intel.MonitoringJob, error) {
	s.calls++
	return s.jobs, s.listErr
}

type fakeRunner struct {
	outcomes map[string]intel.Outcome
	seen     []string
	panicOn  string
}

func (r *fakeRunner) RunCycle(_ context.Context, job intel.MonitoringJob) intel.Outcome {
	r.seen = append(r.seen, job.UserEmail)
	if job.UserEmail == r.panicOn {
		panic("boom")
	}
	if o, ok := r.outcomes[job.UserEmail]; ok {
		return o
	}
	return intel.Outcome{Status: intel.OutcomeSuccess}
}

type countingClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *countingClock) Now() time.Time { return c.now }

func (c *countingClock) Sleep(_ context.Context, d time.Duration) {
	c.sleeps = append(c.sleeps, d)
}

func jobs(emails ...string) []intel.MonitoringJob {
	out := make([]intel.MonitoringJob, 0, len(emails))
	for _, e := range emails {
		out = append(out, intel.MonitoringJob{UserEmail: e, IsActive: true})
	}
	return out
}

func TestRunOnceProcessesEveryListedJob(t *testing.T) {
	t.Parallel()

	store := &fakeStore{jobs: jobs("a@b.com", "c@d.com", "e@f.com")}
	runner := &fakeRunner{}
	clock := &countingClock{now: time.Unix(1700000000, 0).UTC()}

	o := New(store, runner, clock, Config{Interval: time.Hour, JobDelay: 5 * time.Second}, zap.NewNop())
	count, err := o.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, count)
	assert.Equal(t, []string{"a@b.com", "c@d.com", "e@f.com"}, runner.seen)
	// Two pauses between three jobs; no batch interval sleep in RunOnce.
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, clock.sleeps)
}

func TestRunOnceWithNoJobs(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	o := New(store, &fakeRunner{}, &countingClock{}, Config{}, zap.NewNop())

	count, err := o.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRunOncePropagatesListErrors(t *testing.T) {
	t.Parallel()

	store := &fakeStore{listErr: errors.New("connection refused")}
	o := New(store, &fakeRunner{}, &countingClock{}, Config{}, zap.NewNop())

	_, err := o.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list active jobs")
}

func TestRunOnceSurvivesPanickingJob(t *testing.T) {
	t.Parallel()

	store := &fakeStore{jobs: jobs("a@b.com", "c@d.com")}
	runner := &fakeRunner{panicOn: "a@b.com"}
	o := New(store, runner, &countingClock{}, Config{}, zap.NewNop())

	count, err := o.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"a@b.com", "c@d.com"}, runner.seen)
}

func TestRunOnceStopsWhenContextCanceled(t *testing.T) {
	t.Parallel()

	store := &fakeStore{jobs: jobs("a@b.com", "c@d.com", "e@f.com")}
	runner := &fakeRunner{}
	ctx, cancel := context.WithCancel(context.Background())

	clock := &countingClock{}
	o := New(store, &cancelAfterFirst{inner: runner, cancel: cancel}, clock, Config{JobDelay: time.Second}, zap.NewNop())

	count, err := o.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

type cancelAfterFirst struct {
	inner  *fakeRunner
	cancel context.CancelFunc
}

func (c *cancelAfterFirst) RunCycle(ctx context.Context, job intel.MonitoringJob) intel.Outcome {
	out := c.inner.RunCycle(ctx, job)
	c.cancel()
	return out
}

func TestRunReturnsOnCanceledContext(t *testing.T) {
	t.Parallel()

	store := &fakeStore{jobs: jobs("a@b.com")}
	runner := &fakeRunner{}
	ctx, cancel := context.WithCancel(context.Background())

	clock := &cancelingClock{cancel: cancel}
	o := New(store, runner, clock, Config{Interval: time.Hour}, zap.NewNop())

	err := o.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, store.calls)
}

// cancelingClock cancels the context while "sleeping" the batch interval,
// simulating a shutdown signal arriving mid-sleep.
type cancelingClock struct {
	cancel context.CancelFunc
}

func (c *cancelingClock) Now() time.Time { return time.Unix(0, 0) }

func (c *cancelingClock) Sleep(_ context.Context, d time.Duration) {
	if d >= time.Hour {
		c.cancel()
	}
}
