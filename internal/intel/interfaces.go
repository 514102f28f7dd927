package intel

import (
	"context"
	"time"
)

// Fetcher retrieves the text content of a single page. Implementations never
// return an error: every failure mode is encoded in the FetchResult kind so
// the cycle can log it and continue.
type Fetcher interface {
	Fetch(ctx context.Context, url string) FetchResult
}

// Summarizer turns a prompt into a text completion.
type Summarizer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Notifier delivers a plain-text report to a single recipient.
type Notifier interface {
	Send(ctx context.Context, recipient, report string, urls []string) error
}

// Hasher digests canonical snapshot text for change detection. The digest
// only needs to be collision-resistant enough to detect content drift; it
// carries no integrity or security property.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// JobStore is the persistence contract for monitoring jobs and
// subscriptions.
type JobStore interface {
	// InitSchema creates the backing tables when they do not exist yet.
	// Idempotent; run by the setup command before first use.
	InitSchema(ctx context.Context) error

	// ListActiveJobs returns jobs with is_active set whose owning
	// subscription is active, in stored order.
	ListActiveJobs(ctx context.Context) ([]MonitoringJob, error)

	// SaveReport writes hash, report and check timestamp in a single
	// update so the three never drift apart.
	SaveReport(ctx context.Context, userEmail, contentHash, report string, checkedAt time.Time) error

	// TouchJob refreshes last_check_at without touching hash or report.
	TouchJob(ctx context.Context, userEmail string, checkedAt time.Time) error

	// UpsertSubscription creates or updates a subscription row keyed by
	// email.
	UpsertSubscription(ctx context.Context, sub Subscription) error

	// ActivateJob creates or reactivates the monitoring job row for a
	// user, leaving URL slots untouched for later configuration.
	ActivateJob(ctx context.Context, userEmail string) error

	// CountJobs reports the total number of monitoring job rows. Used by
	// the health probe.
	CountJobs(ctx context.Context) (int64, error)

	Close()
}

// Clock abstracts wall time and sleeping so the orchestrator can be tested
// without real delays. Sleep returns early when the context is canceled.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration)
}
