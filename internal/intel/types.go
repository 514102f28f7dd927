// Package intel defines the domain types and component contracts shared
// across the monitoring pipeline.
package intel

import (
	"strings"
	"time"
)

// SubscriptionActive is the subscription status that makes a job eligible
// for processing.
const SubscriptionActive = "active"

// MonitoringJob is one user's monitored URL set plus the state left behind
// by the previous cycle. Rows live in the monitoring_jobs table, keyed by
// the user's email address.
type MonitoringJob struct {
	UserEmail       string
	URL1            string
	URL2            string
	URL3            string
	IsActive        bool
	LastContentHash string
	LatestReport    string
	LastCheckAt     *time.Time
}

// TargetURLs returns the configured URLs with empty slots filtered out,
// preserving column order. The order matters: it fixes the canonical
// snapshot concatenation and therefore the content hash.
func (j MonitoringJob) TargetURLs() []string {
	urls := make([]string, 0, 3)
	for _, u := range []string{j.URL1, j.URL2, j.URL3} {
		if strings.TrimSpace(u) != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Subscription records a user's payment standing. Created and updated only
// by the webhook intake.
type Subscription struct {
	UserEmail string
	Status    string
	Plan      string
}

// Snapshot is the extracted text of one URL at one point in time. Snapshots
// are never persisted; they live only for the duration of a cycle.
type Snapshot struct {
	URL  string
	Text string
}

// OutcomeStatus enumerates the terminal states of one job cycle.
type OutcomeStatus string

// Terminal cycle outcomes.
const (
	OutcomeSkipped   OutcomeStatus = "skipped"
	OutcomeNoChanges OutcomeStatus = "no_changes"
	OutcomeSuccess   OutcomeStatus = "success"
	OutcomeError     OutcomeStatus = "error"
)

// Cycle failure reasons carried on OutcomeError and OutcomeSkipped.
const (
	ReasonNoURLs        = "no_urls"
	ReasonScrapeFailed  = "scrape_failed"
	ReasonPersistFailed = "persist_failed"
	ReasonPanic         = "panic"
)

// Outcome is the result of running one monitoring cycle for one job.
type Outcome struct {
	Status OutcomeStatus
	Reason string
	Report string
	Err    error
}

// FetchKind discriminates the ways a page fetch can end.
type FetchKind int

// Fetch result kinds. Everything except FetchOK degrades to empty content
// from the cycle's point of view; the kind survives for logging and metrics.
const (
	FetchOK FetchKind = iota
	FetchEmpty
	FetchTimeout
	FetchHTTPError
	FetchTransportError
)

// String returns the metric/log label for the kind.
func (k FetchKind) String() string {
	switch k {
	case FetchOK:
		return "ok"
	case FetchEmpty:
		return "empty"
	case FetchTimeout:
		return "timeout"
	case FetchHTTPError:
		return "http_error"
	case FetchTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// FetchResult is the discriminated outcome of fetching one URL.
type FetchResult struct {
	Kind       FetchKind
	Text       string
	StatusCode int
}

// OK reports whether the fetch produced usable content.
func (r FetchResult) OK() bool {
	return r.Kind == FetchOK && r.Text != ""
}
