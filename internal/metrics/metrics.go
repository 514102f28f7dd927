// Package metrics exposes Prometheus collectors for the monitoring worker
// and the webhook server.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobCyclesTotal     *prometheus.CounterVec
	pageFetchesTotal   *prometheus.CounterVec
	reportsTotal       prometheus.Counter
	webhookEventsTotal *prometheus.CounterVec
	httpRequestsTotal  *prometheus.CounterVec
	batchJobsLastRun   prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		jobCyclesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intel_job_cycles_total",
				Help: "Total number of job cycles run, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		pageFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intel_page_fetches_total",
				Help: "Total number of page fetches, labeled by result kind.",
			},
			[]string{"result"},
		)

		reportsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "intel_reports_generated_total",
				Help: "Total number of intelligence reports generated.",
			},
		)

		webhookEventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intel_webhook_events_total",
				Help: "Total number of payment webhook events, labeled by result.",
			},
			[]string{"result"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intel_http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		batchJobsLastRun = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "intel_batch_jobs_last_run",
				Help: "Number of jobs processed in the most recent batch.",
			},
		)
	})
}

// RecordJobCycle counts one finished job cycle by outcome.
func RecordJobCycle(outcome string) {
	if jobCyclesTotal != nil {
		jobCyclesTotal.WithLabelValues(outcome).Inc()
	}
}

// RecordPageFetch counts one page fetch by result kind.
func RecordPageFetch(result string) {
	if pageFetchesTotal != nil {
		pageFetchesTotal.WithLabelValues(result).Inc()
	}
}

// RecordReport counts one generated report.
func RecordReport() {
	if reportsTotal != nil {
		reportsTotal.Inc()
	}
}

// RecordWebhookEvent counts one payment webhook by result.
func RecordWebhookEvent(result string) {
	if webhookEventsTotal != nil {
		webhookEventsTotal.WithLabelValues(result).Inc()
	}
}

// RecordHTTPRequest counts one served HTTP request.
func RecordHTTPRequest(method, code string) {
	if httpRequestsTotal != nil {
		httpRequestsTotal.WithLabelValues(method, code).Inc()
	}
}

// SetBatchSize records how many jobs the last orchestrator pass handled.
func SetBatchSize(n int) {
	if batchJobsLastRun != nil {
		batchJobsLastRun.Set(float64(n))
	}
}
