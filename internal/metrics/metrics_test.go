package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if jobCyclesTotal == nil || pageFetchesTotal == nil ||
		reportsTotal == nil || webhookEventsTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	RecordJobCycle("success")
	if val := testutil.ToFloat64(jobCyclesTotal.WithLabelValues("success")); val != 1 {
		t.Errorf("expected intel_job_cycles_total{outcome=success} to be 1, got %f", val)
	}

	RecordWebhookEvent("activated")
	if val := testutil.ToFloat64(webhookEventsTotal.WithLabelValues("activated")); val != 1 {
		t.Errorf("expected intel_webhook_events_total{result=activated} to be 1, got %f", val)
	}

	SetBatchSize(3)
	if val := testutil.ToFloat64(batchJobsLastRun); val != 3 {
		t.Errorf("expected intel_batch_jobs_last_run to be 3, got %f", val)
	}
}

func TestRecordersAreSafeBeforeInit(t *testing.T) {
	// Recorders must not panic when metrics were never initialized, e.g.
	// in library-style use from tests.
	saved := jobCyclesTotal
	jobCyclesTotal = nil
	defer func() { jobCyclesTotal = saved }()

	RecordJobCycle("skipped")
}
