package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRunIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(RunsTotal.WithLabelValues("A", "completed"))

	RecordRun("A", "completed", 2*time.Second)

	after := testutil.ToFloat64(RunsTotal.WithLabelValues("A", "completed"))
	if after != before+1 {
		t.Fatalf("RunsTotal = %v, want %v", after, before+1)
	}
}

func TestRecordEntriesProcessedSkipsNonPositive(t *testing.T) {
	before := testutil.ToFloat64(EntriesProcessedTotal.WithLabelValues("summarized"))

	RecordEntriesProcessed("summarized", 0)
	if got := testutil.ToFloat64(EntriesProcessedTotal.WithLabelValues("summarized")); got != before {
		t.Fatalf("expected no change for n=0, got %v want %v", got, before)
	}

	RecordEntriesProcessed("summarized", 3)
	if got := testutil.ToFloat64(EntriesProcessedTotal.WithLabelValues("summarized")); got != before+3 {
		t.Fatalf("EntriesProcessedTotal = %v, want %v", got, before+3)
	}
}

func TestRecordFetchCountsEachOutcome(t *testing.T) {
	beforeSuccess := testutil.ToFloat64(FetchesTotal.WithLabelValues("example.com", "success"))
	beforeFailure := testutil.ToFloat64(FetchesTotal.WithLabelValues("example.com", "timeout"))

	RecordFetch("example.com", "success", 100*time.Millisecond)
	RecordFetch("example.com", "timeout", 30*time.Second)

	if got := testutil.ToFloat64(FetchesTotal.WithLabelValues("example.com", "success")); got != beforeSuccess+1 {
		t.Fatalf("success counter = %v, want %v", got, beforeSuccess+1)
	}
	if got := testutil.ToFloat64(FetchesTotal.WithLabelValues("example.com", "timeout")); got != beforeFailure+1 {
		t.Fatalf("timeout counter = %v, want %v", got, beforeFailure+1)
	}
}

func TestRecordCircuitBreakerStateSetsGauge(t *testing.T) {
	RecordCircuitBreakerState("blocked.example.com", true)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("blocked.example.com")); got != 1 {
		t.Fatalf("gauge = %v, want 1 when open", got)
	}

	RecordCircuitBreakerState("blocked.example.com", false)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("blocked.example.com")); got != 0 {
		t.Fatalf("gauge = %v, want 0 when closed", got)
	}
}

func TestRecordLLMRequestAndLimiterWait(t *testing.T) {
	before := testutil.ToFloat64(LLMRequestsTotal.WithLabelValues("anthropic", "success"))
	RecordLLMRequest("anthropic", "success")
	if got := testutil.ToFloat64(LLMRequestsTotal.WithLabelValues("anthropic", "success")); got != before+1 {
		t.Fatalf("LLMRequestsTotal = %v, want %v", got, before+1)
	}

	// RecordLLMLimiterWait just needs to not panic; it feeds a histogram
	// with no labels.
	RecordLLMLimiterWait(10 * time.Millisecond)
}
