package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordGatewayCall("predict", nil, 10*time.Millisecond)
	r.RecordGatewayCall("predict", errors.New("boom"), 10*time.Millisecond)
	r.RecordGatewayCall("predict", errors.New("boom"), 10*time.Millisecond)
	r.RecordPollSkipped()
	r.RecordStaleDiscard("prediction")

	if got := testutil.ToFloat64(r.gatewayCalls.WithLabelValues("predict", "ok")); got != 1 {
		t.Fatalf("ok calls: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.gatewayCalls.WithLabelValues("predict", "error")); got != 2 {
		t.Fatalf("error calls: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.pollSkipped); got != 1 {
		t.Fatalf("poll skipped: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.staleDiscards.WithLabelValues("prediction")); got != 1 {
		t.Fatalf("stale discards: got %v, want 1", got)
	}
}
