package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistry_Counters(t *testing.T) {
	r := NewRegistry()

	r.RecordOpen("header")
	r.RecordOpen("header")
	r.RecordOpen("passthrough")
	r.RecordHeaderDetection("pending")
	r.RecordLazyHeaderWrite("ok")
	r.RecordHeaderDegraded("reread_failed")

	if got := testutil.ToFloat64(r.OpensTotal.WithLabelValues("header")); got != 2 {
		t.Errorf("Expected 2 header opens, got %v", got)
	}
	if got := testutil.ToFloat64(r.OpensTotal.WithLabelValues("passthrough")); got != 1 {
		t.Errorf("Expected 1 passthrough open, got %v", got)
	}
	if got := testutil.ToFloat64(r.HeaderLazyWritesTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("Expected 1 lazy write, got %v", got)
	}
	if got := testutil.ToFloat64(r.HeaderDegradedTotal.WithLabelValues("reread_failed")); got != 1 {
		t.Errorf("Expected 1 degraded event, got %v", got)
	}
}

func TestRegistry_Isolated(t *testing.T) {
	// Two registries must not share counters or panic on duplicate
	// registration.
	a := NewRegistry()
	b := NewRegistry()

	a.RecordOpen("header")

	if got := testutil.ToFloat64(b.OpensTotal.WithLabelValues("header")); got != 0 {
		t.Errorf("Expected isolated registries, got %v", got)
	}
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	if r.Handler() == nil {
		t.Fatal("Expected a non-nil metrics handler")
	}
}
