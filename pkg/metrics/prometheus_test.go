package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRecorderRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := New(reg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	r.RecordSignal("BTC", "LONG", 61.5)
	r.RecordError("Timeout")
	r.RecordLatency("signals.get", 0.2)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) != 4 {
		t.Fatalf("expected 4 metric families, got %d", len(mfs))
	}
	if _, err := New(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
