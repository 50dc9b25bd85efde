package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.FeeSubmissions.WithLabelValues("recorded").Inc()
	m.RateDecisions.WithLabelValues("allowed").Add(2)
	m.WindowsSwept.Add(3)

	if got := testutil.ToFloat64(m.FeeSubmissions.WithLabelValues("recorded")); got != 1 {
		t.Errorf("expected 1 recorded submission, got %v", got)
	}
	if got := testutil.ToFloat64(m.RateDecisions.WithLabelValues("allowed")); got != 2 {
		t.Errorf("expected 2 allowed decisions, got %v", got)
	}
	if got := testutil.ToFloat64(m.WindowsSwept); got != 3 {
		t.Errorf("expected 3 swept windows, got %v", got)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

func TestNewWithoutRegistry(t *testing.T) {
	m := New(nil)
	m.PriceUpdates.WithLabelValues("applied").Inc()
	if got := testutil.ToFloat64(m.PriceUpdates.WithLabelValues("applied")); got != 1 {
		t.Errorf("expected 1 applied update, got %v", got)
	}
}
