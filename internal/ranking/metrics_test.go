package ranking

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// counterValue reads the current value of a counter from a registry gather.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !matchLabels(m, labels) {
				continue
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			if m.GetGauge() != nil {
				return m.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func matchLabels(m *dto.Metric, labels map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range labels {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestMetricsRegister(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()

	if err := m.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Double registration must fail.
	if err := m.Register(reg); err == nil {
		t.Error("expected error on duplicate registration")
	}
}

func TestMetricsInsertionOutcomes(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}

	m.IncInsertions(OutcomeDirect)
	m.IncInsertions(OutcomeCompared)
	m.IncInsertions(OutcomeCompared)
	m.IncInsertions(OutcomeDuplicate)

	tests := []struct {
		outcome string
		want    float64
	}{
		{OutcomeDirect, 1},
		{OutcomeCompared, 2},
		{OutcomeDuplicate, 1},
	}
	for _, tt := range tests {
		got := counterValue(t, reg, MetricInsertionsTotal, map[string]string{"outcome": tt.outcome})
		if got != tt.want {
			t.Errorf("outcome %q: got %g, want %g", tt.outcome, got, tt.want)
		}
	}
}

func TestMetricsActiveSessionsGauge(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	got := counterValue(t, reg, MetricActiveSessions, nil)
	if got != 1 {
		t.Errorf("active sessions: got %g, want 1", got)
	}
}

func TestMetricsComparisonsHistogram(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}

	m.ObserveComparisons(3)
	m.ObserveComparisons(5)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != MetricComparisonsPerInsertion {
			continue
		}
		h := mf.GetMetric()[0].GetHistogram()
		if h.GetSampleCount() != 2 {
			t.Errorf("sample count: got %d, want 2", h.GetSampleCount())
		}
		if h.GetSampleSum() != 8 {
			t.Errorf("sample sum: got %g, want 8", h.GetSampleSum())
		}
		return
	}
	t.Fatalf("histogram %s not found", MetricComparisonsPerInsertion)
}

func TestEngineRecordsMetrics(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	e := NewEngine(NewInMemoryListRepository(), NewInMemorySessionStore(), nil, m, nil)

	// Direct insert on empty list.
	if _, err := e.BeginInsertion(context.Background(), "alice", testMovie(1)); err != nil {
		t.Fatalf("BeginInsertion: %v", err)
	}
	if got := counterValue(t, reg, MetricInsertionsTotal, map[string]string{"outcome": OutcomeDirect}); got != 1 {
		t.Errorf("direct insertions: got %g, want 1", got)
	}

	// Duplicate rejection.
	if _, err := e.BeginInsertion(context.Background(), "alice", testMovie(1)); err == nil {
		t.Fatal("expected duplicate error")
	}
	if got := counterValue(t, reg, MetricInsertionsTotal, map[string]string{"outcome": OutcomeDuplicate}); got != 1 {
		t.Errorf("duplicate insertions: got %g, want 1", got)
	}

	// Compared insertion opens and closes a session.
	out, err := e.BeginInsertion(context.Background(), "alice", testMovie(2))
	if err != nil {
		t.Fatalf("BeginInsertion: %v", err)
	}
	if got := counterValue(t, reg, MetricActiveSessions, nil); got != 1 {
		t.Errorf("active sessions mid-insertion: got %g, want 1", got)
	}
	if _, err := e.ResolveComparison(context.Background(), "alice", out.Target.ID); err != nil {
		t.Fatalf("ResolveComparison: %v", err)
	}
	if got := counterValue(t, reg, MetricActiveSessions, nil); got != 0 {
		t.Errorf("active sessions after resolve: got %g, want 0", got)
	}
	if got := counterValue(t, reg, MetricInsertionsTotal, map[string]string{"outcome": OutcomeCompared}); got != 1 {
		t.Errorf("compared insertions: got %g, want 1", got)
	}
}
