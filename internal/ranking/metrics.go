package ranking

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricInsertionsTotal         = "ranking_insertions_total"
	MetricRemovalsTotal           = "ranking_removals_total"
	MetricComparisonsPerInsertion = "ranking_comparisons_per_insertion"
	MetricActiveSessions          = "ranking_active_sessions"
	MetricSessionsReplacedTotal   = "ranking_sessions_replaced_total"
)

// Insertion outcome labels.
const (
	OutcomeDirect    = "direct"    // empty list, no comparisons
	OutcomeCompared  = "compared"  // resolved through the binary search
	OutcomeDuplicate = "duplicate" // rejected before a session opened
)

// Metrics contains Prometheus metrics for ranking engine operations.
// All operations are thread-safe.
type Metrics struct {
	insertionsTotal  *prometheus.CounterVec
	removalsTotal    prometheus.Counter
	comparisons      prometheus.Histogram
	activeSessions   prometheus.Gauge
	sessionsReplaced prometheus.Counter
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		insertionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricInsertionsTotal,
				Help: "Total number of insertion attempts by outcome",
			},
			[]string{"outcome"},
		),
		removalsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricRemovalsTotal,
				Help: "Total number of ranked entries removed",
			},
		),
		comparisons: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricComparisonsPerInsertion,
				Help:    "Number of pairwise comparisons needed to resolve an insertion",
				Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10, 12, 16},
			},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: MetricActiveSessions,
				Help: "Number of comparison sessions currently open",
			},
		),
		sessionsReplaced: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricSessionsReplacedTotal,
				Help: "Total number of live sessions silently discarded by a new insertion",
			},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.insertionsTotal,
		m.removalsTotal,
		m.comparisons,
		m.activeSessions,
		m.sessionsReplaced,
	}
}

// IncInsertions increments the insertion counter for the given outcome.
func (m *Metrics) IncInsertions(outcome string) {
	m.insertionsTotal.WithLabelValues(outcome).Inc()
}

// IncRemovals increments the removal counter.
func (m *Metrics) IncRemovals() {
	m.removalsTotal.Inc()
}

// ObserveComparisons records how many comparisons an insertion needed.
func (m *Metrics) ObserveComparisons(n int) {
	m.comparisons.Observe(float64(n))
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	m.activeSessions.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	m.activeSessions.Dec()
}

// IncSessionsReplaced increments the replaced session counter.
func (m *Metrics) IncSessionsReplaced() {
	m.sessionsReplaced.Inc()
}
