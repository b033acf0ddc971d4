package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess              = "success"
	OutcomeModelFailure         = "model_failure"
	OutcomeNormalizationFailure = "normalization_failure"
	OutcomeTransportFailure     = "transport_failure"
	OutcomeInvalidRequest       = "invalid_request"
	OutcomeCacheHit             = "cache_hit"
)

const (
	StoreOperationLoad   = "load"
	StoreOperationSave   = "save"
	StoreOperationDecode = "decode"
	StoreOperationDelete = "delete"
)

// TrackerMetrics captures estimator and ledger health for the /metrics scrape.
type TrackerMetrics struct {
	estimations        *prometheus.CounterVec
	estimationDuration *prometheus.HistogramVec
	ledgerMutations    *prometheus.CounterVec
	rollovers          prometheus.Counter
	rolloverEntries    prometheus.Counter
	storeErrors        *prometheus.CounterVec
	ledgerCalories     prometheus.Gauge
}

var (
	trackerMetricsOnce sync.Once
	trackerMetrics     *TrackerMetrics
)

// Tracker returns the singleton tracker metrics registry.
func Tracker() *TrackerMetrics {
	return TrackerWithConfig(Config{})
}

// TrackerWithConfig returns the singleton tracker metrics registry using config labels.
func TrackerWithConfig(cfg Config) *TrackerMetrics {
	trackerMetricsOnce.Do(func() {
		trackerMetrics = NewTrackerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return trackerMetrics
}

// ResetTrackerMetricsForTest resets the tracker metrics singleton for tests.
func ResetTrackerMetricsForTest() {
	trackerMetricsOnce = sync.Once{}
	trackerMetrics = nil
}

func NewTrackerMetrics(registerer prometheus.Registerer, cfg Config) *TrackerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := constLabelsFor(cfg)

	m := &TrackerMetrics{
		estimations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "snapcount_estimator_requests_total",
			Help:        "Nutrition estimator calls by input channel and outcome.",
			ConstLabels: constLabels,
		}, []string{"channel", "outcome"}),
		estimationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "snapcount_estimator_duration_seconds",
			Help:        "Round-trip latency of model calls.",
			Buckets:     []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
			ConstLabels: constLabels,
		}, []string{"channel"}),
		ledgerMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "snapcount_ledger_mutations_total",
			Help:        "Daily ledger mutations by operation and entry source.",
			ConstLabels: constLabels,
		}, []string{"operation", "source"}),
		rollovers: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "snapcount_ledger_rollovers_total",
			Help:        "Ledgers discarded at a calendar day boundary.",
			ConstLabels: constLabels,
		}),
		rolloverEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "snapcount_ledger_rollover_entries_total",
			Help:        "Entries dropped by day-boundary rollovers.",
			ConstLabels: constLabels,
		}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "snapcount_store_errors_total",
			Help:        "Swallowed device store errors by record and operation.",
			ConstLabels: constLabels,
		}, []string{"record", "operation"}),
		ledgerCalories: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "snapcount_ledger_calories",
			Help:        "Calories logged today after the latest ledger evaluation.",
			ConstLabels: constLabels,
		}),
	}

	registerer.MustRegister(
		m.estimations,
		m.estimationDuration,
		m.ledgerMutations,
		m.rollovers,
		m.rolloverEntries,
		m.storeErrors,
		m.ledgerCalories,
	)
	return m
}

func constLabelsFor(cfg Config) prometheus.Labels {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "snapcount"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}

func (m *TrackerMetrics) ObserveEstimation(channel, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.estimations.WithLabelValues(channel, outcome).Inc()
	if outcome != OutcomeInvalidRequest && outcome != OutcomeCacheHit {
		m.estimationDuration.WithLabelValues(channel).Observe(elapsed.Seconds())
	}
}

func (m *TrackerMetrics) IncLedgerMutation(operation, source string) {
	if m == nil {
		return
	}
	m.ledgerMutations.WithLabelValues(operation, source).Inc()
}

func (m *TrackerMetrics) IncRollover(discarded int) {
	if m == nil {
		return
	}
	m.rollovers.Inc()
	if discarded > 0 {
		m.rolloverEntries.Add(float64(discarded))
	}
}

func (m *TrackerMetrics) IncStoreError(record, operation string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(record, operation).Inc()
}

func (m *TrackerMetrics) SetLedgerCalories(total int) {
	if m == nil {
		return
	}
	m.ledgerCalories.Set(float64(total))
}
