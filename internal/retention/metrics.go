package retention

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fixora/tracker/internal/domain"
)

// Metrics contains Prometheus collectors for the purge engine
type Metrics struct {
	records        *prometheus.CounterVec
	objectFailures prometheus.Counter
	runDuration    prometheus.Histogram
	lastSuccess    prometheus.Gauge
}

// NewMetrics registers the purge collectors with reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		records: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fixora_purge_records_total",
				Help: "Total number of purge candidates processed, by outcome",
			},
			[]string{"entity_type", "outcome"},
		),

		objectFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fixora_purge_object_delete_failures_total",
				Help: "Total number of object keys left behind after all delete attempts failed",
			},
		),

		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fixora_purge_run_duration_seconds",
				Help:    "Duration of purge runs",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),

		lastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fixora_purge_last_success_timestamp_seconds",
				Help: "Unix time of the last purge run that completed its scans",
			},
		),
	}
}

func (m *Metrics) recordOutcome(entityType domain.EntityType, out outcome) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(string(entityType), string(out)).Inc()
}

func (m *Metrics) recordObjectFailure() {
	if m == nil {
		return
	}
	m.objectFailures.Inc()
}

func (m *Metrics) observeRun(duration time.Duration, finished time.Time, ok bool) {
	if m == nil {
		return
	}
	m.runDuration.Observe(duration.Seconds())
	if ok {
		m.lastSuccess.Set(float64(finished.Unix()))
	}
}
