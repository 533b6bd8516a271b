// Package metrics defines the Prometheus collectors of the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "icried"

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	SyncRuns        *prometheus.CounterVec
	SyncDuration    prometheus.Histogram
	RecordsMerged   *prometheus.CounterVec
	DedupRemoved    *prometheus.CounterVec
	JournalWrites   *prometheus.CounterVec
	StatsCacheHits  prometheus.Counter
	StatsCacheMiss  prometheus.Counter
	PublishFailures prometheus.Counter
	BreakerState    *prometheus.GaugeVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Total sync passes, by result.",
		}, []string{"result"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Duration of sync passes in seconds.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		RecordsMerged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "records_total",
			Help:      "Remote records processed during sync, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		DedupRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "duplicates_removed_total",
			Help:      "Duplicates removed by the dedup pass, by kind.",
		}, []string{"kind"}),
		JournalWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "writes_total",
			Help:      "Journal writes, by operation and result.",
		}, []string{"operation", "result"}),
		StatsCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats_cache",
			Name:      "hits_total",
			Help:      "Statistics cache hits.",
		}),
		StatsCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats_cache",
			Name:      "misses_total",
			Help:      "Statistics cache misses.",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "amqp",
			Name:      "publish_failures_total",
			Help:      "Change notifications that could not be published.",
		}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Current circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"component"}),
	}

	reg.MustRegister(
		m.SyncRuns, m.SyncDuration, m.RecordsMerged, m.DedupRemoved,
		m.JournalWrites, m.StatsCacheHits, m.StatsCacheMiss,
		m.PublishFailures, m.BreakerState,
	)
	return m
}

func (m *Metrics) ObserveSync(err error, d time.Duration) {
	if m == nil {
		return
	}
	m.SyncRuns.WithLabelValues(result(err)).Inc()
	m.SyncDuration.Observe(d.Seconds())
}

func (m *Metrics) AddRecords(kind, outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RecordsMerged.WithLabelValues(kind, outcome).Add(float64(n))
}

func (m *Metrics) AddDuplicates(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.DedupRemoved.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) ObserveWrite(op string, err error) {
	if m == nil {
		return
	}
	m.JournalWrites.WithLabelValues(op, result(err)).Inc()
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.StatsCacheHits.Inc()
	}
}

func (m *Metrics) CacheMiss() {
	if m != nil {
		m.StatsCacheMiss.Inc()
	}
}

func (m *Metrics) PublishFailed() {
	if m != nil {
		m.PublishFailures.Inc()
	}
}

// SetBreakerState records a gobreaker state as 0, 1 or 2.
func (m *Metrics) SetBreakerState(component string, state int) {
	if m != nil {
		m.BreakerState.WithLabelValues(component).Set(float64(state))
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
