package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/survey-stats/internal/core/observability"
)

// runnerMetrics counts object-update events from decode to eviction.
type runnerMetrics struct {
	events    *prometheus.CounterVec
	evictions *prometheus.CounterVec
	applyDur  *prometheus.HistogramVec
	lagSec    prometheus.Gauge
}

func newRunnerMetrics(r prometheus.Registerer) *runnerMetrics {
	m := &runnerMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_invalidation_events_total",
			Help: "Object-update events by result (ok, error, invalid).",
		}, []string{"result"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_invalidation_evictions_total",
			Help: "Cached objects handled per event op and outcome (evicted, stale).",
		}, []string{"op", "outcome"}),
		applyDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "survey_invalidation_apply_seconds",
			Help:    "Time from receiving an event to finishing its eviction.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"op"}),
		lagSec: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "survey_invalidation_lag_seconds",
			Help: "Age of the last event when it was received.",
		}),
	}
	if r != nil {
		r.MustRegister(m.events, m.evictions, m.applyDur, m.lagSec)
	}
	return m
}

func (m *runnerMetrics) invalid() { m.events.WithLabelValues("invalid").Inc() }

func (m *runnerMetrics) stale(op string) { m.evictions.WithLabelValues(op, "stale").Inc() }

func (m *runnerMetrics) evicted(op string) { m.evictions.WithLabelValues(op, "evicted").Inc() }

func (m *runnerMetrics) done(op string, err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.events.WithLabelValues(result).Inc()
	m.applyDur.WithLabelValues(op).Observe(d.Seconds())
}

// lag records the age of an event stamped at ts; zero stamps are ignored.
func (m *runnerMetrics) lag(ts time.Time) {
	if ts.IsZero() {
		return
	}
	s := time.Since(ts).Seconds()
	m.lagSec.Set(s)
	observability.SetInvalidationLagSeconds(s)
}
