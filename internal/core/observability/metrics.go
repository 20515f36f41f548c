// Package observability owns the Prometheus collectors shared across the service.
package observability

import (
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var serviceLabel atomic.Value

func init() {
	serviceLabel.Store("survey-api")
	prometheus.MustRegister(buildInfo)
	prometheus.MustRegister(collectors()...)
}

func SetService(s string) {
	if s == "" {
		s = "survey-api"
	}
	serviceLabel.Store(s)
}

func getService() string {
	if v := serviceLabel.Load(); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "survey-api"
}

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status", "service"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status", "service"},
	)

	upstreamLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream", "service"},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "survey_version_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)

	fetchCacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_cache_results_total",
			Help: "Storage fetch cache lookups by tier and outcome.",
		},
		[]string{"tier", "outcome"},
	)

	cacheOpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Redis operations by op and result.",
		},
		[]string{"op", "result"},
	)

	redisOpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Duration of redis operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	calcDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "calc_duration_seconds",
			Help:    "Duration of one calculation kind over one target column.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"kind", "result"},
	)

	rowsLoaded = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "table_rows_loaded",
			Help:    "Rows in the merged table per request, before clipping.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	invalidationLagSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "invalidation_lag_seconds",
			Help: "Age of the last object-update event when it was applied.",
		},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds, upstreamLatencySeconds,
		fetchCacheResults, cacheOpTotal, redisOpDurationSeconds, calcDurationSeconds,
		rowsLoaded, invalidationLagSeconds,
	}
}

// Init additionally registers the shared collectors with reg, for the
// dedicated metrics server. Collectors already present are left alone.
// Build info is not registered here: metrics.Provider carries its own.
func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled || reg == nil || reg == prometheus.DefaultRegisterer {
		return
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	s := getService()
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st, s).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st, s).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream, getService()).Observe(durationSeconds)
}

func IncFetchCacheHit(tier string)  { fetchCacheResults.WithLabelValues(tier, "hit").Inc() }
func IncFetchCacheMiss(tier string) { fetchCacheResults.WithLabelValues(tier, "miss").Inc() }

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	cacheOpTotal.WithLabelValues(op, result).Inc()
	redisOpDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func ObserveCalc(kind string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	calcDurationSeconds.WithLabelValues(kind, result).Observe(durationSeconds)
}

func ObserveRowsLoaded(n int) { rowsLoaded.Observe(float64(n)) }

func SetInvalidationLagSeconds(v float64) { invalidationLagSeconds.Set(v) }

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
