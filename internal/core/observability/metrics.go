// Package observability holds the process wide Prometheus collectors.
package observability

import (
	"errors"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"method", "route", "status"},
	)

	digipinOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digipin_ops_total",
			Help: "Encode/decode operations by outcome.",
		},
		[]string{"op", "outcome"},
	)

	cacheOpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Redis operations by result.",
		},
		[]string{"op", "result"},
	)

	redisOpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Latency of Redis operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
		[]string{"op"},
	)

	cacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_results_total",
			Help: "Cache key lookups by outcome.",
		},
		[]string{"outcome"},
	)

	kafkaConsumerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_errors_total",
			Help: "Errors seen by the location consumer.",
		},
		[]string{"stage"},
	)

	locationIngestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "location_ingest_total",
			Help: "Device location events by outcome.",
		},
		[]string{"outcome"},
	)

	lookupEventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lookup_events_dropped_total",
			Help: "Lookup events dropped because the publish queue was full.",
		},
	)

	hotAreas = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hot_areas_tracked",
			Help: "Number of areas currently held by the hotness tracker.",
		},
	)

	hotCrossings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hot_area_crossings_total",
			Help: "Times an area score rose past the hot threshold.",
		},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "digipin_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)

	all = []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds, digipinOpsTotal,
		cacheOpTotal, redisOpDurationSeconds, cacheResults,
		kafkaConsumerErrors, locationIngestTotal, lookupEventsDropped,
		hotAreas, hotCrossings, buildInfo,
	}

	initMu sync.Mutex
)

// Init registers the collectors on reg. A nil reg uses the default registerer.
// Observations are always recorded; disabled only skips registration.
func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled {
		return
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	initMu.Lock()
	defer initMu.Unlock()
	for _, c := range all {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

// ObserveDigipin counts an encode/decode call; err==nil is "ok".
func ObserveDigipin(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	digipinOpsTotal.WithLabelValues(op, outcome).Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	cacheOpTotal.WithLabelValues(op, result).Inc()
	redisOpDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func AddCacheHits(n int) {
	if n > 0 {
		cacheResults.WithLabelValues("hit").Add(float64(n))
	}
}

func AddCacheMisses(n int) {
	if n > 0 {
		cacheResults.WithLabelValues("miss").Add(float64(n))
	}
}

func IncKafkaConsumerError(stage string) {
	kafkaConsumerErrors.WithLabelValues(stage).Inc()
}

// outcome is one of applied, duplicate, out_of_region, bad_payload, store_error
func ObserveLocationIngest(outcome string) {
	locationIngestTotal.WithLabelValues(outcome).Inc()
}

func IncLookupEventDropped() { lookupEventsDropped.Inc() }

func SetHotAreas(n int) { hotAreas.Set(float64(n)) }

func IncHotCrossing() { hotCrossings.Inc() }

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
