package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "catalog", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalog", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "catalog", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalog", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "catalog", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels/invalidations."},
		[]string{"cache", "event"},
	)
	UpdateRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "catalog", Name: "update_runs_total", Help: "Update runs by outcome."},
		[]string{"outcome"}, // outcome: ok|failed|skipped
	)
	StageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalog", Name: "update_stage_duration_seconds",
			Help:    "Duration of each update stage.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)
	SourceFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "catalog", Name: "source_fetches_total", Help: "Source adapter fetches by result."},
		[]string{"source", "result"},
	)
	InvalidRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "catalog", Name: "invalid_records_total", Help: "Records removed or detached by validation."},
		[]string{"kind"}, // kind: movie|featured
	)
)

// Serve exposes the default registry on its own listener. An empty addr
// disables it.
func Serve(addr string) {
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

var collectors = []prometheus.Collector{
	HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents,
	UpdateRuns, StageLatency, SourceFetches, InvalidRecords,
}

func init() {
	// default registry feeds Serve(); InitRegistry builds isolated ones
	prometheus.MustRegister(collectors...)
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors...)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del|invalidate|lock|unlock|busy
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveRun(outcome string) { UpdateRuns.WithLabelValues(outcome).Inc() }

func ObserveStage(stage string, dur time.Duration) {
	StageLatency.WithLabelValues(stage).Observe(dur.Seconds())
}

func ObserveSource(source string, err error) {
	SourceFetches.WithLabelValues(source, LabelErr(err)).Inc()
}

func ObserveInvalid(kind string, n int) {
	if n > 0 {
		InvalidRecords.WithLabelValues(kind).Add(float64(n))
	}
}

func LabelErr(err error) string {
	if err == nil {
		return "none"
	}
	return fmt.Sprintf("%T", err)
}
