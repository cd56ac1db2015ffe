// Package metrics holds the Prometheus collectors shared by the crawler,
// the ingestion loop and the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	FetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ledgerscope_fetch_total", Help: "Provider fetches by stage and outcome"},
		[]string{"stage", "status"},
	)
	PublishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ledgerscope_publish_total", Help: "Publish attempts by topic and outcome"},
		[]string{"topic", "status"},
	)
	FilteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ledgerscope_filtered_total", Help: "Records rejected by a hash filter"},
		[]string{"stage"},
	)
	DecodeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ledgerscope_decode_errors_total", Help: "Transport messages dropped because they failed to parse"},
		[]string{"topic"},
	)
	HexFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ledgerscope_hex_fallback_total", Help: "Hex fields that failed to parse and were stored as 0"},
		[]string{"field"},
	)
	UpsertTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ledgerscope_upsert_total", Help: "Store upserts by entity"},
		[]string{"entity"},
	)
	BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "ledgerscope_ingest_batch_duration_seconds", Help: "Time to apply and commit one polled batch", Buckets: prometheus.DefBuckets},
	)
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "HTTP requests"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "Request latency", Buckets: prometheus.DefBuckets},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(
		FetchTotal,
		PublishTotal,
		FilteredTotal,
		DecodeErrorsTotal,
		HexFallbackTotal,
		UpsertTotal,
		BatchDuration,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, StatusLabel(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// StatusLabel buckets an HTTP status code into its class.
func StatusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "unknown"
	}
}
