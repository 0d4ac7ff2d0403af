// Package metrics holds the Prometheus instrumentation for the HTTP
// surface and the ingest pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docstore",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docstore",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// IngestConsumed counts messages taken off the ingest topic.
	IngestConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "docstore",
		Name:      "ingest_consumed_total",
		Help:      "Total ingest messages consumed",
	})

	// IngestDeduplicated counts messages dropped as near-duplicates.
	IngestDeduplicated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "docstore",
		Name:      "ingest_deduplicated_total",
		Help:      "Total ingest messages dropped by fingerprint dedup",
	})

	// IngestDocuments counts documents leaving the ingest pipeline by
	// bulk outcome.
	IngestDocuments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docstore",
			Name:      "ingest_documents_total",
			Help:      "Total documents flushed by the ingest pipeline",
		},
		[]string{"outcome"}, // "inserted" / "failed"
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(IngestConsumed)
	prometheus.MustRegister(IngestDeduplicated)
	prometheus.MustRegister(IngestDocuments)
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and durations per method, route
// pattern and status.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		// The route pattern keeps cardinality bounded; raw paths carry
		// document ids.
		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(sw.status)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
