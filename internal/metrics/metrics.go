// Package metrics provides centralized Prometheus metrics for the authoring
// server and render pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics track request patterns and performance
var (
	// HTTPRequestsTotal counts HTTP requests by method, route, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "javanotes_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "javanotes_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// WebsocketClients tracks connected live-reload clients
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "javanotes_websocket_clients",
			Help: "Number of connected live-reload websocket clients",
		},
	)
)

// Corpus metrics track the document set and its health
var (
	// DocumentsTotal tracks the number of registered documents
	DocumentsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "javanotes_documents_total",
			Help: "Number of documents in the registry",
		},
	)

	// LintDiagnostics tracks current lint findings by severity
	LintDiagnostics = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "javanotes_lint_diagnostics",
			Help: "Current lint diagnostics by severity",
		},
		[]string{"severity"},
	)
)

// Render metrics track the page render pipeline
var (
	// RendersTotal counts render outcomes
	RendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "javanotes_renders_total",
			Help: "Total number of document renders",
		},
		[]string{"result"}, // result: success, failure, cached
	)

	// RenderDuration measures time to render a document page
	RenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "javanotes_render_duration_seconds",
			Help:    "Time taken to render a document page",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	// ScansTotal counts corpus rescans triggered by file changes
	ScansTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "javanotes_scans_total",
			Help: "Total number of document scans triggered by file changes",
		},
	)
)

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// RecordRender records one render pipeline outcome.
func RecordRender(result string, duration time.Duration) {
	RendersTotal.WithLabelValues(result).Inc()
	RenderDuration.Observe(duration.Seconds())
}

// SetLintCounts publishes the severity totals of the latest lint report.
func SetLintCounts(errors, warnings, infos int) {
	LintDiagnostics.WithLabelValues("error").Set(float64(errors))
	LintDiagnostics.WithLabelValues("warning").Set(float64(warnings))
	LintDiagnostics.WithLabelValues("info").Set(float64(infos))
}

// Handler returns the Prometheus exposition handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
