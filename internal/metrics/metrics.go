// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colabwize_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "colabwize_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Citation scanner metrics
	CitationScans = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "colabwize_citation_scans_total",
			Help: "Total number of citation scans",
		},
	)

	CitationMentions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colabwize_citation_mentions_total",
			Help: "Inline citations found by scans",
		},
		[]string{"status"}, // linked, orphan
	)

	// Audit metrics
	AuditResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colabwize_citation_audit_results_total",
			Help: "Citation audits by terminal state",
		},
		[]string{"state"},
	)

	AuditLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "colabwize_citation_audit_duration_seconds",
			Help:    "Citation audit round-trip latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	// Position mapper metrics
	LocateResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colabwize_locate_results_total",
			Help: "Text fragments placed in documents",
		},
		[]string{"result"}, // hit, miss
	)

	DocumentImports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colabwize_document_imports_total",
			Help: "Uploaded documents by file type and outcome",
		},
		[]string{"ext", "result"}, // ok, error
	)

	// Quota metrics
	QuotaDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colabwize_quota_denials_total",
			Help: "Requests refused for exhausted quota",
		},
		[]string{"resource"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "colabwize_rate_limited_total",
			Help: "Requests refused by the per-user rate limiter",
		},
	)
)

// RecordHTTP records one served request.
func RecordHTTP(method, route, status string, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordScan records one scan and its mentions by status.
func RecordScan(linked, orphan int) {
	CitationScans.Inc()
	CitationMentions.WithLabelValues("linked").Add(float64(linked))
	CitationMentions.WithLabelValues("orphan").Add(float64(orphan))
}

// RecordAudit records the terminal state and duration of one audit.
func RecordAudit(state string, d time.Duration) {
	AuditResults.WithLabelValues(state).Inc()
	AuditLatency.Observe(d.Seconds())
}

// RecordImport records one upload attempt.
func RecordImport(ext string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	DocumentImports.WithLabelValues(ext, result).Inc()
}

// RecordLocate records located and missed fragments.
func RecordLocate(hits, misses int) {
	LocateResults.WithLabelValues("hit").Add(float64(hits))
	LocateResults.WithLabelValues("miss").Add(float64(misses))
}
