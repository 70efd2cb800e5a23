package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flagpost_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flagpost_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "path"})
)

// Report lifecycle counters (incremented on occurrence)
var (
	ReportsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flagpost_reports_submitted_total",
		Help: "Total number of reports accepted",
	})

	ReportsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flagpost_reports_rejected_total",
		Help: "Total number of rejected report submissions",
	}, []string{"cause"})

	ReportsResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flagpost_reports_resolved_total",
		Help: "Total number of report status transitions",
	}, []string{"status"})

	AutoHidesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flagpost_auto_hides_total",
		Help: "Total number of automatic content hides",
	})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flagpost_notifications_total",
		Help: "Total number of new-report notifications",
	}, []string{"status"})
)

// Rejection causes for ReportsRejectedTotal.
const (
	CauseDuplicate  = "duplicate"
	CauseValidation = "validation"
)

// Business gauges updated periodically by the collector
var (
	ReportsPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flagpost_reports_pending",
		Help: "Number of reports awaiting review",
	})

	ReportsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "flagpost_reports_by_status",
		Help: "Number of reports by status",
	}, []string{"status"})

	HiddenContentTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flagpost_hidden_content_total",
		Help: "Number of currently hidden content items",
	})
)

// NormalizePath reduces high-cardinality path labels by replacing dynamic
// segments with placeholders. This keeps the metric label space bounded.
func NormalizePath(path string) string {
	segments := splitPath(path)
	if len(segments) < 2 {
		return path
	}

	switch segments[0] {
	case "api":
		switch segments[1] {
		case "reports":
			if len(segments) == 3 && segments[2] != "counts" {
				return "/api/reports/:id"
			}
			if len(segments) == 4 {
				return "/api/reports/:id/" + segments[3]
			}
		case "content":
			if len(segments) == 4 {
				return "/api/content/:id/" + segments[3]
			}
		}
	}

	return path
}

func splitPath(path string) []string {
	// Skip leading slash
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	// Split on /
	var segments []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			if i > start {
				segments = append(segments, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		segments = append(segments, path[start:])
	}
	return segments
}
