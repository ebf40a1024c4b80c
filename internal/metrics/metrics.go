// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled requests by route template and status code.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taxsim_http_requests_total",
			Help: "HTTP requests handled by the taxsim server",
		},
		[]string{"route", "method", "status"},
	)

	// Projections counts calculator projections by outcome.
	Projections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taxsim_projections_total",
			Help: "Calculator projections computed",
		},
		[]string{"source", "status"},
	)

	// ProjectionDuration observes how long a projection request takes.
	ProjectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "taxsim_projection_duration_seconds",
			Help:    "Time spent computing calculator projections",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
		},
	)

	// APICalls counts requests made to the remote formula API.
	APICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taxsim_api_calls_total",
			Help: "Requests sent to the remote formula API",
		},
		[]string{"method", "status"},
	)
)

// StatusLabel renders an HTTP status code as a label value; 0 means the
// request never got a response.
func StatusLabel(code int) string {
	if code == 0 {
		return "error"
	}
	return strconv.Itoa(code)
}
