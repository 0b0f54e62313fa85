package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorials_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutorials_http_request_duration_seconds",
			Help:    "Time taken to serve HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	CORSRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tutorials_cors_rejections_total",
			Help: "Total number of requests rejected by the CORS policy",
		},
	)

	// DatabaseState is 1 for the current connection state label and 0 for the others.
	DatabaseState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tutorials_database_state",
			Help: "Current database connection state",
		},
		[]string{"state"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorials_cache_lookups_total",
			Help: "Tutorial cache lookups by result",
		},
		[]string{"result"},
	)
)

// SetDatabaseState flips the gauge so exactly one state reads 1.
func SetDatabaseState(current string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		DatabaseState.WithLabelValues(s).Set(v)
	}
}
