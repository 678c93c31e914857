// Package metrics holds the prometheus collectors shared by the table host
// and the HTTP layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RoundsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pairs_rounds_started_total",
			Help: "Rounds dealt across all tables",
		},
	)
	RoundsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pairs_rounds_completed_total",
			Help: "Rounds in which every card was matched",
		},
	)
	Selections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairs_card_selections_total",
			Help: "Card taps by outcome (revealed, match, mismatch, ignored)",
		},
		[]string{"outcome"},
	)
	ActiveTables = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pairs_active_tables",
			Help: "Tables currently held in memory",
		},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairs_http_requests_total",
			Help: "HTTP requests by method and route",
		},
		[]string{"method", "route"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pairs_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(RoundsStarted)
	prometheus.MustRegister(RoundsCompleted)
	prometheus.MustRegister(Selections)
	prometheus.MustRegister(ActiveTables)
	prometheus.MustRegister(HTTPRequests)
	prometheus.MustRegister(HTTPDuration)
}
