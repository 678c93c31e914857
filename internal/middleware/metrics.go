package middleware

import (
	"net/http"
	"time"

	"github.com/jason-s-yu/pairs/internal/metrics"
)

// MetricsMiddleware counts requests and observes latency under a fixed route label.
func MetricsMiddleware(route string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			metrics.HTTPRequests.WithLabelValues(r.Method, route).Inc()
			metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}
