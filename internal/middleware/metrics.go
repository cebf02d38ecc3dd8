package middleware

import (
	"net/http"
	"time"

	"github.com/bryanwahyu/mailguard/internal/metrics"
)

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.RequestsInProgress.Inc()
		defer metrics.RequestsInProgress.Dec()
		start := time.Now()

		wrapped := wrapWriter(w)
		next.ServeHTTP(wrapped, r)

		metrics.RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(r.Method, statusClass(wrapped.statusCode)).Inc()
	})
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
