package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/oakhart/claude-agent/internal/observability/metrics"
	"github.com/oakhart/claude-agent/internal/ratelimit"
)

// RateLimit rejects requests whose client IP has exhausted the sliding
// window with 429 and a retry_after hint in whole seconds.
func RateLimit(limiter *ratelimit.Limiter, m *metrics.ChatMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := limiter.Allow(clientIP(r))
			if !decision.Allowed {
				m.ObserveRateLimited()
				retryAfter := int(decision.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error":       "Rate limit exceeded. Please try again later.",
					"retry_after": retryAfter,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	// Prefer X-Real-Ip set by chi's RealIP middleware.
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
