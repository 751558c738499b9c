package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/oakhart/claude-agent/internal/sysmetrics"
	"github.com/oakhart/claude-agent/pkg/logging"
)

// statusRecorder captures the response status for logging and counting.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger emits structured logs for every HTTP request and feeds the
// shared request counter when one is provided.
func RequestLogger(logger *logging.Logger, counter *sysmetrics.RequestCounter) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if counter != nil {
				counter.Observe(rec.status)
			}
			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"request_id", reqID,
				"remote_ip", r.RemoteAddr,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
