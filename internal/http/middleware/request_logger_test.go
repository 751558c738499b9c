package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oakhart/claude-agent/internal/sysmetrics"
	"github.com/oakhart/claude-agent/pkg/logging"
)

func TestRequestLoggerFeedsCounter(t *testing.T) {
	counter := sysmetrics.NewRequestCounter()
	handler := RequestLogger(logging.Default(), counter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	}

	stats := counter.Stats()
	if stats.TotalRequests != 2 {
		t.Fatalf("expected 2 requests counted, got %d", stats.TotalRequests)
	}
	if stats.TotalErrors != 0 {
		t.Fatalf("expected 0 errors, got %d", stats.TotalErrors)
	}
}

func TestRequestLoggerCountsErrorStatuses(t *testing.T) {
	counter := sysmetrics.NewRequestCounter()
	handler := RequestLogger(logging.Default(), counter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	stats := counter.Stats()
	if stats.TotalErrors != 1 {
		t.Fatalf("expected 1 error counted, got %d", stats.TotalErrors)
	}
}

func TestRequestLoggerImplicitOKStatus(t *testing.T) {
	counter := sysmetrics.NewRequestCounter()
	handler := RequestLogger(logging.Default(), counter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Write without an explicit WriteHeader.
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	stats := counter.Stats()
	if stats.TotalRequests != 1 || stats.TotalErrors != 0 {
		t.Fatalf("expected implicit 200 to count as success, got %+v", stats)
	}
}

func TestRequestLoggerNilCounter(t *testing.T) {
	handler := RequestLogger(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
