package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/devicelab-dev/uiharness/pkg/core"
	"github.com/devicelab-dev/uiharness/pkg/logger"
)

// RequestIDHeader carries the per-request id on every response.
const RequestIDHeader = "X-Request-ID"

// withMiddleware wraps the router with middleware chain
func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	// Apply middleware in reverse order (last applied = first executed)
	handler = s.rateLimitMiddleware(handler)
	handler = s.methodMiddleware(handler)
	handler = s.recoveryMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = s.requestIDMiddleware(handler)
	return handler
}

// requestIDMiddleware assigns a request id, keeping one supplied by the caller.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests and responses
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		entry := logger.WithFields(logger.Fields{
			"request_id": r.Header.Get(RequestIDHeader),
			"method":     r.Method,
			"path":       r.URL.Path,
			"query":      r.URL.RawQuery,
			"status":     rw.statusCode,
			"duration":   time.Since(start),
		})
		if rw.statusCode >= http.StatusInternalServerError {
			entry.Warn("HTTP response")
			return
		}
		entry.Debug("HTTP response")
	})
}

// recoveryMiddleware recovers from panics and returns 500 error
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.WithFields(logger.Fields{
					"error":      fmt.Sprintf("%v", err),
					"path":       r.URL.Path,
					"request_id": r.Header.Get(RequestIDHeader),
				}).Error("Panic recovered")

				writeError(w, core.ErrInternal.WithMessagef("internal error: %v", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// mutatingPaths change engine state and only accept GET.
var mutatingPaths = map[string]bool{
	"/tap":         true,
	"/scroll-into": true,
}

// methodMiddleware admits GET everywhere and HEAD on read-only routes.
func (s *Server) methodMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allow := "GET, HEAD"
		if mutatingPaths[r.URL.Path] {
			allow = "GET"
		}
		if r.Method != http.MethodGet && (r.Method != http.MethodHead || mutatingPaths[r.URL.Path]) {
			w.Header().Set("Allow", allow)
			writeJSON(w, http.StatusMethodNotAllowed, Response{
				Status: core.StatusError,
				Code:   "method_not_allowed",
				Reason: fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware rejects requests beyond the configured rate with 429.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, core.ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
