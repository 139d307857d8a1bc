package http

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger attaches a request scoped logger to the context and records
// the start and completion of every request. The originating surface, when it
// identifies itself, is part of every line so broadcast loops between tabs
// can be traced from the log alone.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attrs := []any{
				"request_id", counter.Add(1),
				"method", r.Method,
				"path", r.URL.Path,
			}
			if origin := r.Header.Get(originHeader); origin != "" {
				attrs = append(attrs, "origin", origin)
			}
			logger := base.With(attrs...)

			ctx := ContextWithLogger(r.Context(), logger)
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(recorder, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed",
				"status", recorder.status,
				"duration", time.Since(start),
			)
		})
	}
}
