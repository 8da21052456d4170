package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// requestLogger assigns every request a trace id (honoring a valid
// X-Trace-ID from the caller), opens a span for it, and logs start and
// finish with timing and status.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = uuid.NewString()
		}

		ctx, span := s.tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
				attribute.String("trace_id", traceID),
			))
		defer span.End()

		logger := s.logger.With("trace_id", traceID, "http_method", r.Method, "http_path", r.URL.Path)
		w.Header().Set("X-Trace-ID", traceID)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		logger.Info("request started")

		next.ServeHTTP(ww, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", ww.Status()))
		logger.Info("request finished",
			"status_code", ww.Status(),
			"bytes_written", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds())
	})
}
