// Package middleware provides the HTTP middleware stack: request tracing,
// metrics, and structured request logging, each wired to the shared
// telemetry instance.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/okarpenko/weather-range-service/internal/observability"
)

type contextKey string

const (
	CorrelationIDKey contextKey = "correlation-id"
	RequestIDKey     contextKey = "request-id"
)

// ObservabilityMiddleware carries the telemetry and logger shared by the
// tracing, metrics, and logging middleware.
type ObservabilityMiddleware struct {
	telemetry *observability.Telemetry
	logger    *zap.Logger
}

// NewObservabilityMiddleware creates the middleware set around the given
// telemetry and logger.
func NewObservabilityMiddleware(telemetry *observability.Telemetry, logger *zap.Logger) *ObservabilityMiddleware {
	return &ObservabilityMiddleware{
		telemetry: telemetry,
		logger:    logger,
	}
}

// TracingMiddleware starts a server span for each request, propagates any
// incoming trace context, and stamps correlation and request IDs onto the
// context and response headers.
func (m *ObservabilityMiddleware) TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := m.telemetry.Tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.url", r.URL.String()),
				attribute.String("http.host", r.Host),
				attribute.String("http.user_agent", r.UserAgent()),
				attribute.String("http.client_ip", GetClientIP(r)),
			),
		)

		defer span.End()

		correlationID := r.Header.Get("X-Correlation-ID")

		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		requestID := uuid.New().String()

		ctx = context.WithValue(ctx, CorrelationIDKey, correlationID)
		ctx = context.WithValue(ctx, RequestIDKey, requestID)

		span.SetAttributes(
			attribute.String("correlation_id", correlationID),
			attribute.String("request_id", requestID),
		)

		w.Header().Set("X-Correlation-ID", correlationID)
		w.Header().Set("X-Request-ID", requestID)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", wrapped.statusCode))

		if wrapped.statusCode >= 400 {
			span.SetStatus(codes.Error, http.StatusText(wrapped.statusCode))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	})
}

// MetricsMiddleware records request count, duration, and error metrics,
// labelled with the mux route template rather than the raw path.
func (m *ObservabilityMiddleware) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := r.URL.Path

		if route := mux.CurrentRoute(r); route != nil {
			if template, err := route.GetPathTemplate(); err == nil {
				path = template
			}
		}

		m.telemetry.RecordRequest(r.Context(), r.Method, path, wrapped.statusCode, time.Since(start))
	})
}

// LoggingMiddleware logs the start and end of each request with its
// correlation context, status, size, and duration.
func (m *ObservabilityMiddleware) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		logger := m.logger.With(
			zap.String("correlation_id", GetCorrelationID(r.Context())),
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
		)

		logger.Info("request started")

		wrapped := &responseWriterWithSize{
			responseWriter: responseWriter{ResponseWriter: w, statusCode: http.StatusOK},
		}

		next.ServeHTTP(wrapped, r)

		logger.Info("request completed",
			zap.Int("status_code", wrapped.statusCode),
			zap.Int64("bytes_written", wrapped.bytesWritten),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

type responseWriterWithSize struct {
	responseWriter
	bytesWritten int64
}

func (rw *responseWriterWithSize) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)

	return n, err
}

// GetCorrelationID returns the correlation ID stored on the context, or an
// empty string outside the middleware stack.
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}

	return ""
}

// GetRequestID returns the per-request ID stored on the context, or an
// empty string outside the middleware stack.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}

	return ""
}
