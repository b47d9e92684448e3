package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	// LoggerKey holds the request-scoped *zap.Logger
	LoggerKey contextKey = "logger"
	// RequestIDKey holds the inbound request ID
	RequestIDKey contextKey = "request_id"
	// UserIDKey holds the authenticated caller's user ID
	UserIDKey contextKey = "user_id"
)

// WithContext stores logger on ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the stored logger or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID and a logger carrying it
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return withID(ctx, logger, RequestIDKey, requestID)
}

// WithUserID stores the caller's user ID and a logger carrying it
func WithUserID(ctx context.Context, logger *zap.Logger, userID string) (context.Context, *zap.Logger) {
	return withID(ctx, logger, UserIDKey, userID)
}

func withID(ctx context.Context, logger *zap.Logger, key contextKey, value string) (context.Context, *zap.Logger) {
	enriched := logger.With(zap.String(string(key), value))
	ctx = context.WithValue(ctx, key, value)
	return WithContext(ctx, enriched), enriched
}

func stringValue(ctx context.Context, key contextKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// GetRequestID returns the request ID on ctx, or ""
func GetRequestID(ctx context.Context) string { return stringValue(ctx, RequestIDKey) }

// GetUserID returns the caller's user ID on ctx, or ""
func GetUserID(ctx context.Context) string { return stringValue(ctx, UserIDKey) }

// GetTraceID returns the active trace ID, or "" outside a span
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// Detach returns a context that survives cancellation of ctx but keeps its
// logger, request and user IDs and span context, so background jobs stay
// correlated with the request that scheduled them.
func Detach(ctx context.Context) context.Context {
	detached := context.Background()
	if l, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		detached = WithContext(detached, l)
	}
	for _, key := range []contextKey{RequestIDKey, UserIDKey} {
		if v := stringValue(ctx, key); v != "" {
			detached = context.WithValue(detached, key, v)
		}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		detached = trace.ContextWithSpanContext(detached, sc)
	}
	return detached
}

// ContextLogger appends trace, request and user IDs from its context to
// every entry.
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
	// loggers stored by WithRequestID/WithUserID already carry the IDs
	addIDs bool
}

// L returns a ContextLogger over the logger stored on ctx.
//
//	logger.L(ctx).Info("Contact linked", zap.String("contact_id", id))
func L(ctx context.Context) *ContextLogger {
	l, stored := ctx.Value(LoggerKey).(*zap.Logger)
	if !stored {
		l = zap.NewNop()
	}
	return &ContextLogger{ctx: ctx, logger: l, addIDs: !stored}
}

// WithLogger returns a ContextLogger over a service's own logger
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextLogger{ctx: ctx, logger: logger, addIDs: true}
}

func (cl *ContextLogger) correlation() []zap.Field {
	fields := make([]zap.Field, 0, 4)
	if sc := trace.SpanContextFromContext(cl.ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()))
	}
	if !cl.addIDs {
		return fields
	}
	if id := GetRequestID(cl.ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := GetUserID(cl.ctx); id != "" {
		fields = append(fields, zap.String("user_id", id))
	}
	return fields
}

// With returns a child that adds fields to every entry
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, logger: cl.logger.With(fields...), addIDs: cl.addIDs}
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.Zap().Debug(msg, fields...)
}

func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.Zap().Info(msg, fields...)
}

func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.Zap().Warn(msg, fields...)
}

func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.Zap().Error(msg, fields...)
}

// Zap returns the underlying logger with the correlation fields attached
func (cl *ContextLogger) Zap() *zap.Logger {
	if f := cl.correlation(); len(f) > 0 {
		return cl.logger.With(f...)
	}
	return cl.logger
}
