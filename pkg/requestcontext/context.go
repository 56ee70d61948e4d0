// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets the values; the verification service reads them without
// importing net/http:
//
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests inject values directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
