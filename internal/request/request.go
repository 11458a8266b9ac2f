package request

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const requestIDContextKey contextKey = "request_id"

// RequestIDContextKey returns the context key used for request IDs. Exposed for tests that inject non-string values.
func RequestIDContextKey() contextKey { return requestIDContextKey }

// HeaderRequestID is the header the backend correlates client requests by.
const HeaderRequestID = "X-Request-ID"

// WithRequestID returns a context carrying id. Backend calls made with it reuse
// the id instead of generating one, so one user action shares one id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

// RequestIDFromContext returns the request ID attached to ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// EnsureRequestID returns ctx unchanged if it already carries an ID, otherwise
// a child context with a new random one.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if id := RequestIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithRequestID(ctx, id), id
}
