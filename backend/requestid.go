package backend

import (
	"context"

	"github.com/google/uuid"
)

// HeaderXRequestID carries the logical call's ID on every attempt
const HeaderXRequestID = "X-Request-ID"

type requestIDKey struct{}

// WithRequestID attaches a request ID to ctx
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID from ctx if present
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// ensureRequestID keeps an existing ID so the retry and the session probe
// share the ID of the call that triggered them.
func ensureRequestID(ctx context.Context) (context.Context, string) {
	if id, ok := RequestIDFromContext(ctx); ok {
		return ctx, id
	}
	id := uuid.NewString()
	return WithRequestID(ctx, id), id
}
