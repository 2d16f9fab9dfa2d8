package trace

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const traceIDKey contextKey = "traceID"

// NewID returns a fresh id for following one trigger through the logs,
// the event bus and the journal.
func NewID() string {
	return uuid.NewString()
}

func ContextWith(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func FromContext(ctx context.Context) (string, bool) {
	traceID, ok := ctx.Value(traceIDKey).(string)
	return traceID, ok
}

// Ensure returns ctx's trace id, attaching a new one if it has none.
func Ensure(ctx context.Context) (context.Context, string) {
	if id, ok := FromContext(ctx); ok {
		return ctx, id
	}
	id := NewID()
	return ContextWith(ctx, id), id
}
