package internal

import (
	"context"
	"strconv"
	"time"
)

type ctxKey string

const ContextActorKey ctxKey = "actorID"

func ActorIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if id, ok := ctx.Value(ContextActorKey).(int64); ok {
		return id
	}
	return 0
}

func ContextWithActorID(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, ContextActorKey, actorID)
}

// ActorLabel renders the actor for log lines; empty when no actor is attached.
func ActorLabel(ctx context.Context) string {
	id := ActorIDFromContext(ctx)
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
