// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets the values; services read them without importing net/http.
//
//	actor := requestcontext.Actor(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests inject values directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithActor(ctx, requestcontext.ActorInfo{ID: "alice", Role: "supervisor"})
package requestcontext

import (
	"context"
	"slices"
	"time"
)

const (
	RoleReviewer   = "reviewer"
	RoleSupervisor = "supervisor"
)

type (
	actorKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyActor       = actorKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// ActorInfo identifies the authenticated reviewer or supervisor acting on a request.
type ActorInfo struct {
	ID   string
	Role string
}

// HasRole reports whether the actor holds any of the required roles. A supervisor
// also satisfies reviewer.
func (a ActorInfo) HasRole(required ...string) bool {
	if a.Role == RoleSupervisor && slices.Contains(required, RoleReviewer) {
		return true
	}
	return slices.Contains(required, a.Role)
}

// IsZero reports whether no actor is set.
func (a ActorInfo) IsZero() bool {
	return a.ID == ""
}

// Actor retrieves the authenticated actor from the context.
// Returns the zero value if not set.
func Actor(ctx context.Context) ActorInfo {
	if actor, ok := ctx.Value(ContextKeyActor).(ActorInfo); ok {
		return actor
	}
	return ActorInfo{}
}

// WithActor injects an actor into the context.
func WithActor(ctx context.Context, actor ActorInfo) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// RequestID retrieves the correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
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
