package httputil

import (
	"context"
	"net/http"

	"mdbrowse/internal/auth"
)

// Context key type to avoid collisions
type contextKey string

const (
	actorKey     contextKey = "actor"
	requestIDKey contextKey = "requestID"
)

// WithActor adds the resolved actor to the request context
func WithActor(r *http.Request, actor *auth.Actor) *http.Request {
	ctx := context.WithValue(r.Context(), actorKey, actor)
	return r.WithContext(ctx)
}

// GetActor retrieves the actor from context, nil if the request is
// unauthenticated
func GetActor(r *http.Request) *auth.Actor {
	actor, _ := r.Context().Value(actorKey).(*auth.Actor)
	return actor
}

// WithRequestID adds a request ID to the request context
func WithRequestID(r *http.Request, id string) *http.Request {
	ctx := context.WithValue(r.Context(), requestIDKey, id)
	return r.WithContext(ctx)
}

// GetRequestID retrieves the request ID from context, empty if not set
func GetRequestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}
