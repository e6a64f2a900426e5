// Package requestcontext provides HTTP-independent accessors for
// request-scoped values. Middleware sets them; services read them without
// importing net/http.
package requestcontext

import (
	"context"

	id "vigil/pkg/domain"
)

type (
	candidateIDKey struct{}
	sessionIDKey   struct{}
	requestIDKey   struct{}
)

// CandidateID retrieves the authenticated candidate ID from the context.
// Returns the zero value if not set.
func CandidateID(ctx context.Context) id.CandidateID {
	if v, ok := ctx.Value(candidateIDKey{}).(id.CandidateID); ok {
		return v
	}
	return id.CandidateID{}
}

// WithCandidateID injects a candidate ID into the context.
func WithCandidateID(ctx context.Context, candidateID id.CandidateID) context.Context {
	return context.WithValue(ctx, candidateIDKey{}, candidateID)
}

// SessionID retrieves the session ID bound to the request token.
func SessionID(ctx context.Context) id.SessionID {
	if v, ok := ctx.Value(sessionIDKey{}).(id.SessionID); ok {
		return v
	}
	return id.SessionID{}
}

// WithSessionID injects a session ID into the context.
func WithSessionID(ctx context.Context, sessionID id.SessionID) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// RequestID retrieves the request correlation ID.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithRequestID injects a request correlation ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}
