package middleware

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const identityCtxKey = contextKey("identity")

// Identity is the typed result of authentication, produced once by the
// auth middleware and passed down instead of being re-derived per
// handler.
type Identity struct {
	UserID     primitive.ObjectID
	Username   string
	IsVerified bool
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey).(Identity)
	return id, ok
}

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, id)
}
