package gate

import (
	"context"

	"ebauth/cmd/identity"
)

type identityKey struct{}

// WithIdentity stores the gate-resolved identity in ctx.
func WithIdentity(ctx context.Context, id identity.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by the gate, or Anonymous.
func IdentityFrom(ctx context.Context) identity.Identity {
	if id, ok := ctx.Value(identityKey{}).(identity.Identity); ok {
		return id
	}
	return identity.Anonymous
}
