// Package gate enforces an optional privilege requirement around protected
// operations. It is privilege-name agnostic; "user" and "admin" are just the
// conventional tiers.
package gate

import (
	"context"
	"errors"
	"fmt"

	"ebauth/cmd/identity"
	"ebauth/cmd/internal/auth/authn"
	"ebauth/cmd/internal/metrics"
)

// ErrDenied is the sentinel behind every DeniedError.
var ErrDenied = errors.New("access denied")

// DeniedError reports that the caller is Anonymous or lacks Required.
type DeniedError struct {
	Required string
}

func (e DeniedError) Error() string {
	return fmt.Sprintf("%v: privilege %q required", ErrDenied, e.Required)
}

func (e DeniedError) Unwrap() error { return ErrDenied }

// Resolver is the identity source a Gate consults.
type Resolver interface {
	Resolve(ctx context.Context, creds authn.Credentials) (identity.Identity, error)
}

// Gate holds an optional required privilege. The zero value is Public.
type Gate struct {
	required string
	enforced bool
}

// Public lets every caller through, Anonymous included.
func Public() Gate { return Gate{} }

// Authenticated requires the "user" privilege.
func Authenticated() Gate { return Require(identity.PrivilegeUser) }

// Admin requires the "admin" privilege.
func Admin() Gate { return Require(identity.PrivilegeAdmin) }

// Require returns a gate for privilege p.
func Require(p string) Gate { return Gate{required: p, enforced: true} }

// Required returns the privilege this gate enforces, if any.
func (g Gate) Required() (string, bool) { return g.required, g.enforced }

func (g Gate) String() string {
	if !g.enforced {
		return "public"
	}
	return g.required
}

// Check decides for an already resolved identity.
func (g Gate) Check(id identity.Identity) error {
	if !g.enforced {
		return nil
	}
	if id.IsAnonymous() || !id.Has(g.required) {
		return DeniedError{Required: g.required}
	}
	return nil
}

// Authorize resolves creds and applies the gate. Store failures from the
// resolver are returned unchanged so the request fails instead of being denied.
func (g Gate) Authorize(ctx context.Context, r Resolver, creds authn.Credentials) (identity.Identity, error) {
	id, err := r.Resolve(ctx, creds)
	if err != nil {
		return identity.Anonymous, err
	}
	if err := g.Check(id); err != nil {
		metrics.GateDecisionsTotal.WithLabelValues(g.String(), "deny").Inc()
		return identity.Anonymous, err
	}
	metrics.GateDecisionsTotal.WithLabelValues(g.String(), "allow").Inc()
	return id, nil
}

// Run authorizes and then invokes op with the resolved identity.
func Run[T any](ctx context.Context, g Gate, r Resolver, creds authn.Credentials, op func(context.Context, identity.Identity) (T, error)) (T, error) {
	id, err := g.Authorize(ctx, r, creds)
	if err != nil {
		var zero T
		return zero, err
	}
	return op(WithIdentity(ctx, id), id)
}
