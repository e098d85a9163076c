// Package authn resolves the caller identity of a request from its credential
// carrier and issues tokens for resolved identities.
//
// Precedence:
//  1. FormToken: verify; any failure is Anonymous, with no fallback.
//  2. BasicAuth: verify the username as a token. A clean decode wins; an
//     expired token is Anonymous; an invalid one falls back to a directory
//     lookup with password verification.
//  3. None: Anonymous.
//
// Authentication ambiguity never surfaces as an error. Only credential store
// failures do, so callers can fail the request instead of denying it.
package authn

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ebauth/cmd/identity"
	"ebauth/cmd/internal/metrics"
	"ebauth/cmd/internal/tenant"
	"ebauth/cmd/security/password"
	"ebauth/cmd/security/token"
)

// Resolver turns Credentials into an Identity for one service.
// Safe for concurrent use.
type Resolver struct {
	service string
	store   identity.Store
	codec   token.Codec
	hasher  *password.Hasher

	now func() time.Time
	log *slog.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger used for store failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver wires a Resolver for cfg.Name.
func NewResolver(cfg tenant.Config, store identity.Store, codec token.Codec, hasher *password.Hasher, opts ...Option) *Resolver {
	r := &Resolver{
		service: cfg.Name,
		store:   store,
		codec:   codec,
		hasher:  hasher,
		now:     time.Now,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Service returns the service this resolver is scoped to.
func (r *Resolver) Service() string { return r.service }

// Resolve returns the caller identity, possibly Anonymous.
// The error is non-nil only for credential store failures (identity.ErrUnavailable).
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) (identity.Identity, error) {
	switch creds.Kind() {
	case KindFormToken:
		id, err := r.codec.Verify(creds.Token(), r.now())
		if err != nil {
			count(metrics.SourceFormToken, tokenOutcome(err))
			return identity.Anonymous, nil
		}
		count(metrics.SourceFormToken, metrics.OutcomeIdentity)
		return id, nil

	case KindBasicAuth:
		username, pw := creds.Basic()

		id, err := r.codec.Verify(username, r.now())
		switch {
		case err == nil:
			count(metrics.SourceBasicToken, metrics.OutcomeIdentity)
			return id, nil
		case errors.Is(err, token.ErrExpired):
			count(metrics.SourceBasicToken, metrics.OutcomeExpired)
			return identity.Anonymous, nil
		}
		return r.lookup(ctx, username, pw)

	default:
		count(metrics.SourceNone, metrics.OutcomeAnonymous)
		return identity.Anonymous, nil
	}
}

// lookup authenticates a user/password pair against the directory.
func (r *Resolver) lookup(ctx context.Context, user, pw string) (identity.Identity, error) {
	if user == "" {
		count(metrics.SourceBasicPassword, metrics.OutcomeAnonymous)
		return identity.Anonymous, nil
	}

	cred, err := r.store.Get(ctx, r.service, user)
	switch {
	case err == nil:
	case identity.IsNotFound(err), identity.IsInvalidInput(err):
		count(metrics.SourceBasicPassword, metrics.OutcomeAnonymous)
		return identity.Anonymous, nil
	default:
		count(metrics.SourceBasicPassword, metrics.OutcomeError)
		r.log.ErrorContext(ctx, "authn.store.fail", "service", r.service, "err", err)
		return identity.Anonymous, err
	}

	ok, err := r.hasher.Verify(pw, cred.Salt, cred.PasswordDigest)
	if err != nil {
		// A row we can't verify against authenticates nobody.
		r.log.WarnContext(ctx, "authn.digest.unusable", "service", r.service, "err", err)
		count(metrics.SourceBasicPassword, metrics.OutcomeInvalid)
		return identity.Anonymous, nil
	}
	if !ok {
		count(metrics.SourceBasicPassword, metrics.OutcomeAnonymous)
		return identity.Anonymous, nil
	}

	count(metrics.SourceBasicPassword, metrics.OutcomeIdentity)
	return cred.Identity(), nil
}

// GetTokenResult is the token issuance payload. Token is nil for Anonymous.
type GetTokenResult struct {
	Token *string `json:"token"`
}

// GetToken tokenizes override when given, else the identity resolved from creds.
// Anonymous yields a nil token.
func (r *Resolver) GetToken(ctx context.Context, override *identity.Identity, creds Credentials) (GetTokenResult, error) {
	var id identity.Identity
	if override != nil {
		id = *override
	} else {
		var err error
		if id, err = r.Resolve(ctx, creds); err != nil {
			return GetTokenResult{}, err
		}
	}

	if id.IsAnonymous() {
		return GetTokenResult{}, nil
	}

	tok, err := r.codec.Sign(id, r.now())
	if err != nil {
		return GetTokenResult{}, err
	}
	metrics.TokensIssuedTotal.Inc()
	return GetTokenResult{Token: &tok}, nil
}

func tokenOutcome(err error) string {
	if errors.Is(err, token.ErrExpired) {
		return metrics.OutcomeExpired
	}
	return metrics.OutcomeInvalid
}

func count(source, outcome string) {
	metrics.ResolutionsTotal.WithLabelValues(source, outcome).Inc()
}
