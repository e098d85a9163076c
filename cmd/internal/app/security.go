package app

import (
	"errors"

	"ebauth/cmd/internal/tenant"
)

const (
	minStrongSecretBytes = 32
	minStrongPepperBytes = 16
)

// ValidateSecurityConfig enforces the startup secret policy.
//
// Fail-fast: with EBAUTH_REQUIRE_STRONG_SECRETS=true a short token secret or
// pepper stops the process instead of serving with weak keys.
func ValidateSecurityConfig(cfg Config, svc tenant.Config) error {
	if !cfg.RequireStrongSecrets {
		return nil
	}
	// Bytes, not runes: the secret is used as raw key material.
	if len(svc.TokenSecret) < minStrongSecretBytes {
		return errors.New("security policy: EBAUTH_REQUIRE_STRONG_SECRETS=true but the token secret is shorter than 32 bytes")
	}
	if len(svc.PasswordPepper) < minStrongPepperBytes {
		return errors.New("security policy: EBAUTH_REQUIRE_STRONG_SECRETS=true but the password pepper is shorter than 16 bytes")
	}
	return nil
}
