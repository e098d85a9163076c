package token

import (
	"fmt"
	"strings"
	"time"

	"ebauth/cmd/identity"
)

// Supported formats.
const (
	FormatJWT    = "jwt"
	FormatPASETO = "paseto"
)

// Codec signs and verifies identity tokens for one service.
// Implementations are immutable and safe for concurrent use.
type Codec interface {
	// Sign returns a token for id issued at now, expiring at now + TTL.
	Sign(id identity.Identity, now time.Time) (string, error)
	// Verify decodes tok as of now. Errors are ErrExpired or ErrInvalid.
	Verify(tok string, now time.Time) (identity.Identity, error)
}

// Config keys a codec.
type Config struct {
	// Issuer is stamped into tokens and required on verify (the service name).
	Issuer string
	Secret []byte
	TTL    time.Duration
}

func (c Config) validate() error {
	switch {
	case len(c.Secret) == 0:
		return ErrSecretMissing
	case c.TTL <= 0:
		return ErrTTL
	}
	return nil
}

// NewCodec builds the codec for format. An empty format selects jwt.
func NewCodec(format string, cfg Config) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJWT:
		return NewJWTCodec(cfg)
	case FormatPASETO:
		return NewPASETOCodec(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// window returns the issued-at and expiry stamps at second precision.
func window(now time.Time, ttl time.Duration) (iat, exp time.Time) {
	iat = now.UTC().Truncate(time.Second)
	return iat, iat.Add(ttl).Truncate(time.Second)
}

func newTokenID(now time.Time) string {
	id, err := identity.NewULID(now)
	if err != nil {
		// crypto/rand failure; the jti is informational only.
		return ""
	}
	return id
}
