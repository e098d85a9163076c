package token

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ebauth/cmd/identity"
)

type jwtClaims struct {
	User       string   `json:"user"`
	Privileges []string `json:"privileges"`
	jwt.RegisteredClaims
}

// JWTCodec is the HS256 Codec.
type JWTCodec struct {
	cfg Config
}

// NewJWTCodec returns an HS256 codec. The secret is used as the HMAC key as is;
// 32 bytes or more is recommended.
func NewJWTCodec(cfg Config) (*JWTCodec, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Secret = slices.Clone(cfg.Secret)
	return &JWTCodec{cfg: cfg}, nil
}

func (c *JWTCodec) Sign(id identity.Identity, now time.Time) (string, error) {
	if id.IsAnonymous() {
		return "", ErrInvalid
	}
	iat, exp := window(now, c.cfg.TTL)

	claims := &jwtClaims{
		User:       id.User,
		Privileges: nonNil(id.Privileges),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.cfg.Issuer,
			Subject:   id.User,
			ID:        newTokenID(iat),
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.Secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

func (c *JWTCodec) Verify(tok string, now time.Time) (identity.Identity, error) {
	if tok == "" {
		return identity.Anonymous, ErrInvalid
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	if c.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.cfg.Issuer))
	}

	var claims jwtClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(*jwt.Token) (any, error) {
		return c.cfg.Secret, nil
	}, opts...)
	if err != nil {
		// Claims errors are joined; expiry alone counts as expired.
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenInvalidIssuer) {
			return identity.Anonymous, ErrExpired
		}
		return identity.Anonymous, ErrInvalid
	}
	if !parsed.Valid || claims.User == "" {
		return identity.Anonymous, ErrInvalid
	}

	return identity.Identity{User: claims.User, Privileges: nonNil(claims.Privileges)}, nil
}

func nonNil(p []string) []string {
	if p == nil {
		return []string{}
	}
	return slices.Clone(p)
}
