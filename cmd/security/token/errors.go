package token

import "errors"

// Public, stable errors for callers.
var (
	ErrExpired = errors.New("token expired")
	ErrInvalid = errors.New("token invalid")

	ErrUnknownFormat = errors.New("unknown token format")
	ErrSecretMissing = errors.New("token secret missing")
	ErrTTL           = errors.New("token ttl must be positive")
)
