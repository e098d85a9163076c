// Package token signs identities into self-contained, time-limited tokens and
// verifies them back.
//
// Tokens are stateless: validity is decided by the signature under the
// service's current secret and by the embedded expiry. Revocation happens only
// by rotating the secret.
//
// Two formats are supported:
//   - jwt: HS256 JSON Web Tokens keyed directly by the secret (default);
//   - paseto: PASETO v4.local, keyed by HKDF-SHA256(secret).
//
// Verify distinguishes exactly two failures: ErrExpired (signature good,
// expiry reached) and ErrInvalid (everything else).
package token
