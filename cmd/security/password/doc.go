// Package password provides the directory's password hashing and verification.
//
// Digests are Argon2id over HMAC-SHA256(pepper, password):
//   - the pepper is the service-wide secret from the service descriptor;
//   - the salt is random per stored credential and kept next to the digest;
//   - cost parameters are tunable (via environment variables) and encoded in the digest.
//
// Security notes:
//   - Digest strings are treated as untrusted input during Verify and are validated accordingly.
//   - Verification refuses digests with parameters that exceed reasonable bounds.
package password
