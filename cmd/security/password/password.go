package password

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Version = 19 // argon2.Version is 0x13 (19)

	minSaltLen = 8
	maxSaltLen = 64
)

// Hasher turns plaintext passwords into storable digests for one service.
// It is immutable after construction and safe for concurrent use.
type Hasher struct {
	cfg    Config
	pepper []byte
}

// NewHasher returns a Hasher bound to cfg and the service pepper.
// The pepper is copied; callers may reuse their slice.
func NewHasher(cfg Config, pepper []byte) *Hasher {
	return &Hasher{cfg: cfg, pepper: append([]byte(nil), pepper...)}
}

// Config returns the hasher configuration.
func (h *Hasher) Config() Config { return h.cfg }

// Validate checks plaintext against the configured policy.
func (h *Hasher) Validate(plaintext string) error { return h.cfg.Validate(plaintext) }

// NewSalt returns a fresh random per-credential salt.
func (h *Hasher) NewSalt() ([]byte, error) {
	salt := make([]byte, h.cfg.Params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}
	return salt, nil
}

// Digest derives the digest of plaintext for salt under the configured cost.
// It is deterministic: equal (plaintext, salt, pepper, params) give equal output.
//
// Format:
// $argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<key_b64>
func (h *Hasher) Digest(plaintext string, salt []byte) (string, error) {
	if len(salt) < minSaltLen || len(salt) > maxSaltLen {
		return "", ErrInvalidSalt
	}
	p := h.cfg.Params
	key := argon2.IDKey(h.peppered(plaintext), salt, p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLength)
	return encode(p, key), nil
}

// Verify reports whether plaintext matches digest for salt.
// Returns (true, nil) for a match, (false, nil) for mismatch,
// and (false, ErrInvalidHash) for malformed/unsupported digests.
func (h *Hasher) Verify(plaintext string, salt []byte, digest string) (bool, error) {
	params, expected, err := decode(digest)
	if err != nil {
		return false, err
	}
	if len(salt) < minSaltLen || len(salt) > maxSaltLen {
		return false, ErrInvalidSalt
	}

	// Refuse digests whose cost is far above ours: stored rows are untrusted input.
	if !withinReasonableBounds(params, h.cfg.Params) {
		return false, ErrInvalidHash
	}

	key := argon2.IDKey(
		h.peppered(plaintext),
		salt,
		params.Iterations,
		params.MemoryKiB,
		params.Parallelism,
		uint32(len(expected)), // #nosec G115 -- expected length is bounded by decode().
	)

	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

// peppered mixes the service pepper into the password before key derivation.
func (h *Hasher) peppered(plaintext string) []byte {
	m := hmac.New(sha256.New, h.pepper)
	_, _ = m.Write([]byte(plaintext))
	return m.Sum(nil)
}

func encode(p Argon2idParams, key []byte) string {
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s",
		argon2Version,
		p.MemoryKiB,
		p.Iterations,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(key),
	)
}

func withinReasonableBounds(got Argon2idParams, limits Argon2idParams) bool {
	// Older/smaller settings verify; wildly larger ones do not.
	switch {
	case got.MemoryKiB > limits.MemoryKiB*2:
		return false
	case got.Iterations > limits.Iterations*2:
		return false
	case uint16(got.Parallelism) > uint16(limits.Parallelism)*2:
		return false
	case got.KeyLength < 16 || got.KeyLength > 128:
		return false
	}
	return true
}

// decode parses an encoded digest and returns its params and derived key.
func decode(encoded string) (Argon2idParams, []byte, error) {
	// Expected: $argon2id$v=19$m=65536,t=3,p=1$<key>
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[0] != "" || parts[1] != "argon2id" || parts[2] != "v=19" {
		return Argon2idParams{}, nil, ErrInvalidHash
	}

	var mem, it, par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &it, &par); err != nil {
		return Argon2idParams{}, nil, ErrInvalidHash
	}
	if mem == 0 || it == 0 || par == 0 || par > 255 {
		return Argon2idParams{}, nil, ErrInvalidHash
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(key) == 0 {
		return Argon2idParams{}, nil, ErrInvalidHash
	}

	return Argon2idParams{
		MemoryKiB:   mem,
		Iterations:  it,
		Parallelism: uint8(par),       // #nosec G115 -- checked <= 255 above.
		KeyLength:   uint32(len(key)), // #nosec G115 -- bounded by the encoded string length.
	}, key, nil
}
