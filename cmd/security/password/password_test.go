package password

import (
	"errors"
	"strings"
	"testing"
)

// testConfig keeps Argon2 cheap so the suite stays fast.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	return cfg
}

func mustSalt(t *testing.T, h *Hasher) []byte {
	t.Helper()
	salt, err := h.NewSalt()
	if err != nil {
		t.Fatalf("NewSalt error: %v", err)
	}
	return salt
}

func TestDigestAndVerify_OK(t *testing.T) {
	h := NewHasher(testConfig(), []byte("pepper"))
	salt := mustSalt(t, h)

	d, err := h.Digest("pw", salt)
	if err != nil {
		t.Fatalf("Digest error: %v", err)
	}
	if !strings.HasPrefix(d, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected digest format: %q", d)
	}

	ok, err := h.Verify("pw", salt, d)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatalf("expected match")
	}
}

func TestDigest_Deterministic(t *testing.T) {
	h := NewHasher(testConfig(), []byte("pepper"))
	salt := mustSalt(t, h)

	a, err := h.Digest("same", salt)
	if err != nil {
		t.Fatalf("Digest error: %v", err)
	}
	b, err := h.Digest("same", salt)
	if err != nil {
		t.Fatalf("Digest error: %v", err)
	}
	if a != b {
		t.Fatalf("expected equal digests, got %q and %q", a, b)
	}
}

func TestDigest_SaltDistinguishesRows(t *testing.T) {
	h := NewHasher(testConfig(), []byte("pepper"))

	a, _ := h.Digest("same", mustSalt(t, h))
	b, _ := h.Digest("same", mustSalt(t, h))
	if a == b {
		t.Fatalf("expected different digests for different salts")
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	h := NewHasher(testConfig(), []byte("pepper"))
	salt := mustSalt(t, h)

	d, err := h.Digest("right", salt)
	if err != nil {
		t.Fatalf("Digest error: %v", err)
	}

	ok, err := h.Verify("wrong", salt, d)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestVerify_PepperParticipates(t *testing.T) {
	cfg := testConfig()
	a := NewHasher(cfg, []byte("pepper-a"))
	b := NewHasher(cfg, []byte("pepper-b"))
	salt := mustSalt(t, a)

	d, err := a.Digest("pw", salt)
	if err != nil {
		t.Fatalf("Digest error: %v", err)
	}

	ok, err := b.Verify("pw", salt, d)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatalf("digest must not verify under a different pepper")
	}
}

func TestNewHasher_CopiesPepper(t *testing.T) {
	pepper := []byte("pepper")
	h := NewHasher(testConfig(), pepper)
	salt := mustSalt(t, h)

	before, _ := h.Digest("pw", salt)
	pepper[0] = 'X'
	after, _ := h.Digest("pw", salt)

	if before != after {
		t.Fatalf("mutating caller slice changed hasher output")
	}
}

func TestVerify_InvalidHash(t *testing.T) {
	h := NewHasher(testConfig(), nil)
	salt := mustSalt(t, h)

	for _, d := range []string{
		"not-a-hash",
		"",
		"$argon2i$v=19$m=8192,t=1,p=1$AAAA",
		"$argon2id$v=18$m=8192,t=1,p=1$AAAA",
		"$argon2id$v=19$m=0,t=1,p=1$AAAA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!",
	} {
		ok, err := h.Verify("whatever", salt, d)
		if !errors.Is(err, ErrInvalidHash) {
			t.Fatalf("%q: expected ErrInvalidHash, got %v", d, err)
		}
		if ok {
			t.Fatalf("%q: expected false", d)
		}
	}
}

func TestVerify_RejectsExcessiveCost(t *testing.T) {
	h := NewHasher(testConfig(), nil)
	salt := mustSalt(t, h)

	// Memory far above the configured ceiling.
	d := "$argon2id$v=19$m=4194304,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	if _, err := h.Verify("pw", salt, d); !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}

func TestDigest_InvalidSalt(t *testing.T) {
	h := NewHasher(testConfig(), nil)

	if _, err := h.Digest("pw", []byte("short")); !errors.Is(err, ErrInvalidSalt) {
		t.Fatalf("expected ErrInvalidSalt, got %v", err)
	}
}

func TestValidate_MinMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.MinLength = 12
	cfg.Policy.MaxLength = 16

	if err := cfg.Validate("short"); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}

	if err := cfg.Validate("this password is definitely too long"); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}

	if err := cfg.Validate("goodpassw0rd!"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestValidate_DefaultAcceptsShortPasswords(t *testing.T) {
	h := NewHasher(DefaultConfig(), nil)

	if err := h.Validate("pw"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := h.Validate(""); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort for empty, got %v", err)
	}
}

func TestPolicy_RejectVeryWeak(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.RejectVeryWeak = true
	cfg.Policy.MinLength = 6

	for _, pw := range []string{"password", "11111111", "aaaaaaa", "Qwerty"} {
		if err := cfg.Validate(pw); err != ErrWeakPassword {
			t.Fatalf("%q: expected ErrWeakPassword, got %v", pw, err)
		}
	}
	if err := cfg.Validate("a-very-ok-pass"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}
