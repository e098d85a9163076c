package password

import "testing"

func BenchmarkDigest_DefaultConfig(b *testing.B) {
	h := NewHasher(DefaultConfig(), []byte("pepper"))
	salt, err := h.NewSalt()
	if err != nil {
		b.Fatalf("NewSalt error: %v", err)
	}

	b.ResetTimer()
	for b.Loop() {
		if _, err := h.Digest("this is a strong password 123!", salt); err != nil {
			b.Fatalf("Digest error: %v", err)
		}
	}
}

func BenchmarkVerify_DefaultConfig(b *testing.B) {
	h := NewHasher(DefaultConfig(), []byte("pepper"))
	pw := "this is a strong password 123!"
	salt, err := h.NewSalt()
	if err != nil {
		b.Fatalf("NewSalt error: %v", err)
	}
	d, err := h.Digest(pw, salt)
	if err != nil {
		b.Fatalf("Digest error: %v", err)
	}

	b.ResetTimer()
	for b.Loop() {
		ok, err := h.Verify(pw, salt, d)
		if err != nil || !ok {
			b.Fatalf("Verify failed: ok=%v err=%v", ok, err)
		}
	}
}
