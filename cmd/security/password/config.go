package password

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy controls which plaintext passwords are accepted for new credentials.
type Policy struct {
	MinLength int
	MaxLength int
	// RejectVeryWeak enables a minimal trivial-pattern rejection.
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns a strong Argon2id baseline and a permissive length policy.
// The directory historically accepted any non-empty password, so MinLength is 1;
// deployments tighten it via env.
func DefaultConfig() Config {
	// CPU-aware parallelism, clamped to [1..4] to keep resource usage predictable in containers.
	threads := min(max(runtime.NumCPU(), 1), 4)

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,      // 64 MiB
			Iterations:  3,              // interactive logins
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above; safe conversion.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength: 1,
			MaxLength: 1024,
		},
	}
}

// Env surface read by FromEnv.
const (
	EnvMinLen         = "EBAUTH_PASSWORD_MIN_LEN"
	EnvMaxLen         = "EBAUTH_PASSWORD_MAX_LEN"
	EnvRejectVeryWeak = "EBAUTH_PASSWORD_REJECT_VERY_WEAK"
	EnvMemoryKiB      = "EBAUTH_ARGON2_MEMORY_KIB"
	EnvIterations     = "EBAUTH_ARGON2_ITERATIONS"
	EnvParallelism    = "EBAUTH_ARGON2_PARALLELISM"
	EnvSaltLen        = "EBAUTH_ARGON2_SALT_LEN"
	EnvKeyLen         = "EBAUTH_ARGON2_KEY_LEN"
)

// FromEnv loads config from environment variables on top of DefaultConfig.
// Unset variables keep their defaults; set but invalid variables are errors.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	ints := []struct {
		key      string
		min, max int
		dst      *int
	}{
		{EnvMinLen, 1, 1024, &cfg.Policy.MinLength},
		{EnvMaxLen, 1, 4096, &cfg.Policy.MaxLength},
	}
	for _, f := range ints {
		if v, ok := os.LookupEnv(f.key); ok {
			n, err := atoiRange(v, f.min, f.max)
			if err != nil {
				return Config{}, fmt.Errorf("%s: %w", f.key, err)
			}
			*f.dst = n
		}
	}

	if v, ok := os.LookupEnv(EnvRejectVeryWeak); ok {
		b, err := parseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvRejectVeryWeak, err)
		}
		cfg.Policy.RejectVeryWeak = b
	}

	u32s := []struct {
		key      string
		min, max uint32
		dst      *uint32
	}{
		{EnvMemoryKiB, 8 * 1024, 1024 * 1024, &cfg.Params.MemoryKiB}, // 8 MiB .. 1 GiB
		{EnvIterations, 1, 20, &cfg.Params.Iterations},
		{EnvSaltLen, 8, 64, &cfg.Params.SaltLength},
		{EnvKeyLen, 16, 64, &cfg.Params.KeyLength},
	}
	for _, f := range u32s {
		if v, ok := os.LookupEnv(f.key); ok {
			u, err := atou32Range(v, f.min, f.max)
			if err != nil {
				return Config{}, fmt.Errorf("%s: %w", f.key, err)
			}
			*f.dst = u
		}
	}

	if v, ok := os.LookupEnv(EnvParallelism); ok {
		u, err := atou32Range(v, 1, math.MaxUint8)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvParallelism, err)
		}
		cfg.Params.Parallelism = uint8(u) // #nosec G115 -- bounded to MaxUint8 above.
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

func atoiRange(s string, minVal, maxVal int) (int, error) {
	i64, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	i := int(i64)
	if i < minVal || i > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return i, nil
}

func atou32Range(s string, minVal, maxVal uint32) (uint32, error) {
	u64, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an unsigned integer")
	}
	u := uint32(u64)
	if u < minVal || u > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return u, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean")
	}
}
