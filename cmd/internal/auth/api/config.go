package authapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls user API behavior.
type Config struct {
	// MaxBodyBytes caps form bodies before credentials are parsed out of them.
	MaxBodyBytes int64
	// TrustProxy makes action log records use X-Forwarded-For / X-Real-IP.
	TrustProxy bool
	// RequestTimeout bounds each API request, store calls included.
	RequestTimeout time.Duration
}

// LoadConfigFromEnv loads API config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		MaxBodyBytes:   envInt64("EBAUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB
		TrustProxy:     envBool("EBAUTH_TRUST_PROXY", false),
		RequestTimeout: envDuration("EBAUTH_REQUEST_TIMEOUT", 30*time.Second),
	}
	return cfg.normalize()
}

func (c Config) normalize() Config {
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	return c
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
