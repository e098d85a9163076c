package tenant

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment surface of the env source.
const (
	EnvServiceName    = "EBAUTH_SERVICE_NAME"
	EnvTokenSecret    = "EBAUTH_TOKEN_SECRET" // #nosec G101 -- env var name, not a credential.
	EnvTokenTimeout   = "EBAUTH_TOKEN_TIMEOUT"
	EnvPasswordPepper = "EBAUTH_PASSWORD_PEPPER"
	EnvTokenFormat    = "EBAUTH_TOKEN_FORMAT"
)

// FromEnv reads a descriptor from the process environment.
// EBAUTH_TOKEN_TIMEOUT is integer seconds.
func FromEnv() (Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup is FromEnv over an arbitrary lookup, for tests and embedding.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(k string) string {
		v, _ := lookup(k)
		return strings.TrimSpace(v)
	}

	cfg := Config{
		Name:           get(EnvServiceName),
		TokenSecret:    []byte(get(EnvTokenSecret)),
		PasswordPepper: []byte(get(EnvPasswordPepper)),
		TokenFormat:    get(EnvTokenFormat),
	}

	raw := get(EnvTokenTimeout)
	if raw == "" {
		return Config{}, fmt.Errorf("%w: %s is required", ErrInvalid, EnvTokenTimeout)
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s: not an integer", ErrInvalid, EnvTokenTimeout)
	}
	if cfg.TokenTimeout, err = timeoutFromSeconds(secs); err != nil {
		return Config{}, err
	}

	return cfg.Validate()
}
