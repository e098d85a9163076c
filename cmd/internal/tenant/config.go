// Package tenant holds the per-service descriptor the auth core is built from,
// and the loaders that produce it.
//
// A descriptor is loaded once at process start and passed by value into
// constructors; nothing mutates it afterwards.
package tenant

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"ebauth/cmd/security/token"
)

// Config is the descriptor of one served service.
type Config struct {
	// Name scopes every directory row and is the token issuer.
	Name           string        `validate:"required,max=256"`
	TokenSecret    []byte        `validate:"required,min=1"`
	TokenTimeout   time.Duration `validate:"gt=0"`
	PasswordPepper []byte        `validate:"required,min=1"`
	TokenFormat    string        `validate:"omitempty,oneof=jwt paseto"`
}

var (
	// ErrInvalid wraps every descriptor validation failure.
	ErrInvalid = errors.New("invalid service descriptor")
	// ErrNotFound is returned when a source has no descriptor for the name.
	ErrNotFound = errors.New("service descriptor not found")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the descriptor and normalizes TokenFormat.
func (c Config) Validate() (Config, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.TokenFormat = strings.ToLower(strings.TrimSpace(c.TokenFormat))
	if c.TokenFormat == "" {
		c.TokenFormat = token.FormatJWT
	}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
			}
			return Config{}, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(fields, ", "))
		}
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return c, nil
}

// TokenConfig returns the codec settings for this service.
func (c Config) TokenConfig() token.Config {
	return token.Config{
		Issuer: c.Name,
		Secret: slices.Clone(c.TokenSecret),
		TTL:    c.TokenTimeout,
	}
}

// NewCodec builds the token codec selected by TokenFormat.
func (c Config) NewCodec() (token.Codec, error) {
	return token.NewCodec(c.TokenFormat, c.TokenConfig())
}

// String never prints secrets.
func (c Config) String() string {
	return fmt.Sprintf("service=%s token_format=%s token_timeout=%s", c.Name, c.TokenFormat, c.TokenTimeout)
}

// LogValue keeps secrets out of structured logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("service", c.Name),
		slog.String("token_format", c.TokenFormat),
		slog.Duration("token_timeout", c.TokenTimeout),
	)
}

// timeoutFromSeconds converts the stored integer-seconds timeout.
func timeoutFromSeconds(secs int64) (time.Duration, error) {
	if secs <= 0 {
		return 0, fmt.Errorf("%w: token timeout must be a positive number of seconds", ErrInvalid)
	}
	if secs > int64((100*365*24*time.Hour)/time.Second) {
		return 0, fmt.Errorf("%w: token timeout too large", ErrInvalid)
	}
	return time.Duration(secs) * time.Second, nil
}
