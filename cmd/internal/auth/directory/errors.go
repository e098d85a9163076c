package directory

import (
	"errors"
	"fmt"

	"ebauth/cmd/identity"
)

// ErrInvalidInput is the kind behind MissingFieldError and InvalidFieldError.
var ErrInvalidInput = identity.ErrInvalidInput

// MissingFieldError reports a required input field that was absent.
type MissingFieldError struct {
	Field string
}

func (e MissingFieldError) Error() string { return fmt.Sprintf("Missing field: %q", e.Field) }

func (e MissingFieldError) Unwrap() error { return ErrInvalidInput }

// InvalidFieldError reports a present field that failed validation.
type InvalidFieldError struct {
	Field  string
	Reason error
}

func (e InvalidFieldError) Error() string {
	return fmt.Sprintf("Invalid field: %q: %v", e.Field, e.Reason)
}

func (e InvalidFieldError) Unwrap() []error { return []error{ErrInvalidInput, e.Reason} }

// AlreadyExistsError reports an addUser target that is already in the directory.
type AlreadyExistsError struct {
	User string
}

func (e AlreadyExistsError) Error() string { return fmt.Sprintf("User %s already exists", e.User) }

func (e AlreadyExistsError) Unwrap() error { return identity.ErrConflict }

// IsInputError reports whether err belongs in a structured {error} payload
// rather than failing the request.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, identity.ErrConflict)
}
