package identity

import (
	"errors"
	"fmt"
)

// OpError is a typed operation error with a stable Op + Kind contract for callers/tests.
// Kind is one of the sentinel kinds; Msg carries context and never secrets.
type OpError struct {
	Op   string
	Kind error
	Msg  string
}

func (e OpError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

func (e OpError) Unwrap() error { return e.Kind }

// ConflictError reports that a row already exists for the (service, user) key.
type ConflictError struct {
	Op   string
	User string
}

func (e ConflictError) Error() string {
	if e.User == "" {
		return fmt.Sprintf("%s: %v", e.Op, ErrConflict)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, ErrConflict, e.User)
}

func (e ConflictError) Unwrap() error { return ErrConflict }

// NotFoundError reports a missing directory row.
type NotFoundError struct {
	Op   string
	User string
}

func (e NotFoundError) Error() string {
	if e.User == "" {
		return fmt.Sprintf("%s: %v", e.Op, ErrNotFound)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, ErrNotFound, e.User)
}

func (e NotFoundError) Unwrap() error { return ErrNotFound }

// StoreError wraps a backend failure (unreachable, malformed row, driver error).
// errors.Is(err, ErrUnavailable) holds; the backend cause stays reachable via errors.As.
type StoreError struct {
	Op  string
	Err error
}

func (e StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, ErrUnavailable)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrUnavailable, e.Err)
}

func (e StoreError) Unwrap() []error { return []error{ErrUnavailable, e.Err} }

func storeErr(op string, err error) error {
	return StoreError{Op: op, Err: err}
}

func invalid(op, msg string) error {
	return OpError{Op: op, Kind: ErrInvalidInput, Msg: msg}
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce ConflictError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err represents ErrNotFound (including NotFoundError).
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidInput reports whether err represents ErrInvalidInput.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsUnavailable reports whether err is a backend failure.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
