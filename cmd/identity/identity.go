package identity

import (
	"slices"
	"strings"
	"time"
)

// Well-known privilege tiers. The gate treats privileges as opaque strings;
// these are the two conventional values.
const (
	PrivilegeUser  = "user"
	PrivilegeAdmin = "admin"
)

// Identity is the resolved principal of a request.
// The zero value is Anonymous.
type Identity struct {
	User       string   `json:"user"`
	Privileges []string `json:"privileges"`
}

// Anonymous is the identity of a request that established no valid credential.
var Anonymous = Identity{}

// IsAnonymous reports whether id carries no user.
func (id Identity) IsAnonymous() bool { return id.User == "" }

// Has reports whether id holds privilege p. Anonymous holds nothing.
func (id Identity) Has(p string) bool {
	if id.IsAnonymous() {
		return false
	}
	return slices.Contains(id.Privileges, p)
}

// Clone returns a deep copy so callers can't alias the privilege slice.
func (id Identity) Clone() Identity {
	return Identity{User: id.User, Privileges: slices.Clone(id.Privileges)}
}

// StoredCredential is one directory row keyed by (Service, User).
// Rows are created and deleted, never updated in place.
type StoredCredential struct {
	Service        string
	User           string
	PasswordDigest string
	Salt           []byte
	Privileges     []string
	CreatedAt      time.Time
}

// Identity returns the principal this row grants.
func (c StoredCredential) Identity() Identity {
	return Identity{User: c.User, Privileges: slices.Clone(c.Privileges)}
}

// Validate checks the fields every backend relies on.
func (c StoredCredential) Validate(op string) error {
	if err := validKey(op, c.Service, c.User); err != nil {
		return err
	}
	switch {
	case c.PasswordDigest == "":
		return invalid(op, "password digest is required")
	case len(c.Salt) == 0:
		return invalid(op, "salt is required")
	}
	return nil
}

// validKey rejects blank names and NUL bytes; NUL separates the two
// segments of composite keys.
func validKey(op, service, user string) error {
	switch {
	case strings.TrimSpace(service) == "":
		return invalid(op, "service is required")
	case strings.TrimSpace(user) == "":
		return invalid(op, "user is required")
	case strings.IndexByte(service, 0) >= 0:
		return invalid(op, "service must not contain NUL")
	case strings.IndexByte(user, 0) >= 0:
		return invalid(op, "user must not contain NUL")
	}
	return nil
}
