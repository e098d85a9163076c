package authn

import "fmt"

// Kind tags a Credentials value.
type Kind uint8

const (
	KindNone Kind = iota
	KindFormToken
	KindBasicAuth
)

func (k Kind) String() string {
	switch k {
	case KindFormToken:
		return "form_token"
	case KindBasicAuth:
		return "basic_auth"
	default:
		return "none"
	}
}

// Credentials is the credential material carried by one request.
// Exactly one case is populated; the zero value is None.
type Credentials struct {
	kind     Kind
	token    string
	username string
	password string
}

// None returns the empty carrier.
func None() Credentials { return Credentials{} }

// FormToken carries a token submitted in the request body.
func FormToken(tok string) Credentials {
	return Credentials{kind: KindFormToken, token: tok}
}

// BasicAuth carries an HTTP basic-auth pair. username may itself be a token.
func BasicAuth(username, password string) Credentials {
	return Credentials{kind: KindBasicAuth, username: username, password: password}
}

func (c Credentials) Kind() Kind { return c.kind }

// Token returns the form token. Only meaningful for KindFormToken.
func (c Credentials) Token() string { return c.token }

// Basic returns the basic-auth pair. Only meaningful for KindBasicAuth.
func (c Credentials) Basic() (username, password string) { return c.username, c.password }

// String never prints secret material.
func (c Credentials) String() string {
	if c.kind == KindBasicAuth {
		return fmt.Sprintf("basic_auth(user_len=%d)", len(c.username))
	}
	return c.kind.String()
}
