package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validate checks plaintext against the policy. Lengths count runes, not bytes.
func (c Config) Validate(password string) error {
	n := utf8.RuneCountInString(password)
	switch {
	case n == 0 || n < c.Policy.MinLength:
		return ErrPasswordTooShort
	case c.Policy.MaxLength > 0 && n > c.Policy.MaxLength:
		return ErrPasswordTooLong
	case c.Policy.RejectVeryWeak && looksVeryWeak(password):
		return ErrWeakPassword
	}
	return nil
}

var trivialPasswords = map[string]struct{}{
	"password":    {},
	"password123": {},
	"123456":      {},
	"123456789":   {},
	"qwerty":      {},
	"qwerty123":   {},
	"11111111":    {},
	"letmein":     {},
	"admin":       {},
}

// looksVeryWeak is a minimal trivial-pattern check, not a strength estimator.
func looksVeryWeak(pw string) bool {
	s := strings.TrimSpace(pw)
	if s == "" {
		return true
	}
	if _, ok := trivialPasswords[strings.ToLower(s)]; ok {
		return true
	}

	first, _ := utf8.DecodeRuneInString(s)
	sameRune, allDigits := true, true
	for _, r := range s {
		if r != first {
			sameRune = false
		}
		if !unicode.IsDigit(r) {
			allDigits = false
		}
	}
	if sameRune {
		return true
	}
	// PIN-like.
	return allDigits && utf8.RuneCountInString(s) < 12
}
