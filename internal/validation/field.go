// Package validation holds the pure decision logic for account data: field
// shape checks, the password strength policy, and the registration validator
// that composes them.
//
// Nothing in this package touches the network, the database, or the clock,
// so every function is deterministic and safe to call from any goroutine.
package validation

import (
	"regexp"
	"unicode/utf8"
)

const (
	// MinUsernameLength and MaxUsernameLength bound usernames in characters.
	MinUsernameLength = 4
	MaxUsernameLength = 32
)

var (
	usernamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)
	// Single @, non-empty local part, dotted domain. Not RFC 5322.
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^[0-9-]{10}$`)
)

// ValidUsername reports whether s is 4–32 characters of lowercase letters,
// digits and underscores.
func ValidUsername(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= MinUsernameLength && n <= MaxUsernameLength && usernamePattern.MatchString(s)
}

// ValidEmail reports whether s looks like local@domain.tld.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidPhoneNumber reports whether s is exactly 10 digits or dashes.
func ValidPhoneNumber(s string) bool {
	return phonePattern.MatchString(s)
}
