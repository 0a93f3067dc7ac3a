package validation

import (
	"encoding/json"
	"math/bits"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Criteria is the set of password strength criteria a password satisfies.
//
// It is a fixed-size flag set: each criterion owns one bit, and only the six
// bits in allCriteria are meaningful. Use Has/Count instead of comparing raw
// integers.
type Criteria uint8

const (
	Lower Criteria = 1 << iota
	Upper
	Number
	Symbol
	Length
	// NoWhitespace is set when the password contains no whitespace at all.
	NoWhitespace

	allCriteria = Lower | Upper | Number | Symbol | Length | NoWhitespace
)

const (
	// MinPasswordLength is the rune count required for the Length criterion.
	MinPasswordLength = 8
	// MinCriteria is how many criteria an acceptable password must satisfy.
	MinCriteria = 3
)

const passwordSymbols = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

var criteriaNames = []struct {
	c    Criteria
	name string
}{
	{Lower, "LOWER"},
	{Upper, "UPPER"},
	{Number, "NUMBER"},
	{Symbol, "SYMBOL"},
	{Length, "LENGTH"},
	{NoWhitespace, "NO_WHITESPACE"},
}

// ScorePassword evaluates every criterion against pw and returns the set
// that holds. All six checks always run.
func ScorePassword(pw string) Criteria {
	var c Criteria
	if strings.ContainsFunc(pw, func(r rune) bool { return r >= 'a' && r <= 'z' }) {
		c |= Lower
	}
	if strings.ContainsFunc(pw, func(r rune) bool { return r >= 'A' && r <= 'Z' }) {
		c |= Upper
	}
	if strings.ContainsFunc(pw, func(r rune) bool { return r >= '0' && r <= '9' }) {
		c |= Number
	}
	if strings.ContainsAny(pw, passwordSymbols) {
		c |= Symbol
	}
	if utf8.RuneCountInString(pw) >= MinPasswordLength {
		c |= Length
	}
	if !strings.ContainsFunc(pw, unicode.IsSpace) {
		c |= NoWhitespace
	}
	return c
}

// Has reports whether every criterion in want is set in c.
func (c Criteria) Has(want Criteria) bool {
	return c&want == want
}

// Count is the number of meaningful criteria set in c.
func (c Criteria) Count() int {
	return bits.OnesCount8(uint8(c & allCriteria))
}

// Acceptable applies the password policy: at least MinCriteria criteria,
// and Length and NoWhitespace are always mandatory.
func (c Criteria) Acceptable() bool {
	return c.Count() >= MinCriteria && c.Has(Length|NoWhitespace)
}

// Names lists the set criteria in bit order.
func (c Criteria) Names() []string {
	names := make([]string, 0, len(criteriaNames))
	for _, cn := range criteriaNames {
		if c.Has(cn.c) {
			names = append(names, cn.name)
		}
	}
	return names
}

func (c Criteria) String() string {
	if c&allCriteria == 0 {
		return "NONE"
	}
	return strings.Join(c.Names(), "|")
}

// MarshalJSON encodes the set as a list of names, e.g. ["LOWER","LENGTH"].
func (c Criteria) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Names())
}

// AcceptPassword is shorthand for ScorePassword(pw).Acceptable().
func AcceptPassword(pw string) bool {
	return ScorePassword(pw).Acceptable()
}
