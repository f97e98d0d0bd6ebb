package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// PasswordPolicy describes the rules a new credential must satisfy.
type PasswordPolicy struct {
	RequiredLength         int
	RequiredUniqueChars    int
	RequireDigit           bool
	RequireLowercase       bool
	RequireUppercase       bool
	RequireNonAlphanumeric bool
}

// DefaultPasswordPolicy returns the policy the service ships with.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		RequiredLength:         8,
		RequiredUniqueChars:    6,
		RequireDigit:           true,
		RequireLowercase:       true,
		RequireUppercase:       true,
		RequireNonAlphanumeric: true,
	}
}

// Validate returns nil when password satisfies p, otherwise an error wrapping
// ErrPasswordPolicy that lists every failed rule.
func (p PasswordPolicy) Validate(password string) error {
	var failed []string

	if len([]rune(password)) < p.RequiredLength {
		failed = append(failed, fmt.Sprintf("must be at least %d characters", p.RequiredLength))
	}

	var digit, lower, upper, other bool
	unique := make(map[rune]struct{})
	for _, r := range password {
		unique[r] = struct{}{}
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case !unicode.IsLetter(r):
			other = true
		}
	}

	if p.RequireDigit && !digit {
		failed = append(failed, "must contain a digit")
	}
	if p.RequireLowercase && !lower {
		failed = append(failed, "must contain a lowercase letter")
	}
	if p.RequireUppercase && !upper {
		failed = append(failed, "must contain an uppercase letter")
	}
	if p.RequireNonAlphanumeric && !other {
		failed = append(failed, "must contain a non-alphanumeric character")
	}
	if len(unique) < p.RequiredUniqueChars {
		failed = append(failed, fmt.Sprintf("must contain at least %d unique characters", p.RequiredUniqueChars))
	}

	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrPasswordPolicy, strings.Join(failed, "; "))
}
