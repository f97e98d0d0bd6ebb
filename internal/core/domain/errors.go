package domain

import "errors"

// User store rejections. Anything else returned by a store is a fault.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUserExists          = errors.New("user already exists")
	ErrInvalidEmail        = errors.New("invalid email")
	ErrPasswordPolicy      = errors.New("password does not satisfy policy")
	ErrUserHasPassword     = errors.New("user already has a password")
	ErrRoleNotFound        = errors.New("role not found")
	ErrUserAlreadyInRole   = errors.New("user already in role")
	ErrConcurrencyConflict = errors.New("optimistic concurrency failure")
)

var ErrForbidden = errors.New("access forbidden")

// IsStoreRejection reports whether err is an expected refusal by the user
// store rather than an infrastructure fault.
func IsStoreRejection(err error) bool {
	switch {
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrUserExists),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrPasswordPolicy),
		errors.Is(err, ErrUserHasPassword),
		errors.Is(err, ErrRoleNotFound),
		errors.Is(err, ErrUserAlreadyInRole),
		errors.Is(err, ErrConcurrencyConflict):
		return true
	}
	return false
}
