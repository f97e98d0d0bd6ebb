package domain

import (
	"strings"
	"time"
)

// User is the persisted identity record owned by the user store.
// UserName is kept equal to Email by every create and update path.
type User struct {
	ID                 string    `json:"id"`
	CustomerID         int       `json:"customer_id"`
	UserName           string    `json:"username"`
	NormalizedUserName string    `json:"-"`
	Email              string    `json:"email"`
	NormalizedEmail    string    `json:"-"`
	PasswordHash       string    `json:"-"`
	SecurityStamp      string    `json:"-"`
	ConcurrencyStamp   string    `json:"-"`
	Roles              []string  `json:"roles"`
	LockoutEnabled     bool      `json:"lockout_enabled"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// HasPassword reports whether a credential is installed.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// InRole reports whether the user holds role, compared case-insensitively.
func (u *User) InRole(role string) bool {
	n := Normalize(role)
	for _, r := range u.Roles {
		if Normalize(r) == n {
			return true
		}
	}
	return false
}

// Normalize returns the lookup form of a username, email or role name.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
