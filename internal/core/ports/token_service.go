package ports

import (
	"context"
	"time"
)

// TokenRequest is a token endpoint request after form decoding.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Scope        string
}

// TokenResult is a successfully issued access token.
type TokenResult struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
	Scope       string
}

type TokenService interface {
	Issue(ctx context.Context, req TokenRequest) (*TokenResult, error)
}

// LockoutState is the failed sign-in record of one user.
type LockoutState struct {
	FailedCount int
	LockedUntil time.Time
}

// Locked reports whether the state blocks sign-in at now.
func (s LockoutState) Locked(now time.Time) bool {
	return !s.LockedUntil.IsZero() && now.Before(s.LockedUntil)
}

// LockoutStore keeps failed sign-in counters.
type LockoutStore interface {
	Get(ctx context.Context, key string) (LockoutState, error)
	RecordFailure(ctx context.Context, key string, now time.Time, threshold int, window time.Duration) (LockoutState, error)
	Clear(ctx context.Context, key string) error
}
