package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/thamco/customer-identity/internal/api/metrics"
	"github.com/thamco/customer-identity/internal/core/domain"
	"github.com/thamco/customer-identity/internal/core/ports"
)

// TokenOptions configures token signing and sign-in lockout.
type TokenOptions struct {
	Secret            string
	Issuer            string
	TTL               time.Duration
	MaxFailedAttempts int
	LockoutDuration   time.Duration
}

// TokenService issues HS256 access tokens for the password and
// client_credentials grants.
type TokenService struct {
	store   ports.UserStore
	clients *ClientRegistry
	lockout ports.LockoutStore
	opts    TokenOptions
	log     zerolog.Logger
	now     func() time.Time
}

func NewTokenService(store ports.UserStore, clients *ClientRegistry, lockout ports.LockoutStore, opts TokenOptions, log zerolog.Logger) *TokenService {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.MaxFailedAttempts <= 0 {
		opts.MaxFailedAttempts = 5
	}
	if opts.LockoutDuration <= 0 {
		opts.LockoutDuration = 10 * time.Minute
	}
	return &TokenService{
		store:   store,
		clients: clients,
		lockout: lockout,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}
}

func (s *TokenService) Issue(ctx context.Context, req ports.TokenRequest) (*ports.TokenResult, error) {
	res, err := s.issue(ctx, req)
	if err != nil {
		metrics.TokenFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}
	metrics.TokensIssuedTotal.WithLabelValues(req.GrantType, req.ClientID).Inc()
	return res, nil
}

func (s *TokenService) issue(ctx context.Context, req ports.TokenRequest) (*ports.TokenResult, error) {
	if req.GrantType != domain.GrantPassword && req.GrantType != domain.GrantClientCredentials {
		return nil, domain.ErrUnsupportedGrantType
	}

	client, err := s.clients.Authenticate(req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}
	if !client.AllowsGrant(req.GrantType) {
		return nil, domain.ErrUnauthorizedClient
	}

	scopes, err := grantedScopes(client, req.Scope)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	claims := jwt.MapClaims{
		"iss":       s.opts.Issuer,
		"client_id": client.ID,
		"scope":     strings.Join(scopes, " "),
		"iat":       now.Unix(),
		"nbf":       now.Unix(),
		"exp":       now.Add(s.opts.TTL).Unix(),
	}
	if aud := audiences(scopes); len(aud) > 0 {
		claims["aud"] = aud
	}

	switch req.GrantType {
	case domain.GrantPassword:
		user, roles, err := s.signIn(ctx, req.Username, req.Password, now)
		if err != nil {
			return nil, err
		}
		claims["sub"] = user.ID
		claims["name"] = user.UserName
		claims["role"] = roles
		claims["id"] = strconv.Itoa(user.CustomerID)
	case domain.GrantClientCredentials:
		claims["sub"] = client.ID
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.opts.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	s.log.Info().
		Str("client_id", client.ID).
		Str("grant_type", req.GrantType).
		Str("subject", fmt.Sprint(claims["sub"])).
		Msg("token issued")

	return &ports.TokenResult{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   s.opts.TTL,
		Scope:       strings.Join(scopes, " "),
	}, nil
}

// signIn verifies the resource owner credentials and applies lockout.
func (s *TokenService) signIn(ctx context.Context, username, password string, now time.Time) (*domain.User, []string, error) {
	if username == "" || password == "" {
		return nil, nil, domain.ErrInvalidRequest
	}

	user, err := s.store.FindByEmail(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, domain.ErrInvalidGrant
		}
		return nil, nil, fmt.Errorf("sign in: %w", err)
	}

	state, err := s.lockout.Get(ctx, user.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("lockout check failed, continuing")
	} else if state.Locked(now) {
		return nil, nil, domain.ErrUserLockedOut
	}

	ok, err := s.store.CheckPassword(ctx, user, password)
	if err != nil {
		return nil, nil, fmt.Errorf("sign in: %w", err)
	}
	if !ok {
		if user.LockoutEnabled {
			s.recordFailure(ctx, user.ID, now)
		}
		return nil, nil, domain.ErrInvalidGrant
	}

	if state.FailedCount > 0 {
		if err := s.lockout.Clear(ctx, user.ID); err != nil {
			s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to clear lockout counter")
		}
	}

	roles, err := s.store.GetRoles(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("sign in: roles: %w", err)
	}
	return user, roles, nil
}

func (s *TokenService) recordFailure(ctx context.Context, userID string, now time.Time) {
	state, err := s.lockout.RecordFailure(ctx, userID, now, s.opts.MaxFailedAttempts, s.opts.LockoutDuration)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to record sign-in failure")
		return
	}
	if state.Locked(now) && state.FailedCount == s.opts.MaxFailedAttempts {
		metrics.LockoutsTotal.Inc()
		s.log.Warn().Str("user_id", userID).Time("locked_until", state.LockedUntil).Msg("user locked out")
	}
}

// grantedScopes validates the space separated scope parameter. An empty
// request grants every scope the client is allowed.
func grantedScopes(client domain.Client, requested string) ([]string, error) {
	fields := strings.Fields(requested)
	if len(fields) == 0 {
		return append([]string(nil), client.Scopes...), nil
	}
	for _, sc := range fields {
		if !client.AllowsScope(sc) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidScope, sc)
		}
	}
	return fields, nil
}

func audiences(scopes []string) []string {
	var aud []string
	for _, sc := range scopes {
		if domain.IsAPIScope(sc) {
			aud = append(aud, sc)
		}
	}
	return aud
}

// failureReason maps an issuance error to its OAuth error code.
func failureReason(err error) string {
	for _, known := range []error{
		domain.ErrInvalidRequest,
		domain.ErrInvalidClient,
		domain.ErrUnauthorizedClient,
		domain.ErrUnsupportedGrantType,
		domain.ErrInvalidScope,
		domain.ErrInvalidGrant,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	if errors.Is(err, domain.ErrUserLockedOut) {
		return domain.ErrInvalidGrant.Error()
	}
	return "server_error"
}
