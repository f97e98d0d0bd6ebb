// Package memory provides an in-process implementation of ports.UserStore.
// It follows the same rejection and concurrency-stamp rules as the Mongo
// store and backs the service and HTTP tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/thamco/customer-identity/internal/core/domain"
)

// UserStore keeps users in a map keyed by id.
type UserStore struct {
	mu             sync.Mutex
	users          map[string]*domain.User
	roles          map[string]domain.Role
	policy         domain.PasswordPolicy
	validate       *validator.Validate
	nextCustomerID int
}

func NewUserStore(policy domain.PasswordPolicy) *UserStore {
	s := &UserStore{
		users:    make(map[string]*domain.User),
		roles:    make(map[string]domain.Role),
		policy:   policy,
		validate: validator.New(),
	}
	for _, r := range domain.SeedRoles {
		s.roles[r.NormalizedName] = r
	}
	return s
}

func (s *UserStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(u), nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := domain.Normalize(email)
	for _, u := range s.users {
		if u.NormalizedEmail == n {
			return clone(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *UserStore) Create(_ context.Context, user *domain.User, password string) error {
	if err := s.validate.Var(user.Email, "required,email"); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidEmail, user.Email)
	}
	if err := s.policy.Validate(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.taken(user, "") {
		return domain.ErrUserExists
	}

	s.nextCustomerID++
	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CustomerID = s.nextCustomerID
	user.NormalizedEmail = domain.Normalize(user.Email)
	user.NormalizedUserName = domain.Normalize(user.UserName)
	user.PasswordHash = string(hash)
	user.SecurityStamp = uuid.NewString()
	user.ConcurrencyStamp = uuid.NewString()
	user.LockoutEnabled = true
	user.Roles = []string{}
	user.CreatedAt = now
	user.UpdatedAt = now

	s.users[user.ID] = clone(user)
	return nil
}

func (s *UserStore) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.checkStamp(user)
	if err != nil {
		return err
	}
	if s.taken(user, user.ID) {
		return domain.ErrUserExists
	}

	stored.UserName = user.UserName
	stored.NormalizedUserName = domain.Normalize(user.UserName)
	stored.Email = user.Email
	stored.NormalizedEmail = domain.Normalize(user.Email)
	s.touch(stored, user)
	user.NormalizedEmail = stored.NormalizedEmail
	user.NormalizedUserName = stored.NormalizedUserName
	return nil
}

func (s *UserStore) Delete(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.checkStamp(user); err != nil {
		return err
	}
	delete(s.users, user.ID)
	return nil
}

func (s *UserStore) RemovePassword(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.checkStamp(user)
	if err != nil {
		return err
	}
	stored.PasswordHash = ""
	stored.SecurityStamp = uuid.NewString()
	s.touch(stored, user)
	user.PasswordHash = ""
	return nil
}

func (s *UserStore) AddPassword(_ context.Context, user *domain.User, password string) error {
	if user.HasPassword() {
		return domain.ErrUserHasPassword
	}
	if err := s.policy.Validate(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.checkStamp(user)
	if err != nil {
		return err
	}
	stored.PasswordHash = string(hash)
	stored.SecurityStamp = uuid.NewString()
	s.touch(stored, user)
	user.PasswordHash = stored.PasswordHash
	return nil
}

func (s *UserStore) CheckPassword(_ context.Context, user *domain.User, password string) (bool, error) {
	if !user.HasPassword() {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil, nil
}

func (s *UserStore) ValidatePassword(password string) error {
	return s.policy.Validate(password)
}

func (s *UserStore) AddToRole(_ context.Context, user *domain.User, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.roles[domain.Normalize(role)]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrRoleNotFound, role)
	}
	stored, err := s.checkStamp(user)
	if err != nil {
		return err
	}
	if stored.InRole(r.Name) {
		return domain.ErrUserAlreadyInRole
	}
	stored.Roles = append(stored.Roles, r.Name)
	s.touch(stored, user)
	user.Roles = append([]string(nil), stored.Roles...)
	return nil
}

func (s *UserStore) GetRoles(_ context.Context, user *domain.User) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[user.ID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return append([]string{}, stored.Roles...), nil
}

// checkStamp returns the stored record when user still carries its current
// concurrency stamp. Callers hold s.mu.
func (s *UserStore) checkStamp(user *domain.User) (*domain.User, error) {
	stored, ok := s.users[user.ID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if stored.ConcurrencyStamp != user.ConcurrencyStamp {
		return nil, domain.ErrConcurrencyConflict
	}
	return stored, nil
}

// taken reports whether another user already owns the email or username.
func (s *UserStore) taken(user *domain.User, exceptID string) bool {
	email := domain.Normalize(user.Email)
	name := domain.Normalize(user.UserName)
	for id, u := range s.users {
		if id == exceptID {
			continue
		}
		if u.NormalizedEmail == email || u.NormalizedUserName == name {
			return true
		}
	}
	return false
}

// touch rotates the concurrency stamp on stored and mirrors it to user.
func (s *UserStore) touch(stored, user *domain.User) {
	stored.ConcurrencyStamp = uuid.NewString()
	stored.UpdatedAt = time.Now().UTC()
	user.ConcurrencyStamp = stored.ConcurrencyStamp
	user.UpdatedAt = stored.UpdatedAt
}

func clone(u *domain.User) *domain.User {
	c := *u
	c.Roles = append([]string(nil), u.Roles...)
	return &c
}
