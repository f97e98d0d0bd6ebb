package ports

import (
	"context"

	"github.com/thamco/customer-identity/internal/core/domain"
)

// UserStore is the capability surface of the identity store. Expected
// refusals are reported as the store rejection errors in domain; any other
// error is a fault.
//
// Mutating calls check and rotate user.ConcurrencyStamp in place.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create assigns ID and CustomerID and installs the hashed password.
	Create(ctx context.Context, user *domain.User, password string) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, user *domain.User) error
	RemovePassword(ctx context.Context, user *domain.User) error
	AddPassword(ctx context.Context, user *domain.User, password string) error
	CheckPassword(ctx context.Context, user *domain.User, password string) (bool, error)
	// ValidatePassword checks password against the store's policy without writing.
	ValidatePassword(password string) error
	AddToRole(ctx context.Context, user *domain.User, role string) error
	GetRoles(ctx context.Context, user *domain.User) ([]string, error)
}
