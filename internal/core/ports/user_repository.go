package ports

import "context"

// UserPutModel carries the writable fields of a user.
type UserPutModel struct {
	Email    string
	Password string
}

// UserModel is the internal view of a stored user.
type UserModel struct {
	ID               string
	CustomerID       int
	UserName         string
	Email            string
	ConcurrencyStamp string
}

// UserGetModel is a user projected together with its roles.
type UserGetModel struct {
	ID         string
	CustomerID int
	UserName   string
	Email      string
	Roles      []string
}

// UserRepository is the user lifecycle facade used by the HTTP layer.
// Missing users and store refusals come back as nil/false; the error return
// is reserved for faults.
type UserRepository interface {
	NewUser(ctx context.Context, newUser UserPutModel) (*UserGetModel, error)
	EditUser(ctx context.Context, updated UserPutModel, userID string) (bool, error)
	EditUserPassword(ctx context.Context, user UserModel, password string) (bool, error)
	DeleteUser(ctx context.Context, userID string) (bool, error)
	GetRoles(ctx context.Context, userID string) ([]string, error)
	GetUser(ctx context.Context, userID string) (*UserModel, error)
}
