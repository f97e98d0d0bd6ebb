package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/thamco/customer-identity/internal/api/metrics"
	"github.com/thamco/customer-identity/internal/core/domain"
	"github.com/thamco/customer-identity/internal/core/ports"
)

// UserRepository implements ports.UserRepository on top of a ports.UserStore.
type UserRepository struct {
	store ports.UserStore
	log   zerolog.Logger
}

func NewUserRepository(store ports.UserStore, log zerolog.Logger) *UserRepository {
	return &UserRepository{store: store, log: log}
}

// NewUser creates a user whose username is its email and assigns the default
// Customer role. A store refusal yields a nil result. Failing to assign the
// role does not fail the creation.
func (r *UserRepository) NewUser(ctx context.Context, newUser ports.UserPutModel) (*ports.UserGetModel, error) {
	user := &domain.User{
		Email:    newUser.Email,
		UserName: newUser.Email,
	}

	if err := r.store.Create(ctx, user, newUser.Password); err != nil {
		if domain.IsStoreRejection(err) {
			r.log.Info().Err(err).Msg("user creation rejected")
			metrics.UserOperationsTotal.WithLabelValues(metrics.OpCreate, metrics.ResultRejected).Inc()
			return nil, nil
		}
		metrics.UserOperationsTotal.WithLabelValues(metrics.OpCreate, metrics.ResultError).Inc()
		return nil, fmt.Errorf("new user: %w", err)
	}

	if err := r.store.AddToRole(ctx, user, domain.RoleCustomer); err != nil {
		metrics.RoleAssignmentFailuresTotal.Inc()
		r.log.Warn().Err(err).Str("user_id", user.ID).Str("role", domain.RoleCustomer).Msg("default role assignment failed")
	}

	roles, err := r.store.GetRoles(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("new user: roles: %w", err)
	}

	metrics.UserOperationsTotal.WithLabelValues(metrics.OpCreate, metrics.ResultOK).Inc()
	r.log.Info().Str("user_id", user.ID).Int("customer_id", user.CustomerID).Msg("user created")

	return toGetModel(user, roles), nil
}

// EditUser overwrites the email (and therefore the username) of userID and,
// when a password is supplied, rotates the credential. A password the policy
// refuses fails the edit before anything is written.
func (r *UserRepository) EditUser(ctx context.Context, updated ports.UserPutModel, userID string) (bool, error) {
	user, err := r.find(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("edit user: %w", err)
	}
	if user == nil {
		metrics.UserOperationsTotal.WithLabelValues(metrics.OpEdit, metrics.ResultNotFound).Inc()
		return false, nil
	}

	if updated.Password != "" {
		if err := r.store.ValidatePassword(updated.Password); err != nil {
			return r.rejected(metrics.OpEdit, userID, fmt.Errorf("edit user: password: %w", err))
		}
	}

	if updated.Email != "" {
		user.Email = updated.Email
	}
	user.UserName = user.Email

	if err := r.store.Update(ctx, user); err != nil {
		return r.rejected(metrics.OpEdit, userID, fmt.Errorf("edit user: %w", err))
	}

	if updated.Password != "" {
		if err := r.replacePassword(ctx, user, updated.Password); err != nil {
			return r.rejected(metrics.OpEdit, userID, fmt.Errorf("edit user: password: %w", err))
		}
	}

	metrics.UserOperationsTotal.WithLabelValues(metrics.OpEdit, metrics.ResultOK).Inc()
	return true, nil
}

// EditUserPassword rotates the credential of an already resolved user.
func (r *UserRepository) EditUserPassword(ctx context.Context, model ports.UserModel, password string) (bool, error) {
	if err := r.store.ValidatePassword(password); err != nil {
		return r.rejected(metrics.OpEditPassword, model.ID, fmt.Errorf("edit user password: %w", err))
	}
	user := toDomainUser(model)
	if err := r.replacePassword(ctx, user, password); err != nil {
		return r.rejected(metrics.OpEditPassword, model.ID, fmt.Errorf("edit user password: %w", err))
	}

	metrics.UserOperationsTotal.WithLabelValues(metrics.OpEditPassword, metrics.ResultOK).Inc()
	return true, nil
}

// DeleteUser removes userID. Unknown ids and store refusals yield false.
func (r *UserRepository) DeleteUser(ctx context.Context, userID string) (bool, error) {
	user, err := r.find(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	if user == nil {
		metrics.UserOperationsTotal.WithLabelValues(metrics.OpDelete, metrics.ResultNotFound).Inc()
		return false, nil
	}

	if err := r.store.Delete(ctx, user); err != nil {
		return r.rejected(metrics.OpDelete, userID, fmt.Errorf("delete user: %w", err))
	}

	metrics.UserOperationsTotal.WithLabelValues(metrics.OpDelete, metrics.ResultOK).Inc()
	r.log.Info().Str("user_id", userID).Msg("user deleted")
	return true, nil
}

// GetRoles returns the role names of userID, or an empty list when the id
// does not resolve.
func (r *UserRepository) GetRoles(ctx context.Context, userID string) ([]string, error) {
	user, err := r.find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get roles: %w", err)
	}
	if user == nil {
		return []string{}, nil
	}

	roles, err := r.store.GetRoles(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("get roles: %w", err)
	}
	return roles, nil
}

// GetUser returns the user or nil when the id does not resolve.
func (r *UserRepository) GetUser(ctx context.Context, userID string) (*ports.UserModel, error) {
	user, err := r.find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, nil
	}
	model := toUserModel(user)
	return &model, nil
}

// find resolves userID, mapping a missing user to nil.
func (r *UserRepository) find(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, nil
	}
	user, err := r.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) replacePassword(ctx context.Context, user *domain.User, password string) error {
	if err := r.store.RemovePassword(ctx, user); err != nil {
		return err
	}
	return r.store.AddPassword(ctx, user, password)
}

// rejected turns a store refusal into a false result and lets faults through.
func (r *UserRepository) rejected(op, userID string, err error) (bool, error) {
	if domain.IsStoreRejection(err) {
		r.log.Info().Err(err).Str("user_id", userID).Str("operation", op).Msg("user operation rejected")
		metrics.UserOperationsTotal.WithLabelValues(op, metrics.ResultRejected).Inc()
		return false, nil
	}
	metrics.UserOperationsTotal.WithLabelValues(op, metrics.ResultError).Inc()
	return false, err
}
