package mongo

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/thamco/customer-identity/internal/core/domain"
)

// openTestStore connects to MONGO_TEST_URI and returns a store on a throwaway
// database that is dropped when the test ends.
func openTestStore(t *testing.T) *UserStore {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	client, db, err := Connect(ctx, Config{URI: uri, Database: "identity_test_" + uuid.NewString()[:8]})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	store := NewUserStore(db, domain.DefaultPasswordPolicy())
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("indexes: %v", err)
	}
	if err := store.SeedRoles(ctx); err != nil {
		t.Fatalf("seed roles: %v", err)
	}
	return store
}

func createTestUser(t *testing.T, store *UserStore, email string) *domain.User {
	t.Helper()
	user := &domain.User{Email: email, UserName: email}
	if err := store.Create(context.Background(), user, "Password1!"); err != nil {
		t.Fatalf("create: %v", err)
	}
	return user
}

func TestMongoUserStore_StaleStampConflicts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "a@b.com")

	stale := *user
	user.Email, user.UserName = "new@b.com", "new@b.com"
	if err := store.Update(ctx, user); err != nil {
		t.Fatalf("update: %v", err)
	}
	if user.ConcurrencyStamp == stale.ConcurrencyStamp {
		t.Fatalf("stamp must rotate on update")
	}

	if err := store.Update(ctx, &stale); !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("stale update: expected ErrConcurrencyConflict, got %v", err)
	}
	if err := store.AddToRole(ctx, &stale, domain.RoleCustomer); !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("stale guarded write: expected ErrConcurrencyConflict, got %v", err)
	}
	if err := store.Delete(ctx, &stale); !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("stale delete: expected ErrConcurrencyConflict, got %v", err)
	}
}

func TestMongoUserStore_GuardedWrites(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "a@b.com")

	if err := store.AddToRole(ctx, user, domain.RoleCustomer); err != nil {
		t.Fatalf("add to role: %v", err)
	}
	// A copy that skipped the in-memory duplicate check still hits the role guard.
	again := *user
	again.Roles = nil
	if err := store.AddToRole(ctx, &again, domain.RoleCustomer); !errors.Is(err, domain.ErrUserAlreadyInRole) {
		t.Fatalf("expected ErrUserAlreadyInRole, got %v", err)
	}

	// Same for a credential: the stored hash is still set.
	blank := *user
	blank.PasswordHash = ""
	if err := store.AddPassword(ctx, &blank, "NewPass1!"); !errors.Is(err, domain.ErrUserHasPassword) {
		t.Fatalf("expected ErrUserHasPassword, got %v", err)
	}

	roles, err := store.GetRoles(ctx, user)
	if err != nil || len(roles) != 1 || roles[0] != domain.RoleCustomer {
		t.Fatalf("expected [Customer], got %v (err %v)", roles, err)
	}
}

func TestMongoUserStore_DeleteThenMissing(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "a@b.com")

	if err := store.Delete(ctx, user); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, user); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("second delete: expected ErrUserNotFound, got %v", err)
	}
	if err := store.Update(ctx, user); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("update after delete: expected ErrUserNotFound, got %v", err)
	}
	if _, err := store.FindByID(ctx, user.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("find after delete: expected ErrUserNotFound, got %v", err)
	}
}
