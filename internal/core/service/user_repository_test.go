package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/thamco/customer-identity/internal/core/domain"
	"github.com/thamco/customer-identity/internal/core/ports"
	"github.com/thamco/customer-identity/internal/infrastructure/db/memory"
)

// ---------------------------------------------------------------------------
// Store wrapper with failure injection
// ---------------------------------------------------------------------------

type faultyStore struct {
	*memory.UserStore
	addToRoleErr      error
	updateErr         error
	deleteErr         error
	removePasswordErr error
	findErr           error
	removePasswordHit int
	addPasswordHit    int
	mutations         int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{UserStore: memory.NewUserStore(domain.DefaultPasswordPolicy())}
}

func (s *faultyStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.UserStore.FindByID(ctx, id)
}

func (s *faultyStore) Create(ctx context.Context, u *domain.User, password string) error {
	s.mutations++
	return s.UserStore.Create(ctx, u, password)
}

func (s *faultyStore) Update(ctx context.Context, u *domain.User) error {
	s.mutations++
	if s.updateErr != nil {
		return s.updateErr
	}
	return s.UserStore.Update(ctx, u)
}

func (s *faultyStore) Delete(ctx context.Context, u *domain.User) error {
	s.mutations++
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.UserStore.Delete(ctx, u)
}

func (s *faultyStore) RemovePassword(ctx context.Context, u *domain.User) error {
	s.removePasswordHit++
	if s.removePasswordErr != nil {
		return s.removePasswordErr
	}
	return s.UserStore.RemovePassword(ctx, u)
}

func (s *faultyStore) AddPassword(ctx context.Context, u *domain.User, password string) error {
	s.addPasswordHit++
	return s.UserStore.AddPassword(ctx, u, password)
}

func (s *faultyStore) AddToRole(ctx context.Context, u *domain.User, role string) error {
	if s.addToRoleErr != nil {
		return s.addToRoleErr
	}
	return s.UserStore.AddToRole(ctx, u, role)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

func newRepo(t *testing.T) (*UserRepository, *faultyStore) {
	t.Helper()
	store := newFaultyStore()
	return NewUserRepository(store, discardLogger), store
}

func mustCreate(t *testing.T, repo *UserRepository, email string) *ports.UserGetModel {
	t.Helper()
	created, err := repo.NewUser(context.Background(), ports.UserPutModel{Email: email, Password: "Password1!"})
	if err != nil {
		t.Fatalf("NewUser returned error: %v", err)
	}
	if created == nil {
		t.Fatalf("NewUser returned nil for %s", email)
	}
	return created
}

// ---------------------------------------------------------------------------
// NewUser
// ---------------------------------------------------------------------------

func TestNewUser_Success(t *testing.T) {
	repo, _ := newRepo(t)

	created := mustCreate(t, repo, "a@b.com")

	if created.ID == "" {
		t.Fatalf("expected an id")
	}
	if created.CustomerID != 1 {
		t.Fatalf("expected customer id 1, got %d", created.CustomerID)
	}
	if created.Email != "a@b.com" || created.UserName != "a@b.com" {
		t.Fatalf("username and email should both be a@b.com, got %q / %q", created.UserName, created.Email)
	}
	if len(created.Roles) != 1 || created.Roles[0] != domain.RoleCustomer {
		t.Fatalf("expected [Customer], got %v", created.Roles)
	}
}

func TestNewUser_CustomerIDsIncrease(t *testing.T) {
	repo, _ := newRepo(t)

	first := mustCreate(t, repo, "one@b.com")
	second := mustCreate(t, repo, "two@b.com")

	if second.CustomerID <= first.CustomerID {
		t.Fatalf("customer ids should increase: %d then %d", first.CustomerID, second.CustomerID)
	}
}

func TestNewUser_StoreRejectionReturnsNil(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "weak password", email: "a@b.com", password: "password"},
		{name: "invalid email", email: "not-an-email", password: "Password1!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _ := newRepo(t)
			got, err := repo.NewUser(context.Background(), ports.UserPutModel{Email: tt.email, Password: tt.password})
			if err != nil {
				t.Fatalf("rejections must not be errors, got %v", err)
			}
			if got != nil {
				t.Fatalf("expected nil result, got %+v", got)
			}
		})
	}
}

func TestNewUser_DuplicateEmailReturnsNil(t *testing.T) {
	repo, _ := newRepo(t)
	mustCreate(t, repo, "a@b.com")

	got, err := repo.NewUser(context.Background(), ports.UserPutModel{Email: "A@B.com", Password: "Password1!"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("duplicate email (case-insensitive) should be rejected")
	}
}

func TestNewUser_RoleAssignmentFailureIsSwallowed(t *testing.T) {
	repo, store := newRepo(t)
	store.addToRoleErr = errors.New("deadlock on role table")

	created, err := repo.NewUser(context.Background(), ports.UserPutModel{Email: "a@b.com", Password: "Password1!"})
	if err != nil {
		t.Fatalf("role failure must not fail creation: %v", err)
	}
	if created == nil {
		t.Fatalf("expected the user to be created")
	}
	if len(created.Roles) != 0 {
		t.Fatalf("expected no roles after failed assignment, got %v", created.Roles)
	}
}

// ---------------------------------------------------------------------------
// EditUser
// ---------------------------------------------------------------------------

func TestEditUser_Success(t *testing.T) {
	repo, store := newRepo(t)
	created := mustCreate(t, repo, "a@b.com")

	ok, err := repo.EditUser(context.Background(), ports.UserPutModel{Email: "new@b.com", Password: "NewPass1!"}, created.ID)
	if err != nil || !ok {
		t.Fatalf("expected success, got ok=%v err=%v", ok, err)
	}

	stored, _ := store.FindByID(context.Background(), created.ID)
	if stored.Email != "new@b.com" || stored.UserName != "new@b.com" {
		t.Fatalf("username must follow email, got %q / %q", stored.UserName, stored.Email)
	}
	if stored.CustomerID != created.CustomerID {
		t.Fatalf("customer id must not change")
	}
	if match, _ := store.CheckPassword(context.Background(), stored, "NewPass1!"); !match {
		t.Fatalf("expected new password to be installed")
	}
}

func TestEditUser_EmptyEmailKeepsExisting(t *testing.T) {
	repo, store := newRepo(t)
	created := mustCreate(t, repo, "a@b.com")

	ok, err := repo.EditUser(context.Background(), ports.UserPutModel{}, created.ID)
	if err != nil || !ok {
		t.Fatalf("expected success, got ok=%v err=%v", ok, err)
	}
	if store.removePasswordHit != 0 {
		t.Fatalf("empty password must not rotate the credential")
	}
	stored, _ := store.FindByID(context.Background(), created.ID)
	if stored.Email != "a@b.com" || stored.UserName != "a@b.com" {
		t.Fatalf("expected email to be kept, got %q / %q", stored.UserName, stored.Email)
	}
}

func TestEditUser_UnknownIDSkipsEverything(t *testing.T) {
	repo, store := newRepo(t)

	ok, err := repo.EditUser(context.Background(), ports.UserPutModel{Email: "x@b.com", Password: "NewPass1!"}, "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected failure for unknown id")
	}
	if store.mutations != 0 || store.removePasswordHit != 0 || store.addPasswordHit != 0 {
		t.Fatalf("no store mutation expected, got %d mutations, %d/%d password calls",
			store.mutations, store.removePasswordHit, store.addPasswordHit)
	}
}

func TestEditUser_ConcurrencyFailureOnUpdate(t *testing.T) {
	repo, store := newRepo(t)
	created := mustCreate(t, repo, "a@b.com")
	store.updateErr = domain.ErrConcurrencyConflict

	ok, err := repo.EditUser(context.Background(), ports.UserPutModel{Email: "new@b.com", Password: "NewPass1!"}, created.ID)
	if err != nil {
		t.Fatalf("conflict must not surface as error: %v", err)
	}
	if ok {
		t.Fatalf("expected failure on conflict")
	}
	if store.removePasswordHit != 0 {
		t.Fatalf("password must not be touched after a failed update")
	}
}

func TestEditUser_ConcurrencyFailureOnPassword(t *testing.T) {
	repo, store := newRepo(t)
	created := mustCreate(t, repo, "a@b.com")
	store.removePasswordErr = domain.ErrConcurrencyConflict

	ok, err := repo.EditUser(context.Background(), ports.UserPutModel{Email: "new@b.com", Password: "NewPass1!"}, created.ID)
	if err != nil || ok {
		t.Fatalf("expected ok=false err=nil, got ok=%v err=%v", ok, err)
	}
}

func TestEditUser_WeakPasswordLeavesUserUntouched(t *testing.T) {
	repo, store := newRepo(t)
	created := mustCreate(t, repo, "a@b.com")

	ok, err := repo.EditUser(context.Background(), ports.UserPutModel{Email: "new@b.com", Password: "weak"}, created.ID)
	if err != nil || ok {
		t.Fatalf("expected ok=false err=nil, got ok=%v err=%v", ok, err)
	}
	if store.mutations != 1 || store.removePasswordHit != 0 || store.addPasswordHit != 0 {
		t.Fatalf("no write expected after create, got %d mutations, %d/%d password calls",
			store.mutations, store.removePasswordHit, store.addPasswordHit)
	}

	stored, _ := store.FindByID(context.Background(), created.ID)
	if stored.Email != "a@b.com" || stored.UserName != "a@b.com" {
		t.Fatalf("email must be unchanged, got %q / %q", stored.UserName, stored.Email)
	}
	if match, _ := store.CheckPassword(context.Background(), stored, "Password1!"); !match {
		t.Fatalf("old password must still sign in")
	}
}

func TestEditUserPassword_WeakPasswordKeepsCredential(t *testing.T) {
	repo, store := newRepo(t)
	created := mustCreate(t, repo, "a@b.com")
	model, _ := repo.GetUser(context.Background(), created.ID)

	ok, err := repo.EditUserPassword(context.Background(), *model, "weak")
	if err != nil || ok {
		t.Fatalf("expected ok=false err=nil, got ok=%v err=%v", ok, err)
	}
	stored, _ := store.FindByID(context.Background(), created.ID)
	if match, _ := store.CheckPassword(context.Background(), stored, "Password1!"); !match {
		t.Fatalf("old password must still sign in")
	}
}

func TestEditUser_EmailTakenFails(t *testing.T) {
	repo, _ := newRepo(t)
	mustCreate(t, repo, "taken@b.com")
	created := mustCreate(t, repo, "a@b.com")

	ok, err := repo.EditUser(context.Background(), ports.UserPutModel{Email: "taken@b.com"}, created.ID)
	if err != nil || ok {
		t.Fatalf("expected ok=false err=nil, got ok=%v err=%v", ok, err)
	}
}

func TestEditUser_FaultPropagates(t *testing.T) {
	repo, store := newRepo(t)
	created := mustCreate(t, repo, "a@b.com")
	store.updateErr = errors.New("connection reset")

	ok, err := repo.EditUser(context.Background(), ports.UserPutModel{Email: "new@b.com"}, created.ID)
	if err == nil || ok {
		t.Fatalf("expected fault to propagate, got ok=%v err=%v", ok, err)
	}
}

// ---------------------------------------------------------------------------
// EditUserPassword
// ---------------------------------------------------------------------------

func TestEditUserPassword_Success(t *testing.T) {
	repo, store := newRepo(t)
	created := mustCreate(t, repo, "a@b.com")
	model, _ := repo.GetUser(context.Background(), created.ID)

	ok, err := repo.EditUserPassword(context.Background(), *model, "Rotated1!")
	if err != nil || !ok {
		t.Fatalf("expected success, got ok=%v err=%v", ok, err)
	}
	stored, _ := store.FindByID(context.Background(), created.ID)
	if match, _ := store.CheckPassword(context.Background(), stored, "Rotated1!"); !match {
		t.Fatalf("expected rotated password")
	}
}

func TestEditUserPassword_StaleModelFails(t *testing.T) {
	repo, _ := newRepo(t)
	created := mustCreate(t, repo, "a@b.com")
	model, _ := repo.GetUser(context.Background(), created.ID)

	if ok, _ := repo.EditUser(context.Background(), ports.UserPutModel{Email: "new@b.com"}, created.ID); !ok {
		t.Fatalf("setup edit failed")
	}

	ok, err := repo.EditUserPassword(context.Background(), *model, "Rotated1!")
	if err != nil || ok {
		t.Fatalf("stale stamp should fail without error, got ok=%v err=%v", ok, err)
	}
}

// ---------------------------------------------------------------------------
// DeleteUser / GetUser / GetRoles
// ---------------------------------------------------------------------------

func TestDeleteUser_TwiceSucceedsThenFails(t *testing.T) {
	repo, _ := newRepo(t)
	created := mustCreate(t, repo, "a@b.com")

	if ok, err := repo.DeleteUser(context.Background(), created.ID); err != nil || !ok {
		t.Fatalf("first delete: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.DeleteUser(context.Background(), created.ID); err != nil || ok {
		t.Fatalf("second delete: ok=%v err=%v", ok, err)
	}
	if got, _ := repo.GetUser(context.Background(), created.ID); got != nil {
		t.Fatalf("deleted user still readable: %+v", got)
	}
}

func TestDeleteUser_StoreFailure(t *testing.T) {
	repo, store := newRepo(t)
	created := mustCreate(t, repo, "a@b.com")
	store.deleteErr = domain.ErrConcurrencyConflict

	if ok, err := repo.DeleteUser(context.Background(), created.ID); err != nil || ok {
		t.Fatalf("expected ok=false err=nil, got ok=%v err=%v", ok, err)
	}
}

func TestGetUser_RoundTrip(t *testing.T) {
	repo, _ := newRepo(t)
	created := mustCreate(t, repo, "a@b.com")

	got, err := repo.GetUser(context.Background(), created.ID)
	if err != nil || got == nil {
		t.Fatalf("GetUser: got=%v err=%v", got, err)
	}
	if got.UserName != "a@b.com" || got.Email != "a@b.com" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.CustomerID != created.CustomerID {
		t.Fatalf("customer id mismatch")
	}
}

func TestGetUser_Unknown(t *testing.T) {
	repo, _ := newRepo(t)

	for _, id := range []string{"", "missing"} {
		got, err := repo.GetUser(context.Background(), id)
		if err != nil || got != nil {
			t.Fatalf("id %q: expected nil,nil got %v,%v", id, got, err)
		}
	}
}

func TestGetUser_FaultPropagates(t *testing.T) {
	repo, store := newRepo(t)
	store.findErr = errors.New("server selection timeout")

	if _, err := repo.GetUser(context.Background(), "any"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGetRoles(t *testing.T) {
	repo, _ := newRepo(t)
	created := mustCreate(t, repo, "a@b.com")

	roles, err := repo.GetRoles(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetRoles: %v", err)
	}
	if len(roles) != 1 || roles[0] != domain.RoleCustomer {
		t.Fatalf("expected [Customer], got %v", roles)
	}

	roles, err = repo.GetRoles(context.Background(), "missing")
	if err != nil || len(roles) != 0 {
		t.Fatalf("unknown id should give empty roles, got %v %v", roles, err)
	}
}
