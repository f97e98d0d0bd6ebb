package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestPasswordPolicy_Validate(t *testing.T) {
	policy := DefaultPasswordPolicy()

	tests := []struct {
		name     string
		password string
		wantRule string
	}{
		{name: "valid", password: "Password1!"},
		{name: "valid rotated", password: "NewPass1!"},
		{name: "too short", password: "Pa1!", wantRule: "at least 8 characters"},
		{name: "no digit", password: "Password!!", wantRule: "digit"},
		{name: "no lowercase", password: "PASSWORD1!", wantRule: "lowercase"},
		{name: "no uppercase", password: "password1!", wantRule: "uppercase"},
		{name: "no symbol", password: "Password12", wantRule: "non-alphanumeric"},
		{name: "few unique", password: "Aa1!Aa1!Aa1!", wantRule: "unique characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Validate(tt.password)
			if tt.wantRule == "" {
				if err != nil {
					t.Fatalf("expected valid password, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrPasswordPolicy) {
				t.Fatalf("expected ErrPasswordPolicy, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantRule) {
				t.Fatalf("expected %q in %q", tt.wantRule, err.Error())
			}
		})
	}
}

func TestPasswordPolicy_ZeroValueAcceptsAnything(t *testing.T) {
	if err := (PasswordPolicy{}).Validate("x"); err != nil {
		t.Fatalf("zero policy should accept any password, got %v", err)
	}
}

func TestIsStoreRejection(t *testing.T) {
	if !IsStoreRejection(ErrConcurrencyConflict) {
		t.Fatalf("concurrency conflict should be a rejection")
	}
	if !IsStoreRejection(DefaultPasswordPolicy().Validate("")) {
		t.Fatalf("wrapped policy error should be a rejection")
	}
	if IsStoreRejection(errors.New("connection reset")) {
		t.Fatalf("unknown errors are faults")
	}
}

func TestUser_InRole(t *testing.T) {
	u := &User{Roles: []string{RoleCustomer}}
	if !u.InRole("customer") {
		t.Fatalf("role lookup should ignore case")
	}
	if u.InRole(RoleStaff) {
		t.Fatalf("user is not staff")
	}
}
