package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/usercore/backend/internal/config"
	"github.com/usercore/backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

func newUserFixture(t *testing.T, cfg config.AuthConfig) (*UserService, *authFixture) {
	t.Helper()

	fx := newAuthFixture(t)
	if cfg.AccessTTL == "" {
		cfg.AccessTTL = "15m"
	}
	if cfg.RefreshTTL == "" {
		cfg.RefreshTTL = "168h"
	}

	users, err := NewUserService(fx.users, fx.roles, fx.sessions, cfg)
	if err != nil {
		t.Fatalf("NewUserService error: %v", err)
	}
	return users, fx
}

func validRegistration() model.RegisterRequest {
	return model.RegisterRequest{
		Email:    "bob@example.com",
		Password: "hunter22",
		FullName: "Bob Tran",
		Phone:    "+84912345678",
	}
}

func TestRegisterSuccess(t *testing.T) {
	t.Parallel()

	users, fx := newUserFixture(t, config.AuthConfig{})

	user, verrs, err := users.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if len(verrs) != 0 {
		t.Fatalf("unexpected validation errors: %+v", verrs)
	}

	if !regexp.MustCompile(`^bob-tran-\d{3}$`).MatchString(user.Slug) {
		t.Fatalf("unexpected slug %q", user.Slug)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter22")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}

	role, err := fx.roles.GetRoleByID(context.Background(), user.RoleID)
	if err != nil {
		t.Fatalf("GetRoleByID error: %v", err)
	}
	if role.Name != "customer" {
		t.Fatalf("default role %q, want customer", role.Name)
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	users, _ := newUserFixture(t, config.AuthConfig{})

	tests := []struct {
		name   string
		mutate func(*model.RegisterRequest)
		field  string
	}{
		{"empty email", func(r *model.RegisterRequest) { r.Email = "" }, "email"},
		{"email with space", func(r *model.RegisterRequest) { r.Email = "a b@example.com" }, "email"},
		{"bad email", func(r *model.RegisterRequest) { r.Email = "not-an-email" }, "email"},
		{"empty name", func(r *model.RegisterRequest) { r.FullName = "" }, "fullName"},
		{"padded name", func(r *model.RegisterRequest) { r.FullName = " Bob Tran " }, "fullName"},
		{"symbols in name", func(r *model.RegisterRequest) { r.FullName = "Bob<script>" }, "fullName"},
		{"emoji in name", func(r *model.RegisterRequest) { r.FullName = "Bob 😀" }, "fullName"},
		{"empty phone", func(r *model.RegisterRequest) { r.Phone = "" }, "phone"},
		{"bad phone", func(r *model.RegisterRequest) { r.Phone = "12345" }, "phone"},
		{"empty password", func(r *model.RegisterRequest) { r.Password = "" }, "password"},
		{"bad role id", func(r *model.RegisterRequest) { r.RoleID = "not-a-uuid" }, "roleId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRegistration()
			tt.mutate(&req)

			user, verrs, err := users.Register(context.Background(), req)
			if err != nil {
				t.Fatalf("Register error: %v", err)
			}
			if user != nil {
				t.Fatalf("user created despite invalid %s", tt.field)
			}
			for _, verr := range verrs {
				if verr.Field == tt.field {
					return
				}
			}
			t.Fatalf("no validation error for field %s: %+v", tt.field, verrs)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	users, _ := newUserFixture(t, config.AuthConfig{})

	if _, _, err := users.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("first Register error: %v", err)
	}

	_, verrs, err := users.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("second Register error: %v", err)
	}
	if len(verrs) == 0 || verrs[0].Field != "email" {
		t.Fatalf("expected email validation error, got %+v", verrs)
	}
}

func TestRegisterSignupDisabled(t *testing.T) {
	t.Parallel()

	users, _ := newUserFixture(t, config.AuthConfig{AllowSignup: "false"})

	if _, _, err := users.Register(context.Background(), validRegistration()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAdminCreateIgnoresSignupGate(t *testing.T) {
	t.Parallel()

	users, _ := newUserFixture(t, config.AuthConfig{AllowSignup: "false"})

	user, verrs, err := users.AdminCreateUser(context.Background(), validRegistration())
	if err != nil || len(verrs) != 0 || user == nil {
		t.Fatalf("AdminCreateUser failed: user=%v verrs=%+v err=%v", user, verrs, err)
	}
}

func TestUpdateUserChangesSlugWithName(t *testing.T) {
	t.Parallel()

	users, _ := newUserFixture(t, config.AuthConfig{})

	created, _, err := users.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	newName := "Robert Tran"
	updated, err := users.UpdateUser(context.Background(), created.ID, model.AdminUpdateUserRequest{
		FullName: &newName,
	})
	if err != nil {
		t.Fatalf("UpdateUser error: %v", err)
	}
	if updated.FullName != newName {
		t.Fatalf("full name not updated: %q", updated.FullName)
	}
	if !regexp.MustCompile(`^robert-tran-\d{3}$`).MatchString(updated.Slug) {
		t.Fatalf("slug not regenerated: %q", updated.Slug)
	}
}

func TestUpdateUserRejectsInvalidFields(t *testing.T) {
	t.Parallel()

	users, _ := newUserFixture(t, config.AuthConfig{})

	created, _, err := users.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	badEmail := "not-an-email"
	if _, err := users.UpdateUser(context.Background(), created.ID, model.AdminUpdateUserRequest{Email: &badEmail}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for email, got %v", err)
	}

	badPhone := "12345"
	if _, err := users.UpdateUser(context.Background(), created.ID, model.AdminUpdateUserRequest{Phone: &badPhone}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for phone, got %v", err)
	}
}

func TestDeleteUserRemovesSession(t *testing.T) {
	t.Parallel()

	users, fx := newUserFixture(t, config.AuthConfig{})

	created, _, err := users.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if _, _, err := fx.sessions.CreateSession(context.Background(), created.ID); err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}

	if err := users.DeleteUser(context.Background(), created.ID); err != nil {
		t.Fatalf("DeleteUser error: %v", err)
	}
	if len(fx.tokens.byHash) != 0 {
		t.Fatalf("session record outlived its user")
	}

	if err := users.DeleteUser(context.Background(), created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user, got %v", err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	t.Parallel()

	users, fx := newUserFixture(t, config.AuthConfig{})

	if err := users.EnsureAdmin(context.Background(), "", ""); !errors.Is(err, ErrMisconfigured) {
		t.Fatalf("expected ErrMisconfigured, got %v", err)
	}

	if err := users.EnsureAdmin(context.Background(), "admin@example.com", "admin-pass"); err != nil {
		t.Fatalf("EnsureAdmin error: %v", err)
	}

	admin, err := fx.users.GetUserByEmail(context.Background(), "admin@example.com")
	if err != nil {
		t.Fatalf("admin not created: %v", err)
	}
	role, err := fx.roles.GetRoleByID(context.Background(), admin.RoleID)
	if err != nil || role.Name != "admin" {
		t.Fatalf("admin role wrong: %v %v", role, err)
	}

	// Idempotent on restart.
	if err := users.EnsureAdmin(context.Background(), "admin@example.com", "other-pass"); err != nil {
		t.Fatalf("repeat EnsureAdmin error: %v", err)
	}
}
