package service

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/usercore/backend/internal/config"
	"github.com/usercore/backend/internal/db"
	"github.com/usercore/backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

const defaultRoleName = "customer"

var (
	emailPattern    = regexp.MustCompile(`^[\w.-]+@([\w-]+\.)+[\w-]{2,4}$`)
	phonePattern    = regexp.MustCompile(`^(?:\+84|0)\d{9,10}$`)
	fullNamePattern = regexp.MustCompile(`^[A-Za-zÀ-ỹ0-9]+( [A-Za-zÀ-ỹ0-9]+)*$`)
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, user *model.User) (*model.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

type RoleRepository interface {
	CreateRole(ctx context.Context, role *model.Role) (*model.Role, error)
	GetRoleByName(ctx context.Context, name string) (*model.Role, error)
	GetRoleByID(ctx context.Context, roleID uuid.UUID) (*model.Role, error)
}

// UserService covers self-service registration and the admin-side user
// CRUD. Field validation lives here, not in handlers, so both entry
// points enforce the same rules.
type UserService struct {
	users       UserRepository
	roles       RoleRepository
	sessions    *SessionStore
	allowSignup bool
}

func NewUserService(users UserRepository, roles RoleRepository, sessions *SessionStore, cfg config.AuthConfig) (*UserService, error) {
	allowSignup, err := parseBool(cfg.AllowSignup, true)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ALLOW_SIGNUP", ErrMisconfigured)
	}

	return &UserService{
		users:       users,
		roles:       roles,
		sessions:    sessions,
		allowSignup: allowSignup,
	}, nil
}

// Register creates a user from a signup request. Field problems come back
// as a validation error list; only unexpected failures become errors.
func (s *UserService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, []model.ValidationError, error) {
	if !s.allowSignup {
		return nil, nil, ErrForbidden
	}
	return s.createUser(ctx, req)
}

// AdminCreateUser is the admin-side create. Same validation as Register
// but not gated on ALLOW_SIGNUP.
func (s *UserService) AdminCreateUser(ctx context.Context, req model.RegisterRequest) (*model.User, []model.ValidationError, error) {
	return s.createUser(ctx, req)
}

func (s *UserService) createUser(ctx context.Context, req model.RegisterRequest) (*model.User, []model.ValidationError, error) {
	verrs, err := s.validateRegistration(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	role, roleErr, err := s.resolveRole(ctx, req.RoleID)
	if err != nil {
		return nil, nil, err
	}
	if roleErr != nil {
		verrs = append(verrs, *roleErr)
	}
	if len(verrs) > 0 {
		return nil, verrs, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Slug:         makeSlug(req.FullName),
		DateOfBirth:  req.DateOfBirth,
		Gender:       req.Gender,
		Phone:        req.Phone,
		Address:      req.Address,
		RoleID:       role.ID,
	}

	created, err := s.users.CreateUser(ctx, user)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, nil, ErrConflict
		}
		return nil, nil, err
	}
	return created, nil, nil
}

func (s *UserService) validateRegistration(ctx context.Context, req model.RegisterRequest) ([]model.ValidationError, error) {
	var verrs []model.ValidationError

	switch {
	case req.Email == "":
		verrs = append(verrs, model.ValidationError{Field: "email", Message: "email must not be empty"})
	case strings.Contains(req.Email, " "):
		verrs = append(verrs, model.ValidationError{Field: "email", Message: "email must not contain spaces"})
	case !emailPattern.MatchString(req.Email):
		verrs = append(verrs, model.ValidationError{Field: "email", Message: "email is not valid"})
	default:
		_, err := s.users.GetUserByEmail(ctx, req.Email)
		if err == nil {
			verrs = append(verrs, model.ValidationError{Field: "email", Message: "email already exists"})
		} else if !db.IsNoRows(err) {
			return nil, err
		}
	}

	switch {
	case req.FullName == "":
		verrs = append(verrs, model.ValidationError{Field: "fullName", Message: "full name must not be empty"})
	case strings.TrimSpace(req.FullName) != req.FullName:
		verrs = append(verrs, model.ValidationError{Field: "fullName", Message: "full name must not have leading or trailing spaces"})
	case !fullNamePattern.MatchString(req.FullName):
		verrs = append(verrs, model.ValidationError{Field: "fullName", Message: "full name may only contain letters, digits and single spaces"})
	case containsEmoji(req.FullName):
		verrs = append(verrs, model.ValidationError{Field: "fullName", Message: "full name must not contain emoji"})
	}

	switch {
	case req.Phone == "":
		verrs = append(verrs, model.ValidationError{Field: "phone", Message: "phone must not be empty"})
	case !phonePattern.MatchString(req.Phone):
		verrs = append(verrs, model.ValidationError{Field: "phone", Message: "phone must start with +84 or 0 followed by 9 or 10 digits"})
	}

	if req.Password == "" {
		verrs = append(verrs, model.ValidationError{Field: "password", Message: "password must not be empty"})
	}

	return verrs, nil
}

func (s *UserService) resolveRole(ctx context.Context, roleID string) (*model.Role, *model.ValidationError, error) {
	if roleID == "" {
		role, err := s.ensureRole(ctx, defaultRoleName, "Default customer role")
		if err != nil {
			return nil, nil, err
		}
		return role, nil, nil
	}

	id, err := uuid.Parse(roleID)
	if err != nil {
		return nil, &model.ValidationError{Field: "roleId", Message: "roleId is not a valid UUID"}, nil
	}
	role, err := s.roles.GetRoleByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, &model.ValidationError{Field: "roleId", Message: fmt.Sprintf("role %s does not exist", roleID)}, nil
		}
		return nil, nil, err
	}
	return role, nil, nil
}

// ensureRole creates the named role on first use. A concurrent create is
// resolved by re-reading after a unique violation.
func (s *UserService) ensureRole(ctx context.Context, name, description string) (*model.Role, error) {
	role, err := s.roles.GetRoleByName(ctx, name)
	if err == nil {
		return role, nil
	}
	if !db.IsNoRows(err) {
		return nil, err
	}

	role, err = s.roles.CreateRole(ctx, &model.Role{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return s.roles.GetRoleByName(ctx, name)
		}
		return nil, err
	}
	return role, nil
}

// EnsureAdmin guarantees an admin account exists at startup.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: ADMIN_EMAIL/ADMIN_PASSWORD are required", ErrMisconfigured)
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !db.IsNoRows(err) {
		return err
	}

	role, err := s.ensureRole(ctx, "admin", "Administrator")
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = s.users.CreateUser(ctx, &model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Administrator",
		Slug:         makeSlug("Administrator"),
		RoleID:       role.ID,
	})
	return err
}

func (s *UserService) GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.users.ListUsers(ctx)
}

// UpdateUser applies a partial admin update. A changed full name gets a
// new slug; a provided password is re-hashed.
func (s *UserService) UpdateUser(ctx context.Context, userID uuid.UUID, req model.AdminUpdateUserRequest) (*model.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != user.Email {
		if !emailPattern.MatchString(*req.Email) || strings.Contains(*req.Email, " ") {
			return nil, ErrInvalidInput
		}
		user.Email = *req.Email
	}
	if req.Password != nil {
		if *req.Password == "" {
			return nil, ErrInvalidInput
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}
	if req.FullName != nil && *req.FullName != user.FullName {
		if !fullNamePattern.MatchString(*req.FullName) || containsEmoji(*req.FullName) {
			return nil, ErrInvalidInput
		}
		user.FullName = *req.FullName
		user.Slug = makeSlug(*req.FullName)
	}
	if req.Phone != nil {
		if !phonePattern.MatchString(*req.Phone) {
			return nil, ErrInvalidInput
		}
		user.Phone = *req.Phone
	}
	if req.DateOfBirth != nil {
		user.DateOfBirth = *req.DateOfBirth
	}
	if req.Gender != nil {
		user.Gender = *req.Gender
	}
	if req.Address != nil {
		user.Address = *req.Address
	}
	if req.RoleID != nil {
		id, err := uuid.Parse(*req.RoleID)
		if err != nil {
			return nil, ErrInvalidInput
		}
		role, err := s.roles.GetRoleByID(ctx, id)
		if err != nil {
			if db.IsNoRows(err) {
				return nil, ErrInvalidInput
			}
			return nil, err
		}
		user.RoleID = role.ID
	}

	updated, err := s.users.UpdateUser(ctx, user)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return updated, nil
}

// DeleteUser removes the user's refresh session first so a session record
// can never outlive its owner.
func (s *UserService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	if err := s.sessions.DeleteByUserID(ctx, userID); err != nil {
		return err
	}
	return s.users.DeleteUser(ctx, userID)
}

func makeSlug(fullName string) string {
	base := strings.ReplaceAll(strings.ToLower(fullName), " ", "-")
	return fmt.Sprintf("%s-%03d", base, rand.Intn(1000))
}

func containsEmoji(text string) bool {
	for _, r := range text {
		if (r >= 0x1F600 && r <= 0x1F64F) ||
			(r >= 0x1F300 && r <= 0x1F5FF) ||
			(r >= 0x1F680 && r <= 0x1F6FF) ||
			(r >= 0x1F1E6 && r <= 0x1F1FF) {
			return true
		}
	}
	return false
}

func parseBool(value string, fallback bool) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}
