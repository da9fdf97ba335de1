package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/usercore/backend/internal/config"
	"github.com/usercore/backend/internal/db"
	"github.com/usercore/backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
	ErrNotFound      = errors.New("not found")
	ErrMisconfigured = errors.New("auth config invalid")

	// ErrOrphanedSession means a refresh record outlived its user, which
	// deleteUser is supposed to make impossible. It is a server fault,
	// never a client one.
	ErrOrphanedSession = errors.New("refresh session has no backing user")
)

// AuthService drives login, refresh and logout. Access tokens come from
// the TokenIssuer; refresh credentials are owned by the SessionStore and
// are never JWTs.
type AuthService struct {
	users     UserRepository
	roles     RoleRepository
	sessions  *SessionStore
	issuer    *TokenIssuer
	accessTTL time.Duration
}

func NewAuthService(users UserRepository, roles RoleRepository, sessions *SessionStore, issuer *TokenIssuer, cfg config.AuthConfig) (*AuthService, error) {
	accessTTL, err := time.ParseDuration(cfg.AccessTTL)
	if err != nil || accessTTL <= 0 {
		return nil, fmt.Errorf("%w: invalid AUTH_ACCESS_TTL", ErrMisconfigured)
	}

	return &AuthService{
		users:     users,
		roles:     roles,
		sessions:  sessions,
		issuer:    issuer,
		accessTTL: accessTTL,
	}, nil
}

// Login verifies credentials, mints an access token and replaces the
// user's refresh session. Unknown email and wrong password are both
// reported as ErrUnauthorized so callers cannot probe which one failed.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrUnauthorized
	}

	accessToken, err := s.issuer.Issue(user.Email, s.accessTTL)
	if err != nil {
		return nil, err
	}

	_, rawRefresh, err := s.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: rawRefresh,
		Email:        user.Email,
		FullName:     user.FullName,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// Refresh exchanges a live refresh token for a new access token. The
// refresh token is not rotated: the same credential stays valid until its
// fixed expiry, so concurrent refresh calls with the same token all
// succeed.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*model.RefreshResponse, error) {
	record, err := s.sessions.FindByToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	record, err = s.sessions.VerifyExpiration(ctx, record)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, record.UserID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, fmt.Errorf("%w: user %s", ErrOrphanedSession, record.UserID)
		}
		return nil, err
	}

	accessToken, err := s.issuer.Issue(user.Email, s.accessTTL)
	if err != nil {
		return nil, err
	}

	return &model.RefreshResponse{
		AccessToken:  accessToken,
		RefreshToken: rawToken,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// Logout drops the user's refresh session. Already-logged-out users are a
// no-op.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.sessions.DeleteByUserID(ctx, userID)
}

// Authenticate resolves a bearer access token to the current user,
// including the role needed by the admin guard.
func (s *AuthService) Authenticate(ctx context.Context, tokenStr string) (*model.AuthUser, error) {
	email, err := s.issuer.Verify(tokenStr)
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	role, err := s.roles.GetRoleByID(ctx, user.RoleID)
	if err != nil {
		return nil, err
	}

	return &model.AuthUser{
		ID:    user.ID,
		Email: user.Email,
		Role:  role.Name,
	}, nil
}
