package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/usercore/backend/internal/config"
	"github.com/usercore/backend/internal/db"
	"github.com/usercore/backend/internal/model"
)

var ErrTokenNotFound = errors.New("refresh token not found")

type RefreshTokenRepository interface {
	ReplaceRefreshToken(ctx context.Context, token *model.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	DeleteRefreshTokenByID(ctx context.Context, tokenID uuid.UUID) error
	DeleteRefreshTokensByUserID(ctx context.Context, userID uuid.UUID) error
}

// SessionStore owns the refresh-token lifecycle: at most one live session
// per user, fixed expiry, cleanup of stale records on use. The raw
// credential is an opaque random string; only its sha256 is persisted.
type SessionStore struct {
	repo       RefreshTokenRepository
	refreshTTL time.Duration
}

func NewSessionStore(repo RefreshTokenRepository, cfg config.AuthConfig) (*SessionStore, error) {
	refreshTTL, err := time.ParseDuration(cfg.RefreshTTL)
	if err != nil || refreshTTL <= 0 {
		return nil, fmt.Errorf("%w: invalid AUTH_REFRESH_TTL", ErrMisconfigured)
	}
	return &SessionStore{repo: repo, refreshTTL: refreshTTL}, nil
}

// CreateSession replaces any existing session for the user with a fresh
// one and returns the new record together with the raw token to hand to
// the client. Any previously issued refresh token for the user stops
// working once this returns.
func (store *SessionStore) CreateSession(ctx context.Context, userID uuid.UUID) (*model.RefreshToken, string, error) {
	rawToken, tokenHash, err := newRefreshToken()
	if err != nil {
		return nil, "", err
	}

	record := &model.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(store.refreshTTL),
	}
	if err := store.repo.ReplaceRefreshToken(ctx, record); err != nil {
		return nil, "", fmt.Errorf("failed to persist refresh session: %w", err)
	}

	return record, rawToken, nil
}

// FindByToken looks up the session for a presented raw token. A miss is
// ErrTokenNotFound; callers must not surface whether the token ever
// existed.
func (store *SessionStore) FindByToken(ctx context.Context, rawToken string) (*model.RefreshToken, error) {
	record, err := store.repo.GetRefreshTokenByHash(ctx, hashRefreshToken(rawToken))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return record, nil
}

// VerifyExpiration returns the record unchanged while it is still live.
// An expired record is deleted before ErrTokenExpired is returned, so
// stale sessions never accumulate.
func (store *SessionStore) VerifyExpiration(ctx context.Context, record *model.RefreshToken) (*model.RefreshToken, error) {
	if !time.Now().Before(record.ExpiresAt) {
		if err := store.repo.DeleteRefreshTokenByID(ctx, record.ID); err != nil {
			return nil, fmt.Errorf("failed to delete expired refresh session: %w", err)
		}
		return nil, ErrTokenExpired
	}
	return record, nil
}

// DeleteByUserID removes the user's session if present. Deleting a user
// with no session is a no-op.
func (store *SessionStore) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	return store.repo.DeleteRefreshTokensByUserID(ctx, userID)
}

func newRefreshToken() (string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	return token, hashRefreshToken(token), nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
