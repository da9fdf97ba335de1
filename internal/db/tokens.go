package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/usercore/backend/internal/model"
)

// ReplaceRefreshToken removes any existing session row for the user and
// inserts the new one in a single transaction, so a user never holds two
// live refresh tokens even under concurrent logins. The UNIQUE constraint
// on user_id backstops the same invariant at the storage level.
func (db *Postgres) ReplaceRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err = tx.Exec(ctx, `
		DELETE FROM refresh_tokens WHERE user_id = $1
	`, token.UserID); err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, token.ID, token.UserID, token.TokenHash, token.ExpiresAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (db *Postgres) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`
	var token model.RefreshToken
	err := db.Pool.QueryRow(ctx, query, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (db *Postgres) DeleteRefreshTokenByID(ctx context.Context, tokenID uuid.UUID) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, tokenID)
	return err
}

func (db *Postgres) DeleteRefreshTokensByUserID(ctx context.Context, userID uuid.UUID) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	return err
}
