package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/event-ticketing/internal/clock"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// TokenRepo keeps SHA-256 hashes of issued refresh tokens. Expiry and
// revocation are checked against the injected clock, in UTC.
type TokenRepo struct {
	db    *sqlx.DB
	clock clock.Clock
}

func NewTokenRepo(db *sqlx.DB, c clock.Clock) *TokenRepo { return &TokenRepo{db: db, clock: c} }

func (r *TokenRepo) now() time.Time { return r.clock.Now().UTC() }

func (r *TokenRepo) StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`,
		userID, tokenHash, exp.UTC())
	return err
}

// ValidateRefresh resolves a live token to its user. Unknown, revoked and
// expired tokens all come back as ErrNotFound.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (string, error) {
	var tok model.RefreshToken
	err := r.db.GetContext(ctx, &tok, `
		SELECT id, user_id, expires_at FROM refresh_tokens
		WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > ?`,
		tokenHash, r.now())
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", ErrNotFound
	case err != nil:
		return "", err
	}
	return tok.UserID, nil
}

func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	return r.revoke(ctx, "token_hash", tokenHash)
}

// RevokeAllForUser ends every session of the user.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	return r.revoke(ctx, "user_id", userID)
}

// column is one of two constants, never caller input.
func (r *TokenRepo) revoke(ctx context.Context, column, value string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE `+column+` = ? AND revoked_at IS NULL`,
		r.now(), value)
	return err
}
