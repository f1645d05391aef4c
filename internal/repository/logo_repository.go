package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/event-ticketing/internal/clock"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// LogoRepo keeps the single site logo.
type LogoRepo struct {
	db    *sqlx.DB
	clock clock.Clock
}

func NewLogoRepo(db *sqlx.DB, c clock.Clock) *LogoRepo { return &LogoRepo{db: db, clock: c} }

func (r *LogoRepo) Get(ctx context.Context) (*model.Logo, error) {
	var l model.Logo
	err := r.db.GetContext(ctx, &l,
		"SELECT id, name, image_data, mime_type, created_at, updated_at FROM logos ORDER BY created_at DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Replace removes any existing logo and stores l in its place.
func (r *LogoRepo) Replace(ctx context.Context, l *model.Logo) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM logos"); err != nil {
		return err
	}
	now := clock.Timestamp(r.clock)
	l.ID = uuid.NewString()
	l.CreatedAt, l.UpdatedAt = now, now
	if _, err := tx.NamedExecContext(ctx, `INSERT INTO logos (id, name, image_data, mime_type, created_at, updated_at)
		VALUES (:id, :name, :image_data, :mime_type, :created_at, :updated_at)`, l); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (r *LogoRepo) Delete(ctx context.Context) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM logos")
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
