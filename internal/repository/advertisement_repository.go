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

// AdvertisementRepo stores banner images shown on the public pages.
type AdvertisementRepo struct {
	db    *sqlx.DB
	clock clock.Clock
}

func NewAdvertisementRepo(db *sqlx.DB, c clock.Clock) *AdvertisementRepo {
	return &AdvertisementRepo{db: db, clock: c}
}

const adColumns = "id, name, image_data, mime_type, size_label, display_order, active, created_at, updated_at"

const adInsert = `INSERT INTO advertisements (` + adColumns + `) VALUES
	(:id, :name, :image_data, :mime_type, :size_label, :display_order, :active, :created_at, :updated_at)`

// List returns every advertisement by display order.
func (r *AdvertisementRepo) List(ctx context.Context) ([]model.Advertisement, error) {
	ads := []model.Advertisement{}
	err := r.db.SelectContext(ctx, &ads, "SELECT "+adColumns+" FROM advertisements ORDER BY display_order, created_at")
	return ads, err
}

// ListActive returns only active advertisements by display order.
func (r *AdvertisementRepo) ListActive(ctx context.Context) ([]model.Advertisement, error) {
	ads := []model.Advertisement{}
	err := r.db.SelectContext(ctx, &ads, "SELECT "+adColumns+" FROM advertisements WHERE active = 1 ORDER BY display_order, created_at")
	return ads, err
}

func (r *AdvertisementRepo) GetByID(ctx context.Context, id string) (*model.Advertisement, error) {
	var ad model.Advertisement
	err := r.db.GetContext(ctx, &ad, "SELECT "+adColumns+" FROM advertisements WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ad, nil
}

func (r *AdvertisementRepo) count(ctx context.Context, q sqlx.QueryerContext) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n, "SELECT COUNT(*) FROM advertisements")
	return n, err
}

// Create inserts ad. A zero DisplayOrder places it after the existing ones.
func (r *AdvertisementRepo) Create(ctx context.Context, ad *model.Advertisement) error {
	if ad.DisplayOrder == 0 {
		n, err := r.count(ctx, r.db)
		if err != nil {
			return err
		}
		ad.DisplayOrder = n
	}
	r.stamp(ad, true)
	_, err := r.db.NamedExecContext(ctx, adInsert, ad)
	return err
}

// CreateBatch inserts ads in one transaction with consecutive display
// orders following the existing ones.
func (r *AdvertisementRepo) CreateBatch(ctx context.Context, ads []model.Advertisement) ([]model.Advertisement, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	n, err := r.count(ctx, tx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Advertisement, 0, len(ads))
	for i := range ads {
		ad := ads[i]
		ad.DisplayOrder = n + i
		r.stamp(&ad, true)
		if _, err := tx.NamedExecContext(ctx, adInsert, &ad); err != nil {
			return nil, err
		}
		out = append(out, ad)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return out, nil
}

// Update overwrites the mutable fields of ad.
func (r *AdvertisementRepo) Update(ctx context.Context, ad *model.Advertisement) error {
	r.stamp(ad, false)
	res, err := r.db.NamedExecContext(ctx, `UPDATE advertisements SET
		name = :name, image_data = :image_data, mime_type = :mime_type, size_label = :size_label,
		display_order = :display_order, active = :active, updated_at = :updated_at
		WHERE id = :id`, ad)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, ad.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *AdvertisementRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM advertisements WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AdvertisementRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM advertisements")
	return err
}

// Reorder assigns display orders 0..n-1 following ids. Unknown ids are
// skipped.
func (r *AdvertisementRepo) Reorder(ctx context.Context, ids []string) error {
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
	now := clock.Timestamp(r.clock)
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"UPDATE advertisements SET display_order = ?, updated_at = ? WHERE id = ?", i, now, id); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (r *AdvertisementRepo) stamp(ad *model.Advertisement, created bool) {
	now := clock.Timestamp(r.clock)
	if created {
		if ad.ID == "" {
			ad.ID = uuid.NewString()
		}
		ad.CreatedAt = now
	}
	ad.UpdatedAt = now
}
