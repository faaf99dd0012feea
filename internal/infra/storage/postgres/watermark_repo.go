package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/btc-connector/internal/infra/storage"
)

// WatermarkRepo implements storage.WatermarkRepository using PostgreSQL.
type WatermarkRepo struct {
	db   *DB
	name string
}

// NewWatermarkRepo creates a repository for the watermark row called name.
func NewWatermarkRepo(db *DB, name string) *WatermarkRepo {
	return &WatermarkRepo{db: db, name: name}
}

// WatermarkRow mirrors one row of the watermarks table.
type WatermarkRow struct {
	Name      string `db:"name"`
	Value     string `db:"value"`
	UpdatedAt int64  `db:"updated_at"`
}

// Load retrieves the watermark value.
func (r *WatermarkRepo) Load(ctx context.Context) (string, error) {
	var row WatermarkRow
	err := r.db.GetContext(ctx, &row,
		"SELECT name, value, updated_at FROM watermarks WHERE name = $1", r.name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrWatermarkNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get watermark: %w", err)
	}
	return row.Value, nil
}

// Save upserts the watermark value. A single statement is atomic.
func (r *WatermarkRepo) Save(ctx context.Context, value string) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO watermarks (name, value, updated_at)
		 VALUES (:name, :value, :updated_at)
		 ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		WatermarkRow{Name: r.name, Value: value, UpdatedAt: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("failed to save watermark: %w", err)
	}
	return nil
}

// Delete removes the watermark row so the next cycle starts cold.
func (r *WatermarkRepo) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM watermarks WHERE name = $1", r.name); err != nil {
		return fmt.Errorf("failed to delete watermark: %w", err)
	}
	return nil
}
