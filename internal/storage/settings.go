package storage

import (
	"context"
	"fmt"

	"tesouraria/internal/core"
)

const settingDuesAmount = "dues_flat_amount_cents"

// GetDuesAmount returns the stored flat monthly amount, or ErrNotFound when
// it was never set.
func (r *SQLiteRepository) GetDuesAmount(ctx context.Context) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT CAST(value AS INTEGER) FROM settings WHERE key = ?`, settingDuesAmount).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("get dues amount: %w", mapError(err))
	}
	return core.Money{Cents: cents}, nil
}

func (r *SQLiteRepository) SetDuesAmount(ctx context.Context, amount core.Money) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		settingDuesAmount, fmt.Sprintf("%d", amount.Cents))
	if err != nil {
		return fmt.Errorf("set dues amount: %w", err)
	}
	return nil
}
