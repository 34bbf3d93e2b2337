package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// SettingsRepo implements ports.SettingsRepository over a single-row
// key/value table.
type SettingsRepo struct {
	pool Pool
}

// NewSettingsRepo creates a new SettingsRepo.
func NewSettingsRepo(pool Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

const interestEngineKey = "interest_engine"

// GetInterestEngine returns the delegated interest engine address, or ""
// when none has been set.
func (r *SettingsRepo) GetInterestEngine(ctx context.Context) (string, error) {
	query := `SELECT value FROM settings WHERE key = $1`

	var address string
	err := r.pool.QueryRow(ctx, query, interestEngineKey).Scan(&address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get interest engine: %w", err)
	}
	return address, nil
}

// SetInterestEngine replaces the interest engine delegation within a
// transaction.
func (r *SettingsRepo) SetInterestEngine(ctx context.Context, tx pgx.Tx, address string) error {
	query := `INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	if _, err := tx.Exec(ctx, query, interestEngineKey, address); err != nil {
		return fmt.Errorf("set interest engine: %w", err)
	}
	return nil
}
