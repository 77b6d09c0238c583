package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const LeaseDaysKey = "lease_days"

const DefaultLeaseDays = 30

// SettingsRepository reads and writes the system_config key/value table. The
// reclamation engine only ever reads from it; writes come from the admin
// settings surface.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// LeaseDaysTx reads the lease duration inside the given transaction so the
// value is part of the sweep's snapshot: a concurrent settings change cannot
// affect candidates already selected in the same run.
func (r *SettingsRepository) LeaseDaysTx(ctx context.Context, tx pgx.Tx) (int, error) {
	var raw []byte
	err := tx.QueryRow(ctx,
		`SELECT value FROM system_config WHERE key = $1`, LeaseDaysKey).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultLeaseDays, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read lease days: %w", err)
	}

	return parseLeaseDays(raw)
}

func (r *SettingsRepository) LeaseDays(ctx context.Context) (int, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT value FROM system_config WHERE key = $1`, LeaseDaysKey).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultLeaseDays, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read lease days: %w", err)
	}

	return parseLeaseDays(raw)
}

func (r *SettingsRepository) SetLeaseDays(ctx context.Context, days int) error {
	value, err := json.Marshal(days)
	if err != nil {
		return fmt.Errorf("encode lease days: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO system_config (key, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		LeaseDaysKey, value)
	if err != nil {
		return fmt.Errorf("write lease days: %w", err)
	}
	return nil
}

func parseLeaseDays(raw []byte) (int, error) {
	var days int
	if err := json.Unmarshal(raw, &days); err != nil {
		return 0, fmt.Errorf("malformed %s config value: %w", LeaseDaysKey, err)
	}
	if days <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", LeaseDaysKey, days)
	}
	return days, nil
}
