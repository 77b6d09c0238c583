package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// LockRepository wraps PostgreSQL advisory locks. It carries no state; the
// lock lives entirely in the transaction passed to it.
type LockRepository struct{}

func NewLockRepository() *LockRepository {
	return &LockRepository{}
}

// TryAdvisoryXactLock attempts a non-blocking, transaction-scoped advisory
// lock. It must be called inside an open transaction; the lock is released
// automatically when that transaction commits or rolls back, so a crashed
// process can never orphan it. Returns false immediately when another session
// holds the lock.
func (r *LockRepository) TryAdvisoryXactLock(ctx context.Context, tx pgx.Tx, lockID int64) (bool, error) {
	var acquired bool
	err := tx.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return false, fmt.Errorf("try advisory lock %d: %w", lockID, err)
	}
	return acquired, nil
}
