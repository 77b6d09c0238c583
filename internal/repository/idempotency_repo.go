package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyRepository records caller-supplied request tokens so that
// at-least-once deliveries (retried webhooks, replayed scheduler calls) can
// be detected and dropped without double effect.
type IdempotencyRepository struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

func (r *IdempotencyRepository) IsProcessed(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM processed_requests WHERE id = $1)`, token).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check processed request: %w", err)
	}
	return exists, nil
}

// MarkProcessed claims the token with an insert-if-absent. It reports false
// when the token was already present, which is how a concurrent duplicate
// delivery loses the race: the conflicting insert waits on the first
// transaction and then affects zero rows.
func (r *IdempotencyRepository) MarkProcessed(ctx context.Context, tx pgx.Tx, token string) (bool, error) {
	tag, err := tx.Exec(ctx,
		`INSERT INTO processed_requests (id, first_seen_at)
		 VALUES ($1, now())
		 ON CONFLICT (id) DO NOTHING`, token)
	if err != nil {
		return false, fmt.Errorf("mark request processed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
