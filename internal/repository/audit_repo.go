package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"expert-crm/internal/model"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// InsertBatch writes one audit row per entry inside the caller's transaction.
// The engine relies on this running in the same transaction as the state
// change it records: either both land or neither does.
func (r *AuditRepository) InsertBatch(ctx context.Context, tx pgx.Tx, entries []model.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, entry := range entries {
		var metadataJSON []byte
		if entry.Metadata != nil {
			data, err := json.Marshal(entry.Metadata)
			if err != nil {
				return fmt.Errorf("marshal audit metadata: %w", err)
			}
			metadataJSON = data
		}
		batch.Queue(
			`INSERT INTO audit_entries (actor_id, target_id, action, metadata, created_at)
			 VALUES ($1, $2, $3, $4, now())`,
			entry.ActorID, entry.TargetID, entry.Action, metadataJSON)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	for range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert audit entry: %w", err)
		}
	}

	return nil
}

func (r *AuditRepository) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 200 {
		query.Limit = 200
	}

	where := make([]string, 0)
	args := make([]any, 0)
	argIdx := 1

	if action := strings.TrimSpace(query.Action); action != "" {
		where = append(where, fmt.Sprintf("upper(action) = upper($%d)", argIdx))
		args = append(args, action)
		argIdx++
	}
	if actorID := strings.TrimSpace(query.ActorID); actorID != "" {
		where = append(where, fmt.Sprintf("actor_id = $%d", argIdx))
		args = append(args, actorID)
		argIdx++
	}
	if targetID := strings.TrimSpace(query.TargetID); targetID != "" {
		where = append(where, fmt.Sprintf("target_id = $%d", argIdx))
		args = append(args, targetID)
		argIdx++
	}
	if from := strings.TrimSpace(query.From); from != "" {
		where = append(where, fmt.Sprintf("created_at >= $%d::timestamptz", argIdx))
		args = append(args, from)
		argIdx++
	}
	if to := strings.TrimSpace(query.To); to != "" {
		where = append(where, fmt.Sprintf("created_at <= $%d::timestamptz", argIdx))
		args = append(args, to)
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM audit_entries %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count audit entries: %w", err)
	}

	meta := model.NewMeta(query.Page, query.Limit, total)

	offset := (query.Page - 1) * query.Limit
	dataQuery := fmt.Sprintf(
		`SELECT id, actor_id, target_id, action, metadata, created_at
		 FROM audit_entries %s
		 ORDER BY created_at DESC, id DESC
		 LIMIT $%d OFFSET $%d`, whereClause, argIdx, argIdx+1)
	args = append(args, query.Limit, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanAuditEntries(rows)
	if err != nil {
		return nil, model.Meta{}, err
	}

	return entries, meta, rows.Err()
}

// ListRecentByAction feeds the decay dashboard's "recent manual overrides"
// panel.
func (r *AuditRepository) ListRecentByAction(ctx context.Context, action string, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, actor_id, target_id, action, metadata, created_at
		 FROM audit_entries
		 WHERE action = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`, action, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries by action: %w", err)
	}
	defer rows.Close()

	entries, err := scanAuditEntries(rows)
	if err != nil {
		return nil, err
	}

	return entries, rows.Err()
}

func scanAuditEntries(rows pgx.Rows) ([]model.AuditEntry, error) {
	entries := make([]model.AuditEntry, 0)
	for rows.Next() {
		var e model.AuditEntry
		var createdAt time.Time
		var metadataJSON []byte

		if err := rows.Scan(&e.ID, &e.ActorID, &e.TargetID, &e.Action, &metadataJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		e.CreatedAt = createdAt.UTC()
		if len(metadataJSON) > 0 {
			var metadata map[string]any
			if jsonErr := json.Unmarshal(metadataJSON, &metadata); jsonErr == nil {
				e.Metadata = metadata
			}
		}

		entries = append(entries, e)
	}

	return entries, nil
}
