package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"expert-crm/internal/model"
)

type ExpertRepository struct {
	pool *pgxpool.Pool
}

func NewExpertRepository(pool *pgxpool.Pool) *ExpertRepository {
	return &ExpertRepository{pool: pool}
}

const expertColumns = `e.id, e.name, e.owner_id, e.visibility_status, e.private_expires_at,
       e.reacquisition_priority, e.last_contact_update, e.created_at, e.updated_at,
       EXISTS(SELECT 1 FROM expert_contacts ec WHERE ec.expert_id = e.id AND ec.is_verified = true)`

func scanExpert(row pgx.Row) (model.Expert, error) {
	var e model.Expert
	err := row.Scan(&e.ID, &e.Name, &e.OwnerID, &e.VisibilityStatus, &e.PrivateExpiresAt,
		&e.ReacquisitionPriority, &e.LastContactUpdate, &e.CreatedAt, &e.UpdatedAt,
		&e.HasVerifiedContact)
	return e, err
}

func (r *ExpertRepository) Create(ctx context.Context, e model.Expert) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO experts
		 (id, name, owner_id, visibility_status, private_expires_at, last_contact_update, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Name, e.OwnerID, e.VisibilityStatus, e.PrivateExpiresAt,
		e.LastContactUpdate, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create expert: %w", err)
	}
	return nil
}

func (r *ExpertRepository) FindByID(ctx context.Context, id string) (model.Expert, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+expertColumns+` FROM experts e WHERE e.id = $1`, id)

	e, err := scanExpert(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Expert{}, model.ErrExpertNotFound
	}
	if err != nil {
		return model.Expert{}, fmt.Errorf("find expert: %w", err)
	}
	return e, nil
}

func (r *ExpertRepository) List(ctx context.Context, query model.ExpertQuery) ([]model.Expert, model.Meta, error) {
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

	if visibility := strings.TrimSpace(query.Visibility); visibility != "" {
		where = append(where, fmt.Sprintf("e.visibility_status = $%d", argIdx))
		args = append(args, strings.ToUpper(visibility))
		argIdx++
	}
	if ownerID := strings.TrimSpace(query.OwnerID); ownerID != "" {
		where = append(where, fmt.Sprintf("e.owner_id = $%d", argIdx))
		args = append(args, ownerID)
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM experts e %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count experts: %w", err)
	}

	meta := model.NewMeta(query.Page, query.Limit, total)

	offset := (query.Page - 1) * query.Limit
	dataQuery := fmt.Sprintf(
		`SELECT `+expertColumns+` FROM experts e %s
		 ORDER BY e.created_at DESC
		 LIMIT $%d OFFSET $%d`, whereClause, argIdx, argIdx+1)
	args = append(args, query.Limit, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("query experts: %w", err)
	}
	defer rows.Close()

	experts := make([]model.Expert, 0)
	for rows.Next() {
		e, scanErr := scanExpert(rows)
		if scanErr != nil {
			return nil, model.Meta{}, fmt.Errorf("scan expert: %w", scanErr)
		}
		experts = append(experts, e)
	}

	return experts, meta, rows.Err()
}

// SelectAndLockExpiredCandidates claims a bounded batch of reclaimable
// experts inside the caller's transaction. A candidate is PRIVATE, past its
// lease (explicit private_expires_at, or created_at/last_contact_update older
// than leaseDays when no explicit override is set), and has no verified
// contact. Claimed rows stay locked until the transaction ends; rows already
// locked by a concurrent reader are skipped rather than waited on, so a
// future multi-worker split cannot double-claim a row.
func (r *ExpertRepository) SelectAndLockExpiredCandidates(ctx context.Context, tx pgx.Tx, leaseDays int, batchLimit int) ([]model.Candidate, error) {
	rows, err := tx.Query(ctx,
		`SELECT e.id, e.name, e.owner_id
		 FROM experts e
		 WHERE e.visibility_status = 'PRIVATE'
		   AND (
		     (e.private_expires_at IS NOT NULL AND e.private_expires_at <= now())
		     OR (
		       e.private_expires_at IS NULL
		       AND (
		         e.created_at <= now() - make_interval(days => $1)
		         OR (
		           e.last_contact_update IS NOT NULL
		           AND e.last_contact_update <= now() - make_interval(days => $1)
		         )
		       )
		     )
		   )
		   AND NOT EXISTS (
		     SELECT 1 FROM expert_contacts ec
		     WHERE ec.expert_id = e.id AND ec.is_verified = true
		   )
		 ORDER BY e.private_expires_at NULLS LAST, e.created_at
		 LIMIT $2
		 FOR UPDATE OF e SKIP LOCKED`, leaseDays, batchLimit)
	if err != nil {
		return nil, fmt.Errorf("select expired candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]model.Candidate, 0)
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.OwnerID); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

// TransitionToGlobalPool moves the given experts to the shared pool. Setting
// private_expires_at to now() marks the lease as resolved so the row can
// never be re-selected by a later sweep.
func (r *ExpertRepository) TransitionToGlobalPool(ctx context.Context, tx pgx.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tag, err := tx.Exec(ctx,
		`UPDATE experts
		 SET visibility_status = 'GLOBAL_POOL',
		     private_expires_at = now(),
		     reacquisition_priority = true,
		     updated_at = now()
		 WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("transition experts to global pool: %w", err)
	}
	if int(tag.RowsAffected()) != len(ids) {
		return fmt.Errorf("transition experts to global pool: updated %d of %d rows", tag.RowsAffected(), len(ids))
	}
	return nil
}

// LockByID reads one expert under FOR UPDATE so the force-expire path holds
// the same row claim the batch selector would.
func (r *ExpertRepository) LockByID(ctx context.Context, tx pgx.Tx, id string) (model.Candidate, string, bool, error) {
	var c model.Candidate
	var visibility string
	var exempt bool
	err := tx.QueryRow(ctx,
		`SELECT e.id, e.name, e.owner_id, e.visibility_status,
		        EXISTS(SELECT 1 FROM expert_contacts ec WHERE ec.expert_id = e.id AND ec.is_verified = true)
		 FROM experts e WHERE e.id = $1
		 FOR UPDATE OF e`, id).
		Scan(&c.ID, &c.Name, &c.OwnerID, &visibility, &exempt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Candidate{}, "", false, model.ErrExpertNotFound
	}
	if err != nil {
		return model.Candidate{}, "", false, fmt.Errorf("lock expert: %w", err)
	}
	return c, visibility, exempt, nil
}

// LockPoolExpertsByIDs returns the subset of the given ids that are currently
// in the global pool, locked for the transaction. Ids that are missing or
// still private are silently dropped, matching bulk-reclaim semantics.
func (r *ExpertRepository) LockPoolExpertsByIDs(ctx context.Context, tx pgx.Tx, ids []string) ([]model.Candidate, error) {
	rows, err := tx.Query(ctx,
		`SELECT e.id, e.name, e.owner_id
		 FROM experts e
		 WHERE e.id = ANY($1) AND e.visibility_status = 'GLOBAL_POOL'
		 FOR UPDATE OF e`, ids)
	if err != nil {
		return nil, fmt.Errorf("lock pool experts: %w", err)
	}
	defer rows.Close()

	experts := make([]model.Candidate, 0, len(ids))
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.OwnerID); err != nil {
			return nil, fmt.Errorf("scan pool expert: %w", err)
		}
		experts = append(experts, c)
	}

	return experts, rows.Err()
}

// ReassignToOwner gives the experts a new private lease under the given
// owner.
func (r *ExpertRepository) ReassignToOwner(ctx context.Context, tx pgx.Tx, ids []string, newOwnerID string, leaseDays int) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := tx.Exec(ctx,
		`UPDATE experts
		 SET owner_id = $2,
		     visibility_status = 'PRIVATE',
		     private_expires_at = now() + make_interval(days => $3),
		     reacquisition_priority = false,
		     updated_at = now()
		 WHERE id = ANY($1)`, ids, newOwnerID, leaseDays)
	if err != nil {
		return fmt.Errorf("reassign experts: %w", err)
	}
	return nil
}

// CountExpiringBetween counts private leases whose explicit expiry falls in
// the window. Feeds the decay heatmap.
func (r *ExpertRepository) CountExpiringBetween(ctx context.Context, from time.Time, to time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM experts
		 WHERE visibility_status = 'PRIVATE'
		   AND private_expires_at >= $1 AND private_expires_at <= $2`,
		from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count expiring experts: %w", err)
	}
	return count, nil
}

func (r *ExpertRepository) ListExpiringSoon(ctx context.Context, limit int) ([]model.ExpiringItem, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, name, owner_id, private_expires_at
		 FROM experts
		 WHERE visibility_status = 'PRIVATE' AND private_expires_at IS NOT NULL
		 ORDER BY private_expires_at
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list expiring experts: %w", err)
	}
	defer rows.Close()

	items := make([]model.ExpiringItem, 0)
	for rows.Next() {
		var item model.ExpiringItem
		if err := rows.Scan(&item.ID, &item.Name, &item.OwnerID, &item.PrivateExpiresAt); err != nil {
			return nil, fmt.Errorf("scan expiring expert: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}
