package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"expert-crm/internal/model"
)

type ContactRepository struct {
	pool *pgxpool.Pool
}

func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

func (r *ContactRepository) Create(ctx context.Context, c model.ExpertContact) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO expert_contacts (id, expert_id, channel, value, is_verified, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.ExpertID, c.Channel, c.Value, c.IsVerified, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create contact: %w", err)
	}
	return nil
}

func (r *ContactRepository) ListForExpert(ctx context.Context, expertID string) ([]model.ExpertContact, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, expert_id, channel, value, is_verified, created_at
		 FROM expert_contacts
		 WHERE expert_id = $1
		 ORDER BY created_at`, expertID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]model.ExpertContact, 0)
	for rows.Next() {
		var c model.ExpertContact
		if err := rows.Scan(&c.ID, &c.ExpertID, &c.Channel, &c.Value, &c.IsVerified, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}

	return contacts, rows.Err()
}

// VerifyTx marks a contact verified and stamps the expert's
// last_contact_update inside the caller's transaction. Verification is the
// exemption event: from this point the expert can never be auto-reclaimed.
func (r *ContactRepository) VerifyTx(ctx context.Context, tx pgx.Tx, expertID string, contactID string) error {
	tag, err := tx.Exec(ctx,
		`UPDATE expert_contacts SET is_verified = true
		 WHERE id = $1 AND expert_id = $2`, contactID, expertID)
	if err != nil {
		return fmt.Errorf("verify contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrContactNotFound
	}

	_, err = tx.Exec(ctx,
		`UPDATE experts SET last_contact_update = now(), updated_at = now()
		 WHERE id = $1`, expertID)
	if err != nil {
		return fmt.Errorf("stamp last contact update: %w", err)
	}
	return nil
}

func (r *ContactRepository) ExpertExists(ctx context.Context, expertID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM experts WHERE id = $1)`, expertID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check expert exists: %w", err)
	}
	return exists, nil
}
