package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"expert-crm/internal/model"
	"expert-crm/pkg/apierror"
)

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// InsertBatch creates notifications inside the caller's transaction so a
// rolled-back transition never leaves orphaned notifications behind.
func (r *NotificationRepository) InsertBatch(ctx context.Context, tx pgx.Tx, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, n := range notifications {
		batch.Queue(
			`INSERT INTO notifications (user_id, type, title, body, created_at)
			 VALUES ($1, $2, $3, $4, now())`,
			n.UserID, n.Type, n.Title, n.Body)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	for range notifications {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
	}

	return nil
}

func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, page int, limit int) ([]model.Notification, model.Meta, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("count notifications: %w", err)
	}

	offset := (page - 1) * limit
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, type, title, body, read_at, created_at
		 FROM notifications
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	items := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, model.Meta{}, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}

	return items, model.NewMeta(page, limit, total), rows.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID string, notificationID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read_at = now()
		 WHERE id = $1 AND user_id = $2 AND read_at IS NULL`,
		notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierror.NotFound("notification not found", "")
	}
	return nil
}
