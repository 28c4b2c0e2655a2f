package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dynaerp/notify-engine/internal/domain"
)

type pgNotificationRepository struct {
	pool *pgxpool.Pool
}

// NewPgNotificationRepository returns a NotificationRepository backed by PostgreSQL.
func NewPgNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &pgNotificationRepository{pool: pool}
}

func (r *pgNotificationRepository) InsertBatch(ctx context.Context, notifications []*domain.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, n := range notifications {
		payload, err := json.Marshal(n.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		batch.Queue(`
			INSERT INTO notifications
				(id, company_id, recipient_emp_id, type, related_id, message,
				 is_read, created_at, created_by)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			n.ID, n.CompanyID, n.RecipientEmpID, n.Type, n.RelatedID, payload,
			n.IsRead, n.CreatedAt, n.CreatedBy,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close() //nolint:errcheck
	for range notifications {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert notification batch: %w", err)
		}
	}
	return nil
}

func (r *pgNotificationRepository) ListByRelated(ctx context.Context, companyID, relatedID string) ([]*domain.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, recipient_emp_id, type, related_id, message,
		       is_read, created_at, created_by, updated_at
		FROM notifications
		WHERE company_id = $1 AND related_id = $2 AND type = $3
		ORDER BY created_at ASC`,
		companyID, relatedID, domain.NotificationType)
	if err != nil {
		return nil, fmt.Errorf("list by related: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func (r *pgNotificationRepository) UpdatePayload(ctx context.Context, id string, payload domain.MessagePayload, isRead bool) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET message = $1, is_read = $2, updated_at = $3
		WHERE id = $4 AND type = $5`,
		raw, isRead, time.Now().UTC(), id, domain.NotificationType)
	if err != nil {
		return fmt.Errorf("update payload: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pgNotificationRepository) ListByRecipient(ctx context.Context, companyID, empID string, page, limit int) ([]*domain.Notification, int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE company_id = $1 AND recipient_emp_id = $2 AND type = $3`,
		companyID, empID, domain.NotificationType).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count recipient notifications: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, recipient_emp_id, type, related_id, message,
		       is_read, created_at, created_by, updated_at
		FROM notifications
		WHERE company_id = $1 AND recipient_emp_id = $2 AND type = $3
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`,
		companyID, empID, domain.NotificationType, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list recipient notifications: %w", err)
	}
	defer rows.Close()

	notifications, err := scanNotifications(rows)
	return notifications, total, err
}

func (r *pgNotificationRepository) MarkRead(ctx context.Context, id, empID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND recipient_emp_id = $2 AND type = $3`,
		id, empID, domain.NotificationType)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ---- helpers ----

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	var payload []byte
	err := row.Scan(
		&n.ID, &n.CompanyID, &n.RecipientEmpID, &n.Type, &n.RelatedID,
		&payload, &n.IsRead, &n.CreatedAt, &n.CreatedBy, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &n.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload for %s: %w", n.ID, err)
	}
	return &n, nil
}

func scanNotifications(rows pgx.Rows) ([]*domain.Notification, error) {
	var result []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
