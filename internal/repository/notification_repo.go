package repository

import (
	"context"

	"github.com/dynaerp/notify-engine/internal/domain"
)

// NotificationRepository defines all persistence operations on the
// notifications table. The pgx implementation is in pg_notification_repo.go;
// tests use the hand-written in-memory mock (mock_notification_repo.go).
//
// The engine only ever reads and mutates rows whose type is
// domain.NotificationType; every query below carries that predicate so
// notifications created by unrelated features stay untouched.
type NotificationRepository interface {
	// InsertBatch persists all pending rows in one round trip.
	InsertBatch(ctx context.Context, notifications []*domain.Notification) error
	// ListByRelated loads every transaction-origin notification previously
	// emitted for (companyID, relatedID) — the reconciler's working set.
	ListByRelated(ctx context.Context, companyID, relatedID string) ([]*domain.Notification, error)
	// UpdatePayload rewrites the stored message and read flag in place.
	UpdatePayload(ctx context.Context, id string, payload domain.MessagePayload, isRead bool) error
	// ListByRecipient pages one employee's feed, newest first.
	ListByRecipient(ctx context.Context, companyID, empID string, page, limit int) ([]*domain.Notification, int, error)
	// MarkRead flips the read flag; scoped by recipient so one employee
	// cannot ack another's row.
	MarkRead(ctx context.Context, id, empID string) error
}
