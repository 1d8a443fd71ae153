package notifications

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/checkin/internal/models"
)

// Repository handles notification_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notification log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert inserts a pending log row, or resets the existing row for the same
// registration and notification type to pending and counts the attempt.
func (r *Repository) Upsert(ctx context.Context, l *models.NotificationLog) error {
	const q = `INSERT INTO notification_logs (id, event_id, registration_id, notification_type, recipient_email, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		ON CONFLICT (registration_id, notification_type) DO UPDATE
		SET status = EXCLUDED.status, recipient_email = EXCLUDED.recipient_email, error_message = NULL,
			attempts = notification_logs.attempts + 1
		RETURNING id::text, attempts, created_at`
	l.Status = models.NotificationStatusPending
	return r.pool.QueryRow(ctx, q, l.EventID, l.RegistrationID, l.NotificationType, l.RecipientEmail, l.Status).
		Scan(&l.ID, &l.Attempts, &l.CreatedAt)
}

// MarkSent records a successful hand-off.
func (r *Repository) MarkSent(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_logs SET status = $2, sent_at = NOW(), error_message = NULL WHERE id = $1`,
		id, models.NotificationStatusSent)
	return err
}

// MarkFailed records a failed hand-off.
func (r *Repository) MarkFailed(ctx context.Context, id, reason string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_logs SET status = $2, error_message = $3 WHERE id = $1`,
		id, models.NotificationStatusFailed, reason)
	return err
}

// ListByEvent returns notification logs for an event, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID string) ([]*models.NotificationLog, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, nil
	}
	const q = `SELECT id::text, event_id::text, registration_id::text, notification_type, recipient_email, status, sent_at, error_message, attempts, created_at
		FROM notification_logs
		WHERE event_id = $1
		ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.NotificationLog
	for rows.Next() {
		var l models.NotificationLog
		var errMsg *string
		if err := rows.Scan(&l.ID, &l.EventID, &l.RegistrationID, &l.NotificationType, &l.RecipientEmail, &l.Status, &l.SentAt, &errMsg, &l.Attempts, &l.CreatedAt); err != nil {
			return nil, err
		}
		if errMsg != nil {
			l.ErrorMessage = *errMsg
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}
