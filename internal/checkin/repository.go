package checkin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/checkin/internal/models"
)

// Repository is the Postgres Ledger. The record update and the audit insert share one transaction.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a check-in repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type lockedRecord struct {
	name  string
	email string
	state models.CheckInState
}

// ApplyCheckIn locks the record row, applies the transition and, if accepted,
// writes the new state and one audit entry before committing.
func (r *Repository) ApplyCheckIn(ctx context.Context, ref models.SubjectRef, allowDuplicate bool, in AuditInput) (*Applied, error) {
	if _, err := uuid.Parse(ref.ID); err != nil {
		return nil, ErrRecordNotFound
	}
	if _, err := uuid.Parse(ref.EventID); err != nil {
		return nil, ErrRecordNotFound
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := lockRecord(ctx, tx, ref)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", ref.Kind, err)
	}

	next, outcome := rec.state.Apply(allowDuplicate, in.At)
	applied := &Applied{
		Outcome: outcome,
		State:   next,
		Subject: models.Subject{Kind: ref.Kind, ID: ref.ID, Name: rec.name, Email: rec.email},
	}
	if !outcome.Accepted() {
		return applied, nil
	}

	if err := writeState(ctx, tx, ref, next); err != nil {
		return nil, fmt.Errorf("update %s: %w", ref.Kind, err)
	}
	var ticketID, submissionID *string
	id := ref.ID
	if ref.Kind == models.SubjectTicket {
		ticketID = &id
	} else {
		submissionID = &id
	}
	const ins = `INSERT INTO check_in_audit (id, event_id, ticket_id, submission_id, holder_name, holder_email, checked_in_at, operator, method, is_duplicate)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := tx.Exec(ctx, ins, ref.EventID, ticketID, submissionID, rec.name, rec.email, in.At, in.Operator, in.Method,
		outcome == models.OutcomeDuplicateCheckIn); err != nil {
		return nil, fmt.Errorf("append audit: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return applied, nil
}

func lockRecord(ctx context.Context, tx pgx.Tx, ref models.SubjectRef) (*lockedRecord, error) {
	var q string
	switch ref.Kind {
	case models.SubjectTicket:
		q = `SELECT holder_name, holder_email, is_checked_in, check_in_count, checked_in_at, last_checked_in_at
			FROM tickets WHERE id = $1 AND event_id = $2 FOR UPDATE`
	case models.SubjectRegistration:
		q = `SELECT display_name, contact_email, is_checked_in, check_in_count, checked_in_at, last_checked_in_at
			FROM registrations WHERE id = $1 AND event_id = $2 FOR UPDATE`
	default:
		return nil, fmt.Errorf("unknown subject kind %q", ref.Kind)
	}
	var rec lockedRecord
	err := tx.QueryRow(ctx, q, ref.ID, ref.EventID).Scan(&rec.name, &rec.email,
		&rec.state.IsCheckedIn, &rec.state.CheckInCount, &rec.state.CheckedInAt, &rec.state.LastCheckedInAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func writeState(ctx context.Context, tx pgx.Tx, ref models.SubjectRef, s models.CheckInState) error {
	table := "tickets"
	if ref.Kind == models.SubjectRegistration {
		table = "registrations"
	}
	q := `UPDATE ` + table + ` SET is_checked_in = $2, check_in_count = $3, checked_in_at = $4, last_checked_in_at = $5, updated_at = NOW()
		WHERE id = $1`
	_, err := tx.Exec(ctx, q, ref.ID, s.IsCheckedIn, s.CheckInCount, s.CheckedInAt, s.LastCheckedInAt)
	return err
}

// ListHistory returns audit entries for an event, newest first.
func (r *Repository) ListHistory(ctx context.Context, eventID string, limit, offset int) ([]models.CheckInAuditEntry, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, event_id::text, ticket_id::text, submission_id::text, holder_name, holder_email, checked_in_at, operator, method, is_duplicate
		 FROM check_in_audit WHERE event_id = $1 ORDER BY checked_in_at DESC LIMIT $2 OFFSET $3`,
		eventID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.CheckInAuditEntry
	for rows.Next() {
		var e models.CheckInAuditEntry
		if err := rows.Scan(&e.ID, &e.EventID, &e.TicketID, &e.SubmissionID, &e.HolderName, &e.HolderEmail,
			&e.CheckedInAt, &e.Operator, &e.Method, &e.IsDuplicate); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Stats summarizes the audit log for an event.
func (r *Repository) Stats(ctx context.Context, eventID string) (*models.CheckInStats, error) {
	var st models.CheckInStats
	if _, err := uuid.Parse(eventID); err != nil {
		return &st, nil
	}
	const q = `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_duplicate),
		COUNT(DISTINCT ticket_id), COUNT(DISTINCT submission_id)
		FROM check_in_audit WHERE event_id = $1`
	if err := r.pool.QueryRow(ctx, q, eventID).Scan(&st.TotalEntries, &st.DuplicateEntries,
		&st.CheckedInTickets, &st.CheckedInRegistrations); err != nil {
		return nil, err
	}
	return &st, nil
}
