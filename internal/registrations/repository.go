package registrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/checkin/internal/models"
)

// ErrInvalidEventID is returned by Create when the event id is not a UUID.
var ErrInvalidEventID = errors.New("invalid event id")

// Repository handles registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectColumns = `SELECT id::text, event_id::text, role, form_data, status,
	is_checked_in, check_in_count, checked_in_at, last_checked_in_at, created_at, updated_at FROM registrations`

// eligible restricts lookups to registrations that can be checked in at the door.
const eligible = ` AND role = 'attendee' AND status = 'approved'`

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var reg models.Registration
	var form []byte
	err := row.Scan(&reg.ID, &reg.EventID, &reg.Role, &form, &reg.Status,
		&reg.IsCheckedIn, &reg.CheckInCount, &reg.CheckedInAt, &reg.LastCheckedInAt, &reg.CreatedAt, &reg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(form) > 0 {
		if err := json.Unmarshal(form, &reg.FormData); err != nil {
			return nil, fmt.Errorf("decode form data: %w", err)
		}
	}
	return &reg, nil
}

// Create inserts a registration. Name and email are materialized from the form data for lookups.
func (r *Repository) Create(ctx context.Context, reg *models.Registration) error {
	if _, err := uuid.Parse(reg.EventID); err != nil {
		return ErrInvalidEventID
	}
	form, err := json.Marshal(reg.FormData)
	if err != nil {
		return fmt.Errorf("encode form data: %w", err)
	}
	const q = `INSERT INTO registrations (id, event_id, role, form_data, display_name, contact_email, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id::text, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, reg.EventID, reg.Role, form, reg.DisplayName(), reg.ContactEmail(), reg.Status).
		Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)
}

// GetByID returns a registration by ID regardless of role or status.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Registration, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return scanRegistration(r.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, id))
}

// SetStatus updates the approval status and returns the updated registration.
func (r *Repository) SetStatus(ctx context.Context, id string, status models.ApprovalStatus) (*models.Registration, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	const q = `UPDATE registrations SET status = $2, updated_at = NOW() WHERE id = $1
		RETURNING id::text, event_id::text, role, form_data, status,
		is_checked_in, check_in_count, checked_in_at, last_checked_in_at, created_at, updated_at`
	return scanRegistration(r.pool.QueryRow(ctx, q, id, status))
}

// ListByEvent returns all registrations for an event, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID string) ([]models.Registration, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, selectColumns+` WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *reg)
	}
	return list, rows.Err()
}

// RegistrationByID returns the approved attendee registration with id in eventID.
func (r *Repository) RegistrationByID(ctx context.Context, eventID, id string) (*models.Registration, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return r.findOne(ctx, ` WHERE event_id = $1 AND id = $2`+eligible, eventID, id)
}

// RegistrationByEmail matches the materialized contact email, ignoring case.
func (r *Repository) RegistrationByEmail(ctx context.Context, eventID, email string) (*models.Registration, error) {
	return r.findOne(ctx, ` WHERE event_id = $1 AND lower(contact_email) = lower($2)`+eligible+` ORDER BY created_at LIMIT 1`, eventID, email)
}

// RegistrationByName matches the materialized display name exactly, ignoring case.
func (r *Repository) RegistrationByName(ctx context.Context, eventID, name string) (*models.Registration, error) {
	return r.findOne(ctx, ` WHERE event_id = $1 AND lower(display_name) = lower($2)`+eligible+` ORDER BY created_at LIMIT 1`, eventID, name)
}

// RegistrationByNameContains returns the earliest registration whose display name contains fragment.
func (r *Repository) RegistrationByNameContains(ctx context.Context, eventID, fragment string) (*models.Registration, error) {
	return r.findOne(ctx, ` WHERE event_id = $1 AND strpos(lower(display_name), lower($2)) > 0`+eligible+` ORDER BY created_at LIMIT 1`, eventID, fragment)
}

func (r *Repository) findOne(ctx context.Context, where string, eventID string, args ...any) (*models.Registration, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, nil
	}
	return scanRegistration(r.pool.QueryRow(ctx, selectColumns+where, append([]any{eventID}, args...)...))
}
