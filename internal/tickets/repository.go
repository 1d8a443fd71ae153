package tickets

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/checkin/internal/models"
)

// ErrInvalidEventID is returned by Create when the event id is not a UUID.
var ErrInvalidEventID = errors.New("invalid event id")

// Repository handles ticket persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tickets repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectColumns = `SELECT id::text, event_id::text, holder_name, holder_email, ticket_type,
	is_checked_in, check_in_count, checked_in_at, last_checked_in_at, created_at, updated_at FROM tickets`

func scanTicket(row pgx.Row) (*models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(&t.ID, &t.EventID, &t.HolderName, &t.HolderEmail, &t.TicketType,
		&t.IsCheckedIn, &t.CheckInCount, &t.CheckedInAt, &t.LastCheckedInAt, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create issues a ticket.
func (r *Repository) Create(ctx context.Context, t *models.Ticket) error {
	if _, err := uuid.Parse(t.EventID); err != nil {
		return ErrInvalidEventID
	}
	const q = `INSERT INTO tickets (id, event_id, holder_name, holder_email, ticket_type)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id::text, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, t.EventID, t.HolderName, t.HolderEmail, t.TicketType).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// GetByID returns a ticket by ID in any event.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return scanTicket(r.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, id))
}

// TicketByID returns the ticket with id in eventID.
func (r *Repository) TicketByID(ctx context.Context, eventID, id string) (*models.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return r.findOne(ctx, ` WHERE event_id = $1 AND id = $2`, eventID, id)
}

// TicketByEmail matches the holder email, ignoring case.
func (r *Repository) TicketByEmail(ctx context.Context, eventID, email string) (*models.Ticket, error) {
	return r.findOne(ctx, ` WHERE event_id = $1 AND lower(holder_email) = lower($2) ORDER BY created_at LIMIT 1`, eventID, email)
}

// TicketByName matches the holder name exactly, ignoring case.
func (r *Repository) TicketByName(ctx context.Context, eventID, name string) (*models.Ticket, error) {
	return r.findOne(ctx, ` WHERE event_id = $1 AND lower(holder_name) = lower($2) ORDER BY created_at LIMIT 1`, eventID, name)
}

// TicketByNameContains returns the earliest ticket whose holder name contains fragment.
func (r *Repository) TicketByNameContains(ctx context.Context, eventID, fragment string) (*models.Ticket, error) {
	return r.findOne(ctx, ` WHERE event_id = $1 AND strpos(lower(holder_name), lower($2)) > 0 ORDER BY created_at LIMIT 1`, eventID, fragment)
}

func (r *Repository) findOne(ctx context.Context, where string, eventID string, args ...any) (*models.Ticket, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, nil
	}
	return scanTicket(r.pool.QueryRow(ctx, selectColumns+where, append([]any{eventID}, args...)...))
}
