package checkin

import (
	"context"
	"time"

	"github.com/aura-events/checkin/internal/models"
)

// TicketLookup finds tickets within one event. A miss returns nil, nil.
type TicketLookup interface {
	TicketByID(ctx context.Context, eventID, id string) (*models.Ticket, error)
	TicketByEmail(ctx context.Context, eventID, email string) (*models.Ticket, error)
	TicketByName(ctx context.Context, eventID, name string) (*models.Ticket, error)
	TicketByNameContains(ctx context.Context, eventID, fragment string) (*models.Ticket, error)
}

// RegistrationLookup finds approved attendee registrations within one event. A miss returns nil, nil.
type RegistrationLookup interface {
	RegistrationByID(ctx context.Context, eventID, id string) (*models.Registration, error)
	RegistrationByEmail(ctx context.Context, eventID, email string) (*models.Registration, error)
	RegistrationByName(ctx context.Context, eventID, name string) (*models.Registration, error)
	RegistrationByNameContains(ctx context.Context, eventID, fragment string) (*models.Registration, error)
}

// AuditInput carries the operator context of one check-in attempt.
type AuditInput struct {
	Operator string
	Method   string
	At       time.Time
}

// Applied is what the ledger observed and wrote for one attempt.
type Applied struct {
	Outcome models.Outcome
	State   models.CheckInState
	Subject models.Subject
}

// Ledger applies check-in transitions. ApplyCheckIn must read the record, apply
// models.CheckInState.Apply, store the new state and append the audit entry as one
// atomic unit; rejected attempts write nothing.
type Ledger interface {
	ApplyCheckIn(ctx context.Context, ref models.SubjectRef, allowDuplicate bool, in AuditInput) (*Applied, error)
	ListHistory(ctx context.Context, eventID string, limit, offset int) ([]models.CheckInAuditEntry, error)
	Stats(ctx context.Context, eventID string) (*models.CheckInStats, error)
}
