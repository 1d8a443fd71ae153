package memory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/aura-events/checkin/internal/models"
)

// Tickets implements tickets.Store and checkin.TicketLookup.
type Tickets struct {
	s *Store
}

// Create stores t, assigning an id when t.ID is empty.
func (v *Tickets) Create(_ context.Context, t *models.Ticket) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := v.s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	v.s.tickets = append(v.s.tickets, copyTicket(t))
	return nil
}

func (v *Tickets) GetByID(_ context.Context, id string) (*models.Ticket, error) {
	return v.first(func(t *models.Ticket) bool { return t.ID == id }), nil
}

func (v *Tickets) TicketByID(_ context.Context, eventID, id string) (*models.Ticket, error) {
	return v.first(func(t *models.Ticket) bool { return t.EventID == eventID && t.ID == id }), nil
}

func (v *Tickets) TicketByEmail(_ context.Context, eventID, email string) (*models.Ticket, error) {
	return v.first(func(t *models.Ticket) bool {
		return t.EventID == eventID && strings.EqualFold(t.ContactEmail(), email)
	}), nil
}

func (v *Tickets) TicketByName(_ context.Context, eventID, name string) (*models.Ticket, error) {
	return v.first(func(t *models.Ticket) bool {
		return t.EventID == eventID && strings.EqualFold(t.DisplayName(), name)
	}), nil
}

func (v *Tickets) TicketByNameContains(_ context.Context, eventID, fragment string) (*models.Ticket, error) {
	return v.first(func(t *models.Ticket) bool {
		return t.EventID == eventID && containsFold(t.DisplayName(), fragment)
	}), nil
}

func (v *Tickets) first(match func(*models.Ticket) bool) *models.Ticket {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, t := range v.s.tickets {
		if match(t) {
			return copyTicket(t)
		}
	}
	return nil
}
