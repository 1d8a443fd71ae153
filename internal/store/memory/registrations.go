package memory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/aura-events/checkin/internal/models"
)

// Registrations implements registrations.Store and checkin.RegistrationLookup.
type Registrations struct {
	s *Store
}

// Create stores reg, assigning an id when reg.ID is empty.
func (v *Registrations) Create(_ context.Context, reg *models.Registration) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if reg.ID == "" {
		reg.ID = uuid.New().String()
	}
	if reg.Status == "" {
		reg.Status = models.StatusPending
	}
	now := v.s.now()
	reg.CreatedAt, reg.UpdatedAt = now, now
	v.s.registrations = append(v.s.registrations, copyRegistration(reg))
	return nil
}

func (v *Registrations) GetByID(_ context.Context, id string) (*models.Registration, error) {
	return v.first(func(r *models.Registration) bool { return r.ID == id }), nil
}

func (v *Registrations) SetStatus(_ context.Context, id string, status models.ApprovalStatus) (*models.Registration, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, r := range v.s.registrations {
		if r.ID == id {
			r.Status = status
			r.UpdatedAt = v.s.now()
			return copyRegistration(r), nil
		}
	}
	return nil, nil
}

func (v *Registrations) ListByEvent(_ context.Context, eventID string) ([]models.Registration, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var list []models.Registration
	for i := len(v.s.registrations) - 1; i >= 0; i-- {
		if r := v.s.registrations[i]; r.EventID == eventID {
			list = append(list, *copyRegistration(r))
		}
	}
	return list, nil
}

func (v *Registrations) RegistrationByID(_ context.Context, eventID, id string) (*models.Registration, error) {
	return v.eligible(eventID, func(r *models.Registration) bool { return r.ID == id }), nil
}

func (v *Registrations) RegistrationByEmail(_ context.Context, eventID, email string) (*models.Registration, error) {
	return v.eligible(eventID, func(r *models.Registration) bool { return strings.EqualFold(r.ContactEmail(), email) }), nil
}

func (v *Registrations) RegistrationByName(_ context.Context, eventID, name string) (*models.Registration, error) {
	return v.eligible(eventID, func(r *models.Registration) bool { return strings.EqualFold(r.DisplayName(), name) }), nil
}

func (v *Registrations) RegistrationByNameContains(_ context.Context, eventID, fragment string) (*models.Registration, error) {
	return v.eligible(eventID, func(r *models.Registration) bool { return containsFold(r.DisplayName(), fragment) }), nil
}

func (v *Registrations) eligible(eventID string, match func(*models.Registration) bool) *models.Registration {
	return v.first(func(r *models.Registration) bool {
		return r.EventID == eventID && r.CheckInEligible() && match(r)
	})
}

func (v *Registrations) first(match func(*models.Registration) bool) *models.Registration {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, r := range v.s.registrations {
		if match(r) {
			return copyRegistration(r)
		}
	}
	return nil
}
