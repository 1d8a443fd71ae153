// Package memory is an in-process store for tickets, registrations and the
// check-in audit log. It backs STORAGE_DRIVER=memory and the tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-events/checkin/internal/checkin"
	"github.com/aura-events/checkin/internal/models"
)

// Store holds all records behind one lock so a check-in's state write and
// audit append are applied together.
type Store struct {
	mu            sync.RWMutex
	tickets       []*models.Ticket
	registrations []*models.Registration
	audit         []models.CheckInAuditEntry
	now           func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{now: time.Now}
}

// Tickets returns the ticket view of the store.
func (s *Store) Tickets() *Tickets { return &Tickets{s: s} }

// Registrations returns the registration view of the store.
func (s *Store) Registrations() *Registrations { return &Registrations{s: s} }

// Audit returns a copy of every audit entry in append order.
func (s *Store) Audit() []models.CheckInAuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.CheckInAuditEntry(nil), s.audit...)
}

func (s *Store) ticket(eventID, id string) *models.Ticket {
	for _, t := range s.tickets {
		if t.EventID == eventID && t.ID == id {
			return t
		}
	}
	return nil
}

func (s *Store) registration(eventID, id string) *models.Registration {
	for _, r := range s.registrations {
		if r.EventID == eventID && r.ID == id {
			return r
		}
	}
	return nil
}

// ApplyCheckIn implements checkin.Ledger.
func (s *Store) ApplyCheckIn(_ context.Context, ref models.SubjectRef, allowDuplicate bool, in checkin.AuditInput) (*checkin.Applied, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec models.Checkable
	var state *models.CheckInState
	switch ref.Kind {
	case models.SubjectTicket:
		t := s.ticket(ref.EventID, ref.ID)
		if t == nil {
			return nil, checkin.ErrRecordNotFound
		}
		rec, state = t, &t.CheckInState
	case models.SubjectRegistration:
		r := s.registration(ref.EventID, ref.ID)
		if r == nil {
			return nil, checkin.ErrRecordNotFound
		}
		rec, state = r, &r.CheckInState
	default:
		return nil, checkin.ErrRecordNotFound
	}

	next, outcome := state.Apply(allowDuplicate, in.At)
	subject := models.SubjectOf(rec)
	if outcome.Accepted() {
		*state = next
		entry := models.CheckInAuditEntry{
			ID:          uuid.New().String(),
			EventID:     ref.EventID,
			HolderName:  subject.Name,
			HolderEmail: subject.Email,
			CheckedInAt: in.At,
			Operator:    in.Operator,
			Method:      in.Method,
			IsDuplicate: outcome == models.OutcomeDuplicateCheckIn,
		}
		id := ref.ID
		if ref.Kind == models.SubjectTicket {
			entry.TicketID = &id
		} else {
			entry.SubmissionID = &id
		}
		s.audit = append(s.audit, entry)
	}
	return &checkin.Applied{Outcome: outcome, State: cloneState(next), Subject: subject}, nil
}

// ListHistory implements checkin.Ledger.
func (s *Store) ListHistory(_ context.Context, eventID string, limit, offset int) ([]models.CheckInAuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.CheckInAuditEntry
	for _, e := range s.audit {
		if e.EventID == eventID {
			list = append(list, e)
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CheckedInAt.After(list[j].CheckedInAt) })
	if offset >= len(list) {
		return nil, nil
	}
	list = list[offset:]
	if limit < len(list) {
		list = list[:limit]
	}
	return list, nil
}

// Stats implements checkin.Ledger.
func (s *Store) Stats(_ context.Context, eventID string) (*models.CheckInStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st models.CheckInStats
	tickets := map[string]struct{}{}
	regs := map[string]struct{}{}
	for _, e := range s.audit {
		if e.EventID != eventID {
			continue
		}
		st.TotalEntries++
		if e.IsDuplicate {
			st.DuplicateEntries++
		}
		if e.TicketID != nil {
			tickets[*e.TicketID] = struct{}{}
		}
		if e.SubmissionID != nil {
			regs[*e.SubmissionID] = struct{}{}
		}
	}
	st.CheckedInTickets, st.CheckedInRegistrations = len(tickets), len(regs)
	return &st, nil
}

func cloneState(st models.CheckInState) models.CheckInState {
	if st.CheckedInAt != nil {
		at := *st.CheckedInAt
		st.CheckedInAt = &at
	}
	if st.LastCheckedInAt != nil {
		at := *st.LastCheckedInAt
		st.LastCheckedInAt = &at
	}
	return st
}

func copyTicket(t *models.Ticket) *models.Ticket {
	c := *t
	c.CheckInState = cloneState(t.CheckInState)
	return &c
}

func copyRegistration(r *models.Registration) *models.Registration {
	c := *r
	c.CheckInState = cloneState(r.CheckInState)
	c.FormData = make(map[string]string, len(r.FormData))
	for k, v := range r.FormData {
		c.FormData[k] = v
	}
	return &c
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
