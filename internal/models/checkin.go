package models

import "time"

// Outcome is the tagged result of one check-in attempt.
type Outcome string

const (
	OutcomeNotFound         Outcome = "not_found"
	OutcomeAlreadyCheckedIn Outcome = "already_checked_in"
	OutcomeFirstCheckIn     Outcome = "first_check_in"
	OutcomeDuplicateCheckIn Outcome = "duplicate_check_in"
)

// Accepted reports whether the outcome mutated the record and appended an audit entry.
func (o Outcome) Accepted() bool {
	return o == OutcomeFirstCheckIn || o == OutcomeDuplicateCheckIn
}

// Check-in methods recorded on audit entries.
const (
	MethodWeb    = "web"
	MethodKiosk  = "kiosk"
	MethodQR     = "qr"
	MethodManual = "manual"
)

// CheckInState is the cached latest check-in state carried by tickets and registrations.
// CheckInCount > 0 iff IsCheckedIn; CheckedInAt is set once, on the first check-in.
type CheckInState struct {
	IsCheckedIn     bool       `json:"is_checked_in"`
	CheckInCount    int        `json:"check_in_count"`
	CheckedInAt     *time.Time `json:"checked_in_at,omitempty"`
	LastCheckedInAt *time.Time `json:"last_checked_in_at,omitempty"`
}

// Apply computes the transition for one check-in attempt at now.
// A rejected attempt returns the receiver unchanged.
func (s CheckInState) Apply(allowDuplicate bool, now time.Time) (CheckInState, Outcome) {
	if !s.IsCheckedIn {
		at := now
		return CheckInState{
			IsCheckedIn:     true,
			CheckInCount:    1,
			CheckedInAt:     &at,
			LastCheckedInAt: &at,
		}, OutcomeFirstCheckIn
	}
	if !allowDuplicate {
		return s, OutcomeAlreadyCheckedIn
	}
	at := now
	next := s
	next.CheckInCount++
	next.LastCheckedInAt = &at
	return next, OutcomeDuplicateCheckIn
}

// CheckInAuditEntry is one immutable history row. Exactly one of TicketID and SubmissionID is set.
type CheckInAuditEntry struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	TicketID     *string   `json:"ticket_id,omitempty"`
	SubmissionID *string   `json:"submission_id,omitempty"`
	HolderName   string    `json:"holder_name"`
	HolderEmail  string    `json:"holder_email"`
	CheckedInAt  time.Time `json:"checked_in_at"`
	Operator     string    `json:"operator"`
	Method       string    `json:"method"`
	IsDuplicate  bool      `json:"is_duplicate"`
}

// CheckInStats summarizes the audit log of one event.
type CheckInStats struct {
	TotalEntries           int `json:"total_entries"`
	DuplicateEntries       int `json:"duplicate_entries"`
	CheckedInTickets       int `json:"checked_in_tickets"`
	CheckedInRegistrations int `json:"checked_in_registrations"`
}
