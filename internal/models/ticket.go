package models

import "time"

// Ticket is a pass issued independently of the registration approval workflow.
type Ticket struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	HolderName  string    `json:"holder_name"`
	HolderEmail string    `json:"holder_email"`
	TicketType  string    `json:"ticket_type"`
	CheckInState
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Ticket) Ref() SubjectRef {
	return SubjectRef{Kind: SubjectTicket, ID: t.ID, EventID: t.EventID}
}

func (t *Ticket) DisplayName() string  { return t.HolderName }
func (t *Ticket) ContactEmail() string { return t.HolderEmail }
func (t *Ticket) State() CheckInState  { return t.CheckInState }
