package models

// SubjectKind distinguishes the two checkable record kinds.
type SubjectKind string

const (
	SubjectTicket       SubjectKind = "ticket"
	SubjectRegistration SubjectKind = "registration"
)

// SubjectRef addresses one checkable record.
type SubjectRef struct {
	Kind    SubjectKind
	ID      string
	EventID string
}

// Subject is the holder snapshot returned to the operator.
type Subject struct {
	Kind  SubjectKind `json:"kind"`
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
}

// Checkable is implemented by Ticket and Registration.
type Checkable interface {
	Ref() SubjectRef
	DisplayName() string
	ContactEmail() string
	State() CheckInState
}

// SubjectOf snapshots a checkable record for responses and audit entries.
func SubjectOf(c Checkable) Subject {
	ref := c.Ref()
	return Subject{Kind: ref.Kind, ID: ref.ID, Name: c.DisplayName(), Email: c.ContactEmail()}
}
