package models

import (
	"strings"
	"time"
)

// RegistrationRole is the capacity a person registered under.
type RegistrationRole string

const (
	RoleAttendee  RegistrationRole = "attendee"
	RoleVolunteer RegistrationRole = "volunteer"
	RoleSpeaker   RegistrationRole = "speaker"
)

// Valid reports whether r is a known role.
func (r RegistrationRole) Valid() bool {
	switch r {
	case RoleAttendee, RoleVolunteer, RoleSpeaker:
		return true
	}
	return false
}

// ApprovalStatus of a registration.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Form field names that carry the registrant's name or email, in priority order.
// Forms are organizer-defined so the keys vary between events.
var (
	nameFields      = []string{"name", "fullName", "full_name", "Full Name", "attendeeName", "displayName"}
	firstNameFields = []string{"firstName", "first_name", "First Name"}
	lastNameFields  = []string{"lastName", "last_name", "Last Name"}
	emailFields     = []string{"email", "emailAddress", "email_address", "Email", "Email Address", "attendeeEmail"}
)

// Registration is a person's submission to take part in an event under a role.
type Registration struct {
	ID       string            `json:"id"`
	EventID  string            `json:"event_id"`
	Role     RegistrationRole  `json:"role"`
	FormData map[string]string `json:"form_data"`
	Status   ApprovalStatus    `json:"status"`
	CheckInState
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Registration) Ref() SubjectRef {
	return SubjectRef{Kind: SubjectRegistration, ID: r.ID, EventID: r.EventID}
}

func (r *Registration) State() CheckInState { return r.CheckInState }

// DisplayName returns the registrant's name from whichever form field carries it.
func (r *Registration) DisplayName() string {
	if v := r.firstField(nameFields); v != "" {
		return v
	}
	first, last := r.firstField(firstNameFields), r.firstField(lastNameFields)
	return strings.TrimSpace(first + " " + last)
}

// ContactEmail returns the registrant's email from whichever form field carries it.
func (r *Registration) ContactEmail() string {
	return r.firstField(emailFields)
}

func (r *Registration) firstField(keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r.FormData[k]); v != "" {
			return v
		}
	}
	return ""
}

// CheckInEligible reports whether the registration may be resolved at the door.
func (r *Registration) CheckInEligible() bool {
	return r.Role == RoleAttendee && r.Status == StatusApproved
}
