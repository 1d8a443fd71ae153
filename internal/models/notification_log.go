package models

import "time"

// Notification types.
const (
	NotificationRegistrationApproved = "registration_approved"
)

// NotificationLog status values.
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// NotificationLog records a notification handed to the delivery collaborator.
// There is one row per registration and notification type; retries reuse it.
type NotificationLog struct {
	ID               string     `json:"id"`
	EventID          string     `json:"event_id"`
	RegistrationID   string     `json:"registration_id"`
	NotificationType string     `json:"notification_type"`
	RecipientEmail   string     `json:"recipient_email"`
	Status           string     `json:"status"`
	SentAt           *time.Time `json:"sent_at,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	Attempts         int        `json:"attempts"`
	CreatedAt        time.Time  `json:"created_at"`
}
