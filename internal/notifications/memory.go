package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-events/checkin/internal/models"
)

// InMemory keeps notification logs in process for STORAGE_DRIVER=memory and tests.
type InMemory struct {
	mu   sync.RWMutex
	logs []*models.NotificationLog
}

// NewInMemory creates an empty log store.
func NewInMemory() *InMemory {
	return &InMemory{}
}

func (m *InMemory) Upsert(_ context.Context, l *models.NotificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.Status = models.NotificationStatusPending
	for _, existing := range m.logs {
		if existing.RegistrationID == l.RegistrationID && existing.NotificationType == l.NotificationType {
			existing.Status, existing.ErrorMessage, existing.RecipientEmail = l.Status, "", l.RecipientEmail
			existing.Attempts++
			l.ID, l.Attempts, l.CreatedAt = existing.ID, existing.Attempts, existing.CreatedAt
			return nil
		}
	}
	l.ID = uuid.New().String()
	l.CreatedAt = time.Now().UTC()
	l.Attempts = 1
	c := *l
	m.logs = append(m.logs, &c)
	return nil
}

func (m *InMemory) MarkSent(_ context.Context, id string) error {
	return m.update(id, func(l *models.NotificationLog) {
		at := time.Now().UTC()
		l.Status, l.SentAt, l.ErrorMessage = models.NotificationStatusSent, &at, ""
	})
}

func (m *InMemory) MarkFailed(_ context.Context, id, reason string) error {
	return m.update(id, func(l *models.NotificationLog) {
		l.Status, l.ErrorMessage = models.NotificationStatusFailed, reason
	})
}

func (m *InMemory) ListByEvent(_ context.Context, eventID string) ([]*models.NotificationLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var list []*models.NotificationLog
	for i := len(m.logs) - 1; i >= 0; i-- {
		if m.logs[i].EventID == eventID {
			c := *m.logs[i]
			list = append(list, &c)
		}
	}
	return list, nil
}

func (m *InMemory) update(id string, fn func(*models.NotificationLog)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.logs {
		if l.ID == id {
			fn(l)
		}
	}
	return nil
}
