package notifications_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/checkin/internal/models"
	"github.com/aura-events/checkin/internal/notifications"
	"github.com/aura-events/checkin/internal/registrations"
	"github.com/aura-events/checkin/internal/testutil/containers"
)

func TestUpsertKeepsOneRowPerNotification(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()
	eventID := uuid.NewString()

	reg := &models.Registration{EventID: eventID, Role: models.RoleAttendee, Status: models.StatusApproved,
		FormData: map[string]string{"name": "John Smith", "email": "john@x.com"}}
	require.NoError(t, registrations.NewRepository(pg.Pool).Create(ctx, reg))

	repo := notifications.NewRepository(pg.Pool)
	newLog := func() *models.NotificationLog {
		return &models.NotificationLog{EventID: eventID, RegistrationID: reg.ID,
			NotificationType: models.NotificationRegistrationApproved, RecipientEmail: "john@x.com"}
	}

	first := newLog()
	require.NoError(t, repo.Upsert(ctx, first))
	assert.Equal(t, 1, first.Attempts)
	require.NoError(t, repo.MarkFailed(ctx, first.ID, "smtp down"))

	second := newLog()
	require.NoError(t, repo.Upsert(ctx, second))
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Attempts)

	list, err := repo.ListByEvent(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationStatusPending, list[0].Status)
	assert.Empty(t, list[0].ErrorMessage)
	assert.Equal(t, 2, list[0].Attempts)

	require.NoError(t, repo.MarkSent(ctx, second.ID))
	list, err = repo.ListByEvent(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationStatusSent, list[0].Status)
	assert.NotNil(t, list[0].SentAt)
}
