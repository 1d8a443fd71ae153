package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/checkin/internal/models"
	"github.com/aura-events/checkin/internal/notifications"
	"github.com/aura-events/checkin/pkg/queue"
)

type senderFunc func(context.Context, queue.NotificationPayload) error

func (f senderFunc) Send(ctx context.Context, p queue.NotificationPayload) error { return f(ctx, p) }

func approval() queue.NotificationPayload {
	return queue.NotificationPayload{
		NotificationType: models.NotificationRegistrationApproved,
		EventID:          "E1",
		RegistrationID:   "R1",
		RecipientEmail:   "john@x.com",
		RecipientName:    "John Smith",
	}
}

func TestProcessMarksSent(t *testing.T) {
	ctx := context.Background()
	logs := notifications.NewInMemory()
	var got []queue.NotificationPayload
	p := NewNotificationProcessor(logs, senderFunc(func(_ context.Context, pl queue.NotificationPayload) error {
		got = append(got, pl)
		return nil
	}), nil, nil)

	job, err := queue.NewJob(queue.JobTypeNotification, approval())
	require.NoError(t, err)
	require.NoError(t, p.Process(ctx, job))

	require.Len(t, got, 1)
	assert.Equal(t, "R1", got[0].RegistrationID)
	list, err := logs.ListByEvent(ctx, "E1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationStatusSent, list[0].Status)
	assert.NotNil(t, list[0].SentAt)
}

func TestProcessMarksFailed(t *testing.T) {
	ctx := context.Background()
	logs := notifications.NewInMemory()
	p := NewNotificationProcessor(logs, senderFunc(func(context.Context, queue.NotificationPayload) error {
		return errors.New("smtp unavailable")
	}), nil, nil)

	err := p.EnqueueNotification(ctx, approval())
	require.Error(t, err)

	list, _ := logs.ListByEvent(ctx, "E1")
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationStatusFailed, list[0].Status)
	assert.Equal(t, "smtp unavailable", list[0].ErrorMessage)
}

func TestProcessRejectsUnknownJob(t *testing.T) {
	p := NewNotificationProcessor(notifications.NewInMemory(), LogSender{}, nil, nil)
	err := p.Process(context.Background(), &queue.Job{Type: "export"})
	assert.Error(t, err)
}

func TestHandleDropsMissingRecipient(t *testing.T) {
	ctx := context.Background()
	logs := notifications.NewInMemory()
	p := NewNotificationProcessor(logs, LogSender{}, nil, nil)

	pl := approval()
	pl.RecipientEmail = ""
	require.NoError(t, p.Handle(ctx, pl))
	list, _ := logs.ListByEvent(ctx, "E1")
	assert.Empty(t, list)
}

type oneShotSource struct {
	jobs    []*queue.Job
	retried []*queue.Job
	cancel  context.CancelFunc
}

func (s *oneShotSource) Dequeue(context.Context) (*queue.Job, error) {
	if len(s.jobs) == 0 {
		s.cancel()
		return nil, nil
	}
	j := s.jobs[0]
	s.jobs = s.jobs[1:]
	return j, nil
}

func (s *oneShotSource) Retry(_ context.Context, j *queue.Job) error {
	s.retried = append(s.retried, j)
	return nil
}

func TestRunProcessesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ok, err := queue.NewJob(queue.JobTypeNotification, approval())
	require.NoError(t, err)
	src := &oneShotSource{jobs: []*queue.Job{ok}, cancel: cancel}
	logs := notifications.NewInMemory()

	NewNotificationProcessor(logs, LogSender{}, src, nil).Run(ctx)

	assert.Empty(t, src.retried)
	list, _ := logs.ListByEvent(context.Background(), "E1")
	assert.Len(t, list, 1)
}

func TestRetriedJobKeepsOneLogRow(t *testing.T) {
	ctx := context.Background()
	logs := notifications.NewInMemory()
	calls := 0
	p := NewNotificationProcessor(logs, senderFunc(func(context.Context, queue.NotificationPayload) error {
		calls++
		if calls < 3 {
			return errors.New("smtp unavailable")
		}
		return nil
	}), nil, nil)

	job, err := queue.NewJob(queue.JobTypeNotification, approval())
	require.NoError(t, err)
	require.Error(t, p.Process(ctx, job))
	require.Error(t, p.Process(ctx, job))
	require.NoError(t, p.Process(ctx, job))

	list, err := logs.ListByEvent(ctx, "E1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationStatusSent, list[0].Status)
	assert.Equal(t, 3, list[0].Attempts)
	assert.Empty(t, list[0].ErrorMessage)
}
