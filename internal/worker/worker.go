package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aura-events/checkin/internal/models"
	"github.com/aura-events/checkin/pkg/queue"
)

// JobSource is the queue the processor consumes.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// LogStore records notification hand-offs. Upsert keeps one row per
// registration and notification type across retries.
type LogStore interface {
	Upsert(ctx context.Context, l *models.NotificationLog) error
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// Sender hands a notification to the delivery collaborator.
type Sender interface {
	Send(ctx context.Context, payload queue.NotificationPayload) error
}

// LogSender only logs the hand-off. Used when no delivery collaborator is configured.
type LogSender struct {
	Logger *zap.Logger
}

func (s LogSender) Send(_ context.Context, p queue.NotificationPayload) error {
	if s.Logger != nil {
		s.Logger.Info("notification handed off",
			zap.String("notification_type", p.NotificationType),
			zap.String("registration_id", p.RegistrationID),
			zap.String("recipient", p.RecipientEmail))
	}
	return nil
}

// NotificationProcessor consumes notification jobs: log row, hand-off, status update.
type NotificationProcessor struct {
	logs   LogStore
	sender Sender
	source JobSource
	logger *zap.Logger
}

// NewNotificationProcessor creates a processor. source may be nil when only Handle is used.
func NewNotificationProcessor(logs LogStore, sender Sender, source JobSource, logger *zap.Logger) *NotificationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationProcessor{logs: logs, sender: sender, source: source, logger: logger}
}

// Process executes one job.
func (p *NotificationProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeNotification {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.NotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return p.Handle(ctx, payload)
}

// Handle records and sends one notification.
func (p *NotificationProcessor) Handle(ctx context.Context, payload queue.NotificationPayload) error {
	if payload.RecipientEmail == "" {
		p.logger.Warn("notification without recipient dropped", zap.String("registration_id", payload.RegistrationID))
		return nil
	}
	l := &models.NotificationLog{
		EventID:          payload.EventID,
		RegistrationID:   payload.RegistrationID,
		NotificationType: payload.NotificationType,
		RecipientEmail:   payload.RecipientEmail,
	}
	if err := p.logs.Upsert(ctx, l); err != nil {
		return fmt.Errorf("record notification log: %w", err)
	}
	if err := p.sender.Send(ctx, payload); err != nil {
		if mErr := p.logs.MarkFailed(ctx, l.ID, err.Error()); mErr != nil {
			p.logger.Error("mark notification failed", zap.Error(mErr), zap.String("log_id", l.ID))
		}
		return fmt.Errorf("send: %w", err)
	}
	if err := p.logs.MarkSent(ctx, l.ID); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// EnqueueNotification processes payload synchronously. It lets the processor stand in
// for the Redis queue when the server runs without one.
func (p *NotificationProcessor) EnqueueNotification(ctx context.Context, payload queue.NotificationPayload) error {
	return p.Handle(ctx, payload)
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *NotificationProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopping")
			return
		default:
		}

		job, err := p.source.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			sleep(ctx, queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.source.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			sleep(ctx, queue.RetryBackoff)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
