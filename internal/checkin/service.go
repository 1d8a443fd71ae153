package checkin

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aura-events/checkin/internal/models"
)

// Request is one check-in attempt submitted by a QR scan or the manual form.
type Request struct {
	Identifier            string
	EventID               string
	AllowDuplicateCheckIn bool
	Operator              string
	Method                string
}

// Recorder receives per-attempt measurements.
type Recorder interface {
	ObserveCheckIn(outcome models.Outcome, elapsed time.Duration)
	StorageError(stage string)
}

// FeedPublisher receives accepted check-ins for live dashboards.
type FeedPublisher interface {
	PublishCheckIn(eventID string, entry FeedEntry)
}

// FeedEntry is the live-feed payload for one accepted check-in.
type FeedEntry struct {
	Status       models.Outcome `json:"status"`
	Subject      models.Subject `json:"subject"`
	CheckInCount int            `json:"checkInCount"`
	CheckedInAt  *time.Time     `json:"checkedInAt"`
	Operator     string         `json:"operator"`
	Method       string         `json:"method"`
}

// Service runs resolution then processing for one request.
type Service struct {
	resolver  *Resolver
	processor *Processor
	ledger    Ledger
	recorder  Recorder
	feed      FeedPublisher
	logger    *zap.Logger
}

// NewService wires a check-in service. recorder and feed may be nil.
func NewService(resolver *Resolver, processor *Processor, ledger Ledger, recorder Recorder, feed FeedPublisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		resolver:  resolver,
		processor: processor,
		ledger:    ledger,
		recorder:  recorder,
		feed:      feed,
		logger:    logger,
	}
}

// CheckIn validates req, resolves its identifier and applies the check-in.
// Not-found and already-checked-in are results, not errors.
func (s *Service) CheckIn(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.EventID) == "" {
		return nil, &ValidationError{Field: "eventId", Message: "event id is required"}
	}
	if strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(req.Identifier), "#")) == "" {
		return nil, &ValidationError{Field: "identifier", Message: "identifier is required"}
	}

	start := time.Now()
	res, err := s.resolver.Resolve(ctx, req.Identifier, req.EventID)
	if err != nil {
		s.storageFailure(req, err)
		return nil, err
	}
	result, err := s.processor.Process(ctx, res, req.AllowDuplicateCheckIn, req.Operator, req.Method)
	if err != nil {
		s.storageFailure(req, err)
		return nil, err
	}
	if s.recorder != nil {
		s.recorder.ObserveCheckIn(result.Outcome, time.Since(start))
	}

	fields := []zap.Field{
		zap.String("event_id", req.EventID),
		zap.String("outcome", string(result.Outcome)),
		zap.String("operator", req.Operator),
	}
	if result.Subject != nil {
		fields = append(fields,
			zap.String("subject_kind", string(result.Subject.Kind)),
			zap.String("subject_id", result.Subject.ID),
			zap.String("match", string(result.Match)),
			zap.Int("check_in_count", result.CheckInCount),
		)
	} else {
		fields = append(fields, zap.String("search_term", result.SearchTerm))
	}
	s.logger.Info("check-in processed", fields...)

	if result.Outcome.Accepted() && s.feed != nil {
		method := req.Method
		if method == "" {
			method = models.MethodWeb
		}
		s.feed.PublishCheckIn(req.EventID, FeedEntry{
			Status:       result.Outcome,
			Subject:      *result.Subject,
			CheckInCount: result.CheckInCount,
			CheckedInAt:  result.CheckedInAt,
			Operator:     req.Operator,
			Method:       method,
		})
	}
	return result, nil
}

// History returns audit entries for an event, newest first.
func (s *Service) History(ctx context.Context, eventID string, limit, offset int) ([]models.CheckInAuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.ledger.ListHistory(ctx, eventID, limit, offset)
	if err != nil {
		return nil, storageErr("list history", err)
	}
	return list, nil
}

// Stats summarizes the audit log of an event.
func (s *Service) Stats(ctx context.Context, eventID string) (*models.CheckInStats, error) {
	st, err := s.ledger.Stats(ctx, eventID)
	if err != nil {
		return nil, storageErr("stats", err)
	}
	return st, nil
}

func (s *Service) storageFailure(req Request, err error) {
	stage := "unknown"
	var se *StageError
	if errors.As(err, &se) {
		stage = se.Stage
	}
	if s.recorder != nil {
		s.recorder.StorageError(stage)
	}
	s.logger.Error("check-in failed",
		zap.Error(err),
		zap.String("event_id", req.EventID),
		zap.String("identifier", strings.TrimPrefix(strings.TrimSpace(req.Identifier), "#")),
		zap.String("stage", stage),
	)
}
