package checkin

import (
	"context"
	"errors"
	"time"

	"github.com/aura-events/checkin/internal/models"
)

// Result is the caller-facing outcome of one check-in attempt.
type Result struct {
	Outcome      models.Outcome
	Subject      *models.Subject
	Match        Match
	CheckInCount int
	CheckedInAt  *time.Time
	SearchTerm   string
}

// Processor applies the check-in transition to a resolved record through a Ledger.
type Processor struct {
	ledger Ledger
	now    func() time.Time
}

// NewProcessor creates a processor. now defaults to time.Now.
func NewProcessor(ledger Ledger, now func() time.Time) *Processor {
	if now == nil {
		now = time.Now
	}
	return &Processor{ledger: ledger, now: now}
}

// Process checks in the resolved record. An unresolved record yields OutcomeNotFound
// without touching storage.
func (p *Processor) Process(ctx context.Context, res *Resolution, allowDuplicate bool, operator, method string) (*Result, error) {
	rec := res.Record()
	if rec == nil {
		return &Result{Outcome: models.OutcomeNotFound, SearchTerm: res.SearchTerm}, nil
	}
	if method == "" {
		method = models.MethodWeb
	}
	applied, err := p.ledger.ApplyCheckIn(ctx, rec.Ref(), allowDuplicate, AuditInput{
		Operator: operator,
		Method:   method,
		At:       p.now().UTC(),
	})
	if errors.Is(err, ErrRecordNotFound) {
		return &Result{Outcome: models.OutcomeNotFound, SearchTerm: res.SearchTerm}, nil
	}
	if err != nil {
		return nil, storageErr("apply check-in", err)
	}
	subject := applied.Subject
	return &Result{
		Outcome:      applied.Outcome,
		Subject:      &subject,
		Match:        res.Match,
		CheckInCount: applied.State.CheckInCount,
		CheckedInAt:  applied.State.CheckedInAt,
	}, nil
}
