package checkin_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/aura-events/checkin/internal/checkin"
	"github.com/aura-events/checkin/internal/models"
	"github.com/aura-events/checkin/internal/store/memory"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type feedSpy struct {
	mu      sync.Mutex
	entries []checkin.FeedEntry
}

func (f *feedSpy) PublishCheckIn(_ string, e checkin.FeedEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
}

type recorderSpy struct {
	mu       sync.Mutex
	outcomes []models.Outcome
	stages   []string
}

func (r *recorderSpy) ObserveCheckIn(o models.Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recorderSpy) StorageError(stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	store    *memory.Store
	clock    *clock
	feed     *feedSpy
	recorder *recorderSpy
	svc      *checkin.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.clock = &clock{now: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}
	s.feed = &feedSpy{}
	s.recorder = &recorderSpy{}
	s.svc = newService(s.store, s.store, s.clock.Now, s.recorder, s.feed)

	s.Require().NoError(s.store.Tickets().Create(s.ctx, &models.Ticket{
		ID: "TK1", EventID: eventID, HolderName: "Alice Lee", HolderEmail: "alice@x.com", TicketType: "general",
	}))
}

func newService(store *memory.Store, ledger checkin.Ledger, now func() time.Time, rec checkin.Recorder, feed checkin.FeedPublisher) *checkin.Service {
	resolver := checkin.NewResolver(store.Tickets(), store.Registrations(), checkin.WithIDSyntax(checkin.TokenSyntax))
	return checkin.NewService(resolver, checkin.NewProcessor(ledger, now), ledger, rec, feed, nil)
}

func (s *ServiceSuite) checkIn(identifier string, allowDuplicate bool) *checkin.Result {
	res, err := s.svc.CheckIn(s.ctx, checkin.Request{
		Identifier:            identifier,
		EventID:               eventID,
		AllowDuplicateCheckIn: allowDuplicate,
		Operator:              "op-1",
		Method:                models.MethodKiosk,
	})
	s.Require().NoError(err)
	return res
}

func (s *ServiceSuite) TestDoorScenario() {
	first := s.checkIn("alice@x.com", false)
	s.Equal(models.OutcomeFirstCheckIn, first.Outcome)
	s.Equal(1, first.CheckInCount)
	s.Require().NotNil(first.Subject)
	s.Equal(models.Subject{Kind: models.SubjectTicket, ID: "TK1", Name: "Alice Lee", Email: "alice@x.com"}, *first.Subject)

	s.clock.Advance(time.Minute)
	again := s.checkIn("TK1", false)
	s.Equal(models.OutcomeAlreadyCheckedIn, again.Outcome)
	s.Equal(1, again.CheckInCount)

	s.clock.Advance(time.Minute)
	dup := s.checkIn("TK1", true)
	s.Equal(models.OutcomeDuplicateCheckIn, dup.Outcome)
	s.Equal(2, dup.CheckInCount)

	s.Len(s.store.Audit(), 2)
	s.Len(s.feed.entries, 2)
	s.Equal([]models.Outcome{models.OutcomeFirstCheckIn, models.OutcomeAlreadyCheckedIn, models.OutcomeDuplicateCheckIn}, s.recorder.outcomes)
}

func (s *ServiceSuite) TestRejectedRecheckLeavesStateUnchanged() {
	first := s.checkIn("TK1", false)
	s.Require().NotNil(first.CheckedInAt)
	firstAt := *first.CheckedInAt

	s.clock.Advance(5 * time.Minute)
	again := s.checkIn("TK1", false)
	s.Equal(models.OutcomeAlreadyCheckedIn, again.Outcome)
	s.Equal(1, again.CheckInCount)
	s.Require().NotNil(again.CheckedInAt)
	s.True(firstAt.Equal(*again.CheckedInAt))

	tk, err := s.store.Tickets().GetByID(s.ctx, "TK1")
	s.Require().NoError(err)
	s.True(tk.IsCheckedIn)
	s.Equal(1, tk.CheckInCount)
	s.True(firstAt.Equal(*tk.LastCheckedInAt))
	s.Len(s.store.Audit(), 1)
	s.Len(s.feed.entries, 1)
}

func (s *ServiceSuite) TestDuplicateAccumulation() {
	first := s.checkIn("TK1", true)
	firstAt := *first.CheckedInAt

	for i := 2; i <= 5; i++ {
		s.clock.Advance(time.Minute)
		res := s.checkIn("TK1", true)
		s.Equal(models.OutcomeDuplicateCheckIn, res.Outcome)
		s.Equal(i, res.CheckInCount)
		s.True(firstAt.Equal(*res.CheckedInAt))

		tk, err := s.store.Tickets().GetByID(s.ctx, "TK1")
		s.Require().NoError(err)
		s.True(s.clock.Now().Equal(*tk.LastCheckedInAt))
		s.Len(s.store.Audit(), i)
	}

	audit := s.store.Audit()
	s.False(audit[0].IsDuplicate)
	for _, e := range audit[1:] {
		s.True(e.IsDuplicate)
		s.Equal("op-1", e.Operator)
		s.Equal(models.MethodKiosk, e.Method)
		s.Require().NotNil(e.TicketID)
		s.Nil(e.SubmissionID)
	}
}

func (s *ServiceSuite) TestRegistrationCheckIn() {
	s.Require().NoError(s.store.Registrations().Create(s.ctx, &models.Registration{
		ID: "R1", EventID: eventID, Role: models.RoleAttendee, Status: models.StatusApproved,
		FormData: map[string]string{"full_name": "Johnathan Smith", "email": "john@x.com"},
	}))

	res := s.checkIn("John", false)
	s.Equal(models.OutcomeFirstCheckIn, res.Outcome)
	s.Equal(checkin.MatchSubstring, res.Match)
	s.Equal(models.SubjectRegistration, res.Subject.Kind)
	s.Equal("Johnathan Smith", res.Subject.Name)

	audit := s.store.Audit()
	s.Require().Len(audit, 1)
	s.Require().NotNil(audit[0].SubmissionID)
	s.Equal("R1", *audit[0].SubmissionID)
	s.Equal("Johnathan Smith", audit[0].HolderName)
}

func (s *ServiceSuite) TestNotFoundMutatesNothing() {
	res := s.checkIn("zzz-no-such-id", true)
	s.Equal(models.OutcomeNotFound, res.Outcome)
	s.Equal("zzz-no-such-id", res.SearchTerm)
	s.Nil(res.Subject)

	tk, err := s.store.Tickets().GetByID(s.ctx, "TK1")
	s.Require().NoError(err)
	s.False(tk.IsCheckedIn)
	s.Empty(s.store.Audit())
	s.Empty(s.feed.entries)
}

func (s *ServiceSuite) TestValidation() {
	cases := map[string]checkin.Request{
		"eventId":    {Identifier: "TK1"},
		"identifier": {EventID: eventID, Identifier: " # "},
	}
	for field, req := range cases {
		_, err := s.svc.CheckIn(s.ctx, req)
		var verr *checkin.ValidationError
		s.Require().ErrorAs(err, &verr)
		s.Equal(field, verr.Field)
	}
	s.Empty(s.recorder.outcomes)
}

func (s *ServiceSuite) TestConcurrentFirstCheckIns() {
	const scans = 20
	var wg sync.WaitGroup
	results := make(chan models.Outcome, scans)
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.svc.CheckIn(s.ctx, checkin.Request{Identifier: "TK1", EventID: eventID})
			if err == nil {
				results <- res.Outcome
			}
		}()
	}
	wg.Wait()
	close(results)

	counts := map[models.Outcome]int{}
	for o := range results {
		counts[o]++
	}
	s.Equal(1, counts[models.OutcomeFirstCheckIn])
	s.Equal(scans-1, counts[models.OutcomeAlreadyCheckedIn])
	s.Len(s.store.Audit(), 1)
}

func (s *ServiceSuite) TestHistoryAndStats() {
	s.checkIn("TK1", false)
	s.clock.Advance(time.Minute)
	s.checkIn("TK1", true)

	list, err := s.svc.History(s.ctx, eventID, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.True(list[0].IsDuplicate)

	st, err := s.svc.Stats(s.ctx, eventID)
	s.Require().NoError(err)
	s.Equal(models.CheckInStats{TotalEntries: 2, DuplicateEntries: 1, CheckedInTickets: 1}, *st)
}

type brokenLedger struct{ checkin.Ledger }

func (brokenLedger) ApplyCheckIn(context.Context, models.SubjectRef, bool, checkin.AuditInput) (*checkin.Applied, error) {
	return nil, errors.New("deadlock detected")
}

func TestCheckInStorageFailureIsNotSuccess(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.Tickets().Create(context.Background(), &models.Ticket{ID: "TK1", EventID: eventID, HolderName: "Alice Lee"}))
	rec := &recorderSpy{}
	feed := &feedSpy{}
	svc := newService(store, brokenLedger{store}, nil, rec, feed)

	res, err := svc.CheckIn(context.Background(), checkin.Request{Identifier: "TK1", EventID: eventID})
	assert.Nil(t, res)
	require.ErrorIs(t, err, checkin.ErrStorage)
	assert.Equal(t, []string{"apply check-in"}, rec.stages)
	assert.Empty(t, feed.entries)
}
