package tickets_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/aura-events/checkin/internal/models"
	"github.com/aura-events/checkin/internal/testutil/containers"
	"github.com/aura-events/checkin/internal/tickets"
)

type RepositorySuite struct {
	suite.Suite
	ctx     context.Context
	pg      *containers.PostgresContainer
	repo    *tickets.Repository
	eventID string
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.repo = tickets.NewRepository(s.pg.Pool)
}

func (s *RepositorySuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(s.ctx))
	s.eventID = uuid.NewString()
}

func (s *RepositorySuite) issue(eventID, name, email string) *models.Ticket {
	tk := &models.Ticket{EventID: eventID, HolderName: name, HolderEmail: email, TicketType: "general"}
	s.Require().NoError(s.repo.Create(s.ctx, tk))
	return tk
}

func (s *RepositorySuite) TestLookupsAreScopedToEvent() {
	other := s.issue(uuid.NewString(), "Alice Lee", "alice@x.com")

	byID, err := s.repo.TicketByID(s.ctx, s.eventID, other.ID)
	s.Require().NoError(err)
	s.Nil(byID)
	byEmail, err := s.repo.TicketByEmail(s.ctx, s.eventID, "alice@x.com")
	s.Require().NoError(err)
	s.Nil(byEmail)

	mine := s.issue(s.eventID, "Alice Lee", "alice@x.com")
	byID, err = s.repo.TicketByID(s.ctx, s.eventID, mine.ID)
	s.Require().NoError(err)
	s.Require().NotNil(byID)
	s.Equal(mine.ID, byID.ID)
	s.False(byID.IsCheckedIn)
	s.Zero(byID.CheckInCount)
}

func (s *RepositorySuite) TestEmailAndNameIgnoreCase() {
	tk := s.issue(s.eventID, "Alice Lee", "Alice@X.com")

	got, err := s.repo.TicketByEmail(s.ctx, s.eventID, "alice@x.com")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(tk.ID, got.ID)

	got, err = s.repo.TicketByName(s.ctx, s.eventID, "ALICE LEE")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(tk.ID, got.ID)

	got, err = s.repo.TicketByName(s.ctx, s.eventID, "Alice")
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *RepositorySuite) TestSubstringTakesEarliest() {
	first := s.issue(s.eventID, "Alice Lee", "a@x.com")
	s.issue(s.eventID, "Malice Leeds", "b@x.com")

	got, err := s.repo.TicketByNameContains(s.ctx, s.eventID, "lice le")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(first.ID, got.ID)
}

func (s *RepositorySuite) TestMalformedIDs() {
	s.ErrorIs(s.repo.Create(s.ctx, &models.Ticket{EventID: "E1", HolderName: "Alice"}), tickets.ErrInvalidEventID)

	got, err := s.repo.GetByID(s.ctx, "TK1")
	s.Require().NoError(err)
	s.Nil(got)

	got, err = s.repo.TicketByEmail(s.ctx, "E1", "alice@x.com")
	s.Require().NoError(err)
	s.Nil(got)
}
