package checkin_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/checkin/internal/checkin"
	"github.com/aura-events/checkin/internal/models"
	"github.com/aura-events/checkin/internal/store/memory"
)

const eventID = "E1"

type fixture struct {
	store    *memory.Store
	resolver *checkin.Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	return &fixture{
		store:    store,
		resolver: checkin.NewResolver(store.Tickets(), store.Registrations(), checkin.WithIDSyntax(checkin.TokenSyntax)),
	}
}

func (f *fixture) ticket(t *testing.T, id, name, email string) *models.Ticket {
	t.Helper()
	tk := &models.Ticket{ID: id, EventID: eventID, HolderName: name, HolderEmail: email, TicketType: "general"}
	require.NoError(t, f.store.Tickets().Create(context.Background(), tk))
	return tk
}

func (f *fixture) registration(t *testing.T, id string, status models.ApprovalStatus, form map[string]string) *models.Registration {
	t.Helper()
	reg := &models.Registration{ID: id, EventID: eventID, Role: models.RoleAttendee, Status: status, FormData: form}
	require.NoError(t, f.store.Registrations().Create(context.Background(), reg))
	return reg
}

func TestResolvePrefersTicketIDOverRegistration(t *testing.T) {
	f := newFixture(t)
	f.ticket(t, "T1", "Alice Lee", "alice@x.com")
	f.registration(t, "R1", models.StatusApproved, map[string]string{"name": "T1", "email": "t1@example.com"})

	res, err := f.resolver.Resolve(context.Background(), "T1", eventID)
	require.NoError(t, err)
	require.NotNil(t, res.Ticket)
	assert.Equal(t, "T1", res.Ticket.ID)
	assert.Nil(t, res.Registration)
	assert.Equal(t, checkin.MatchID, res.Match)
}

func TestResolveStripsLeadingHash(t *testing.T) {
	f := newFixture(t)
	f.ticket(t, "T1", "Alice Lee", "alice@x.com")

	plain, err := f.resolver.Resolve(context.Background(), "T1", eventID)
	require.NoError(t, err)
	hashed, err := f.resolver.Resolve(context.Background(), "#T1", eventID)
	require.NoError(t, err)

	require.NotNil(t, hashed.Ticket)
	assert.Equal(t, plain.Ticket.ID, hashed.Ticket.ID)
	assert.Equal(t, plain.Match, hashed.Match)
}

func TestResolveByEmail(t *testing.T) {
	f := newFixture(t)
	f.ticket(t, "T1", "Alice Lee", "alice@x.com")
	f.registration(t, "R1", models.StatusApproved, map[string]string{"fullName": "Bob Stone", "emailAddress": "bob@x.com"})

	t.Run("ticket holder email ignores case", func(t *testing.T) {
		res, err := f.resolver.Resolve(context.Background(), "ALICE@x.com", eventID)
		require.NoError(t, err)
		require.NotNil(t, res.Ticket)
		assert.Equal(t, checkin.MatchEmail, res.Match)
	})

	t.Run("registration email from alternate field name", func(t *testing.T) {
		res, err := f.resolver.Resolve(context.Background(), "bob@x.com", eventID)
		require.NoError(t, err)
		require.NotNil(t, res.Registration)
		assert.Equal(t, "R1", res.Registration.ID)
	})
}

func TestResolveByExactName(t *testing.T) {
	f := newFixture(t)
	f.registration(t, "R1", models.StatusApproved, map[string]string{"firstName": "Carol", "lastName": "Diaz", "email": "carol@x.com"})

	res, err := f.resolver.Resolve(context.Background(), "carol diaz", eventID)
	require.NoError(t, err)
	require.NotNil(t, res.Registration)
	assert.Equal(t, checkin.MatchName, res.Match)
}

func TestResolveSubstringFallback(t *testing.T) {
	f := newFixture(t)
	f.registration(t, "R1", models.StatusApproved, map[string]string{"name": "Johnathan Smith", "email": "john@x.com"})

	t.Run("four characters match a partial name", func(t *testing.T) {
		res, err := f.resolver.Resolve(context.Background(), "John", eventID)
		require.NoError(t, err)
		require.NotNil(t, res.Registration)
		assert.Equal(t, "R1", res.Registration.ID)
		assert.Equal(t, checkin.MatchSubstring, res.Match)
	})

	t.Run("two characters never fall back", func(t *testing.T) {
		res, err := f.resolver.Resolve(context.Background(), "Jo", eventID)
		require.NoError(t, err)
		assert.False(t, res.Found())
	})

	t.Run("three characters never fall back", func(t *testing.T) {
		res, err := f.resolver.Resolve(context.Background(), "Joh", eventID)
		require.NoError(t, err)
		assert.False(t, res.Found())
	})
}

func TestResolveExactNameBeatsSubstring(t *testing.T) {
	f := newFixture(t)
	f.ticket(t, "T1", "Anna Bell", "anna.bell@x.com")
	f.ticket(t, "T2", "Anna", "anna@x.com")

	res, err := f.resolver.Resolve(context.Background(), "anna", eventID)
	require.NoError(t, err)
	require.NotNil(t, res.Ticket)
	assert.Equal(t, "T2", res.Ticket.ID)
	assert.Equal(t, checkin.MatchName, res.Match)
}

func TestResolveCleanedIdentifier(t *testing.T) {
	f := newFixture(t)
	f.ticket(t, "TK42", "Dan Moss", "dan@x.com")

	res, err := f.resolver.Resolve(context.Background(), " TK-42 ", eventID)
	require.NoError(t, err)
	require.NotNil(t, res.Ticket)
	assert.Equal(t, "TK42", res.Ticket.ID)
	assert.Equal(t, checkin.MatchCleanedID, res.Match)
}

func TestResolveNotFoundEchoesSearchTerm(t *testing.T) {
	f := newFixture(t)
	f.ticket(t, "T1", "Alice Lee", "alice@x.com")

	res, err := f.resolver.Resolve(context.Background(), "zzz-no-such-id", eventID)
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.Equal(t, "zzz-no-such-id", res.SearchTerm)
}

func TestResolveOnlyApprovedAttendees(t *testing.T) {
	f := newFixture(t)
	f.registration(t, "R1", models.StatusPending, map[string]string{"name": "Pending Person", "email": "pending@x.com"})
	speaker := &models.Registration{ID: "R2", EventID: eventID, Role: models.RoleSpeaker, Status: models.StatusApproved,
		FormData: map[string]string{"name": "Speaker Person", "email": "speaker@x.com"}}
	require.NoError(t, f.store.Registrations().Create(context.Background(), speaker))

	for _, term := range []string{"R1", "pending@x.com", "Pending Person", "R2", "speaker@x.com"} {
		res, err := f.resolver.Resolve(context.Background(), term, eventID)
		require.NoError(t, err)
		assert.False(t, res.Found(), term)
	}
}

func TestResolveScopedToEvent(t *testing.T) {
	f := newFixture(t)
	f.ticket(t, "T1", "Alice Lee", "alice@x.com")

	res, err := f.resolver.Resolve(context.Background(), "T1", "E2")
	require.NoError(t, err)
	assert.False(t, res.Found())
}

type failingTickets struct{ checkin.TicketLookup }

var errDown = errors.New("connection refused")

func (failingTickets) TicketByID(context.Context, string, string) (*models.Ticket, error) {
	return nil, errDown
}

func TestResolveSurfacesStorageFailure(t *testing.T) {
	store := memory.New()
	resolver := checkin.NewResolver(failingTickets{store.Tickets()}, store.Registrations(), checkin.WithIDSyntax(checkin.TokenSyntax))

	_, err := resolver.Resolve(context.Background(), "T1", eventID)
	require.Error(t, err)
	assert.ErrorIs(t, err, checkin.ErrStorage)
	assert.ErrorIs(t, err, errDown)
	var stage *checkin.StageError
	require.ErrorAs(t, err, &stage)
	assert.Equal(t, "lookup ticket by id", stage.Stage)
}

func TestIDSyntax(t *testing.T) {
	const canonical = "0b4f1a8e-4a52-4c0e-9a1d-2f0f0b9d3c11"
	for _, in := range []string{
		canonical,
		"0B4F1A8E-4A52-4C0E-9A1D-2F0F0B9D3C11",
		"{0b4f1a8e-4a52-4c0e-9a1d-2f0f0b9d3c11}",
		"urn:uuid:0b4f1a8e-4a52-4c0e-9a1d-2f0f0b9d3c11",
		"0b4f1a8e4a524c0e9a1d2f0f0b9d3c11",
	} {
		id, ok := checkin.UUIDSyntax(in)
		assert.True(t, ok, in)
		assert.Equal(t, canonical, id, in)
	}

	_, ok := checkin.UUIDSyntax("T1")
	assert.False(t, ok)
	id, ok := checkin.TokenSyntax("T1")
	assert.True(t, ok)
	assert.Equal(t, "T1", id)
	_, ok = checkin.TokenSyntax("John")
	assert.False(t, ok)
}

func TestResolveUUIDSpellings(t *testing.T) {
	store := memory.New()
	resolver := checkin.NewResolver(store.Tickets(), store.Registrations())
	tk := &models.Ticket{EventID: eventID, HolderName: "Alice Lee", HolderEmail: "alice@x.com"}
	require.NoError(t, store.Tickets().Create(context.Background(), tk))
	upper := strings.ToUpper(tk.ID)

	for _, in := range []string{
		tk.ID,
		upper,
		"#" + upper,
		"{" + tk.ID + "}",
		"urn:uuid:" + tk.ID,
		strings.ReplaceAll(tk.ID, "-", ""),
	} {
		res, err := resolver.Resolve(context.Background(), in, eventID)
		require.NoError(t, err, in)
		require.NotNil(t, res.Ticket, in)
		assert.Equal(t, tk.ID, res.Ticket.ID, in)
		assert.Equal(t, checkin.MatchID, res.Match, in)
		assert.Equal(t, in, res.SearchTerm)
	}
}

func TestResolveIDShapedMissFallsThroughToName(t *testing.T) {
	f := newFixture(t)
	f.ticket(t, "T1", "Alice Lee", "alice@x.com")
	f.registration(t, "R9", models.StatusApproved, map[string]string{"name": "MC5", "email": "mc5@x.com"})

	res, err := f.resolver.Resolve(context.Background(), "mc5", eventID)
	require.NoError(t, err)
	require.NotNil(t, res.Registration)
	assert.Equal(t, "R9", res.Registration.ID)
	assert.Equal(t, checkin.MatchName, res.Match)
}
