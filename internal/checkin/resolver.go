package checkin

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/aura-events/checkin/internal/models"
)

// DefaultFuzzyMinLength is the identifier length a name must exceed before substring matching kicks in.
const DefaultFuzzyMinLength = 3

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IDSyntax reports whether s is shaped like an opaque record id and returns
// the id in the canonical form records are stored under.
type IDSyntax func(s string) (id string, ok bool)

// UUIDSyntax accepts any form uuid.Parse accepts (upper case, braces, urn:uuid:,
// no hyphens) and canonicalizes it to the lower-case hyphenated form.
func UUIDSyntax(s string) (string, bool) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

var tokenPattern = regexp.MustCompile(`^[A-Za-z]{1,4}[0-9]+$`)

// TokenSyntax accepts short printed pass codes such as "TK1" or "A1042".
func TokenSyntax(s string) (string, bool) {
	if tokenPattern.MatchString(s) {
		return s, true
	}
	return UUIDSyntax(s)
}

// Match describes how a resolution was reached.
type Match string

const (
	MatchID        Match = "id"
	MatchEmail     Match = "email"
	MatchName      Match = "name"
	MatchSubstring Match = "substring"
	MatchCleanedID Match = "cleaned_id"
)

// Resolution is the result of resolving an identifier: a ticket, a registration, or neither.
type Resolution struct {
	Ticket       *models.Ticket
	Registration *models.Registration
	Match        Match
	SearchTerm   string
}

// Found reports whether a record was resolved.
func (r *Resolution) Found() bool {
	return r.Ticket != nil || r.Registration != nil
}

// Record returns the resolved record, or nil.
func (r *Resolution) Record() models.Checkable {
	switch {
	case r.Ticket != nil:
		return r.Ticket
	case r.Registration != nil:
		return r.Registration
	}
	return nil
}

// Resolver maps an operator-supplied identifier to one stored record.
type Resolver struct {
	tickets        TicketLookup
	registrations  RegistrationLookup
	isID           IDSyntax
	fuzzyMinLength int
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithIDSyntax overrides the id shape check.
func WithIDSyntax(fn IDSyntax) ResolverOption {
	return func(r *Resolver) { r.isID = fn }
}

// WithFuzzyMinLength overrides the substring fallback threshold.
func WithFuzzyMinLength(n int) ResolverOption {
	return func(r *Resolver) { r.fuzzyMinLength = n }
}

// NewResolver creates a resolver over the given lookups.
func NewResolver(tickets TicketLookup, registrations RegistrationLookup, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		tickets:        tickets,
		registrations:  registrations,
		isID:           UUIDSyntax,
		fuzzyMinLength: DefaultFuzzyMinLength,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds the record for raw within eventID. Exact structural matches win over
// fuzzy ones; the substring step returns the first hit without ranking.
// A miss is not an error.
func (r *Resolver) Resolve(ctx context.Context, raw, eventID string) (*Resolution, error) {
	term := strings.TrimSpace(raw)
	cleaned := strings.TrimSpace(strings.TrimPrefix(term, "#"))
	res := &Resolution{SearchTerm: raw}
	if cleaned == "" {
		return res, nil
	}

	// An id-shaped miss falls through to the email and name steps.
	if id, ok := r.isID(cleaned); ok {
		if ok, err := r.byID(ctx, eventID, id, MatchID, res); ok || err != nil {
			return res, err
		}
	}

	if emailPattern.MatchString(cleaned) {
		if ok, err := r.byEmail(ctx, eventID, cleaned, res); ok || err != nil {
			return res, err
		}
	} else {
		if ok, err := r.byName(ctx, eventID, cleaned, res); ok || err != nil {
			return res, err
		}
		if len([]rune(cleaned)) > r.fuzzyMinLength {
			if ok, err := r.bySubstring(ctx, eventID, cleaned, res); ok || err != nil {
				return res, err
			}
		}
	}

	if alnum := stripNonAlphanumeric(cleaned); alnum != "" && alnum != cleaned {
		if id, ok := r.isID(alnum); ok {
			if ok, err := r.byID(ctx, eventID, id, MatchCleanedID, res); ok || err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

func (r *Resolver) byID(ctx context.Context, eventID, id string, match Match, res *Resolution) (bool, error) {
	t, err := r.tickets.TicketByID(ctx, eventID, id)
	if err != nil {
		return false, storageErr("lookup ticket by id", err)
	}
	if t != nil {
		res.Ticket, res.Match = t, match
		return true, nil
	}
	reg, err := r.registrations.RegistrationByID(ctx, eventID, id)
	if err != nil {
		return false, storageErr("lookup registration by id", err)
	}
	if reg != nil {
		res.Registration, res.Match = reg, match
		return true, nil
	}
	return false, nil
}

func (r *Resolver) byEmail(ctx context.Context, eventID, email string, res *Resolution) (bool, error) {
	t, err := r.tickets.TicketByEmail(ctx, eventID, email)
	if err != nil {
		return false, storageErr("lookup ticket by email", err)
	}
	if t != nil {
		res.Ticket, res.Match = t, MatchEmail
		return true, nil
	}
	reg, err := r.registrations.RegistrationByEmail(ctx, eventID, email)
	if err != nil {
		return false, storageErr("lookup registration by email", err)
	}
	if reg != nil {
		res.Registration, res.Match = reg, MatchEmail
		return true, nil
	}
	return false, nil
}

func (r *Resolver) byName(ctx context.Context, eventID, name string, res *Resolution) (bool, error) {
	t, err := r.tickets.TicketByName(ctx, eventID, name)
	if err != nil {
		return false, storageErr("lookup ticket by name", err)
	}
	if t != nil {
		res.Ticket, res.Match = t, MatchName
		return true, nil
	}
	reg, err := r.registrations.RegistrationByName(ctx, eventID, name)
	if err != nil {
		return false, storageErr("lookup registration by name", err)
	}
	if reg != nil {
		res.Registration, res.Match = reg, MatchName
		return true, nil
	}
	return false, nil
}

func (r *Resolver) bySubstring(ctx context.Context, eventID, fragment string, res *Resolution) (bool, error) {
	t, err := r.tickets.TicketByNameContains(ctx, eventID, fragment)
	if err != nil {
		return false, storageErr("lookup ticket by partial name", err)
	}
	if t != nil {
		res.Ticket, res.Match = t, MatchSubstring
		return true, nil
	}
	reg, err := r.registrations.RegistrationByNameContains(ctx, eventID, fragment)
	if err != nil {
		return false, storageErr("lookup registration by partial name", err)
	}
	if reg != nil {
		res.Registration, res.Match = reg, MatchSubstring
		return true, nil
	}
	return false, nil
}

func stripNonAlphanumeric(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
