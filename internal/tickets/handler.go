package tickets

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-events/checkin/internal/models"
	"github.com/aura-events/checkin/pkg/response"
)

// Store is the persistence the handler needs.
type Store interface {
	Create(ctx context.Context, t *models.Ticket) error
	GetByID(ctx context.Context, id string) (*models.Ticket, error)
}

// IssueRequest is the body for POST /events/:eventId/tickets.
type IssueRequest struct {
	HolderName  string `json:"holder_name" binding:"required"`
	HolderEmail string `json:"holder_email" binding:"required,email"`
	TicketType  string `json:"ticket_type"`
}

// Handler handles ticket HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a tickets handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Issue handles POST /events/:eventId/tickets.
func (h *Handler) Issue(c *gin.Context) {
	var req IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	t := &models.Ticket{
		EventID:     c.Param("eventId"),
		HolderName:  strings.TrimSpace(req.HolderName),
		HolderEmail: strings.TrimSpace(req.HolderEmail),
		TicketType:  req.TicketType,
	}
	if t.TicketType == "" {
		t.TicketType = "general"
	}
	if err := h.store.Create(c.Request.Context(), t); err != nil {
		if errors.Is(err, ErrInvalidEventID) {
			response.BadRequest(c, "event id must be a UUID")
			return
		}
		h.logger.Error("issue ticket failed", zap.Error(err), zap.String("event_id", t.EventID))
		response.Internal(c, "failed to issue ticket")
		return
	}
	response.Created(c, t)
}

// GetByID handles GET /tickets/:id.
func (h *Handler) GetByID(c *gin.Context) {
	t, err := h.store.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Internal(c, "failed to load ticket")
		return
	}
	if t == nil {
		response.NotFound(c, "ticket not found")
		return
	}
	response.OK(c, t)
}
