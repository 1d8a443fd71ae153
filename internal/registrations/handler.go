package registrations

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-events/checkin/internal/models"
	"github.com/aura-events/checkin/pkg/queue"
	"github.com/aura-events/checkin/pkg/response"
)

// Store is the persistence the handler needs. *Repository and the in-memory store implement it.
type Store interface {
	Create(ctx context.Context, reg *models.Registration) error
	GetByID(ctx context.Context, id string) (*models.Registration, error)
	SetStatus(ctx context.Context, id string, status models.ApprovalStatus) (*models.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.Registration, error)
}

// Notifier hands approval notifications to the delivery workflow.
type Notifier interface {
	EnqueueNotification(ctx context.Context, payload queue.NotificationPayload) error
}

// RegisterRequest is the body for POST /events/:eventId/registrations.
type RegisterRequest struct {
	Role     string            `json:"role"`
	FormData map[string]string `json:"form_data" binding:"required"`
}

// StatusRequest is the body for PATCH /registrations/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
}

// NewHandler creates a registrations handler. notifier may be nil.
func NewHandler(store Store, notifier Notifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, notifier: notifier, logger: logger}
}

// Register handles POST /events/:eventId/registrations. New registrations start pending.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	role := models.RegistrationRole(req.Role)
	if req.Role == "" {
		role = models.RoleAttendee
	}
	if !role.Valid() {
		response.BadRequest(c, "role must be attendee, volunteer or speaker")
		return
	}
	reg := &models.Registration{
		EventID:  c.Param("eventId"),
		Role:     role,
		FormData: req.FormData,
		Status:   models.StatusPending,
	}
	if reg.DisplayName() == "" || reg.ContactEmail() == "" {
		response.BadRequest(c, "form_data must include a name and an email")
		return
	}
	if err := h.store.Create(c.Request.Context(), reg); err != nil {
		if errors.Is(err, ErrInvalidEventID) {
			response.BadRequest(c, "event id must be a UUID")
			return
		}
		h.logger.Error("create registration failed", zap.Error(err), zap.String("event_id", reg.EventID))
		response.Internal(c, "failed to register")
		return
	}
	response.Created(c, reg)
}

// ListByEvent handles GET /events/:eventId/registrations.
func (h *Handler) ListByEvent(c *gin.Context) {
	list, err := h.store.ListByEvent(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		response.Internal(c, "failed to list registrations")
		return
	}
	if list == nil {
		list = []models.Registration{}
	}
	response.OK(c, gin.H{"registrations": list})
}

// SetStatus handles PATCH /registrations/:id/status. Approval enqueues a notification.
func (h *Handler) SetStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "status required")
		return
	}
	status := models.ApprovalStatus(req.Status)
	if !status.Valid() {
		response.BadRequest(c, "status must be pending, approved or rejected")
		return
	}
	ctx := c.Request.Context()
	prev, err := h.store.GetByID(ctx, c.Param("id"))
	if err != nil {
		h.logger.Error("get registration failed", zap.Error(err), zap.String("registration_id", c.Param("id")))
		response.Internal(c, "failed to load registration")
		return
	}
	if prev == nil {
		response.NotFound(c, "registration not found")
		return
	}
	reg, err := h.store.SetStatus(ctx, prev.ID, status)
	if err != nil || reg == nil {
		h.logger.Error("set registration status failed", zap.Error(err), zap.String("registration_id", prev.ID))
		response.Internal(c, "failed to update registration")
		return
	}

	if status == models.StatusApproved && prev.Status != models.StatusApproved && h.notifier != nil {
		err := h.notifier.EnqueueNotification(ctx, queue.NotificationPayload{
			NotificationType: models.NotificationRegistrationApproved,
			EventID:          reg.EventID,
			RegistrationID:   reg.ID,
			RecipientEmail:   reg.ContactEmail(),
			RecipientName:    reg.DisplayName(),
		})
		if err != nil {
			// approval stands; the notification can be re-sent
			h.logger.Warn("enqueue approval notification failed", zap.Error(err), zap.String("registration_id", reg.ID))
		}
	}
	response.OK(c, reg)
}
