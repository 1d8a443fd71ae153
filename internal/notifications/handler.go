package notifications

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/aura-events/checkin/internal/models"
	"github.com/aura-events/checkin/pkg/response"
)

// Lister reads notification logs.
type Lister interface {
	ListByEvent(ctx context.Context, eventID string) ([]*models.NotificationLog, error)
}

// Handler handles notification log HTTP endpoints.
type Handler struct {
	repo Lister
}

// NewHandler creates a notification logs handler.
func NewHandler(repo Lister) *Handler {
	return &Handler{repo: repo}
}

// ListByEvent handles GET /events/:eventId/notifications.
func (h *Handler) ListByEvent(c *gin.Context) {
	logs, err := h.repo.ListByEvent(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		response.Internal(c, "failed to load notification logs")
		return
	}
	if logs == nil {
		logs = []*models.NotificationLog{}
	}
	response.OK(c, logs)
}
