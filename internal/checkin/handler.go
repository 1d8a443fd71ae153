package checkin

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aura-events/checkin/internal/middleware"
	"github.com/aura-events/checkin/internal/models"
	"github.com/aura-events/checkin/pkg/response"
)

// CheckInRequest is the body for POST /events/:eventId/check-ins.
type CheckInRequest struct {
	Identifier            string `json:"identifier"`
	AllowDuplicateCheckIn bool   `json:"allowDuplicateCheckIn"`
	Method                string `json:"method,omitempty"`
}

// CheckInResponse is the body returned for every resolvable outcome and for not_found.
type CheckInResponse struct {
	Success      bool            `json:"success"`
	Status       models.Outcome  `json:"status"`
	Message      string          `json:"message"`
	Subject      *models.Subject `json:"subject"`
	CheckInCount int             `json:"checkInCount"`
	CheckedInAt  *time.Time      `json:"checkedInAt"`
	SearchTerm   string          `json:"searchTerm,omitempty"`
}

// Handler serves the check-in endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a check-in handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// CheckIn handles POST /events/:eventId/check-ins.
func (h *Handler) CheckIn(c *gin.Context) {
	var body CheckInRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	result, err := h.svc.CheckIn(c.Request.Context(), Request{
		Identifier:            body.Identifier,
		EventID:               c.Param("eventId"),
		AllowDuplicateCheckIn: body.AllowDuplicateCheckIn,
		Operator:              c.GetString(middleware.ContextUserID),
		Method:                body.Method,
	})
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		response.BadRequest(c, verr.Error())
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "check-in failed, please retry",
			"error":   err.Error(),
		})
		return
	}

	out := CheckInResponse{
		Success:      result.Outcome.Accepted(),
		Status:       result.Outcome,
		Message:      message(result),
		Subject:      result.Subject,
		CheckInCount: result.CheckInCount,
		CheckedInAt:  result.CheckedInAt,
	}
	if result.Outcome == models.OutcomeNotFound {
		out.SearchTerm = result.SearchTerm
		c.JSON(http.StatusNotFound, out)
		return
	}
	c.JSON(http.StatusOK, out)
}

// History handles GET /events/:eventId/check-ins.
func (h *Handler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, err := h.svc.History(c.Request.Context(), c.Param("eventId"), limit, offset)
	if err != nil {
		response.Internal(c, "failed to list check-ins")
		return
	}
	if list == nil {
		list = []models.CheckInAuditEntry{}
	}
	response.OK(c, gin.H{"check_ins": list})
}

// Stats handles GET /events/:eventId/check-ins/stats.
func (h *Handler) Stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		response.Internal(c, "failed to load check-in stats")
		return
	}
	response.OK(c, st)
}

func message(r *Result) string {
	if r.Subject == nil {
		return fmt.Sprintf("no ticket or registration matches %q", r.SearchTerm)
	}
	var msg string
	switch r.Outcome {
	case models.OutcomeFirstCheckIn:
		msg = fmt.Sprintf("%s checked in", r.Subject.Name)
	case models.OutcomeDuplicateCheckIn:
		msg = fmt.Sprintf("%s checked in again (%d check-ins)", r.Subject.Name, r.CheckInCount)
	case models.OutcomeAlreadyCheckedIn:
		msg = fmt.Sprintf("%s is already checked in", r.Subject.Name)
		if r.CheckedInAt != nil {
			msg += " since " + r.CheckedInAt.Format(time.RFC3339)
		}
	}
	if r.Match == MatchSubstring {
		msg += "; approximate name match, verify the name before admitting"
	}
	return msg
}
