// Package server assembles the HTTP routes.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aura-events/checkin/internal/auth"
	"github.com/aura-events/checkin/internal/checkin"
	"github.com/aura-events/checkin/internal/middleware"
	"github.com/aura-events/checkin/internal/notifications"
	"github.com/aura-events/checkin/internal/realtime"
	"github.com/aura-events/checkin/internal/registrations"
	"github.com/aura-events/checkin/internal/tickets"
	"github.com/aura-events/checkin/pkg/response"
)

// Deps are the handlers and services the router mounts.
type Deps struct {
	Logger        *zap.Logger
	JWT           *auth.JWTService
	CORSOrigins   string
	CheckIn       *checkin.Handler
	Registrations *registrations.Handler
	Tickets       *tickets.Handler
	Notifications *notifications.Handler
	Hub           *realtime.Hub
	Metrics       prometheus.Gatherer // nil disables /metrics
}

// NewRouter builds the gin engine.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(d.CORSOrigins))
	router.Use(middleware.Logger(d.Logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{})))
	}

	// Public registration form submission
	router.POST("/events/:eventId/registrations", d.Registrations.Register)

	// Live feed (token in query)
	router.GET("/ws", realtime.ServeWs(d.Hub, d.JWT, d.Logger))

	operators := router.Group("")
	operators.Use(middleware.JWT(d.JWT))
	{
		door := middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff, auth.RoleKiosk)
		staff := middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff)

		operators.POST("/events/:eventId/check-ins", door, d.CheckIn.CheckIn)
		operators.GET("/events/:eventId/check-ins", staff, d.CheckIn.History)
		operators.GET("/events/:eventId/check-ins/stats", staff, d.CheckIn.Stats)

		operators.GET("/events/:eventId/registrations", staff, d.Registrations.ListByEvent)
		operators.PATCH("/registrations/:id/status", staff, d.Registrations.SetStatus)

		operators.POST("/events/:eventId/tickets", staff, d.Tickets.Issue)
		operators.GET("/tickets/:id", door, d.Tickets.GetByID)

		operators.GET("/events/:eventId/notifications", staff, d.Notifications.ListByEvent)
	}

	router.NoRoute(func(c *gin.Context) { response.Fail(c, http.StatusNotFound, "route not found") })
	return router
}
