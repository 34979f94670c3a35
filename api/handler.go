// Package api provides HTTP handlers for the coaching orchestrator.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/peakform/coach/config"
	"github.com/peakform/coach/internal/orchestrator"
	"github.com/peakform/coach/store"
)

// Handler handles HTTP requests.
type Handler struct {
	store  store.Store
	orch   *orchestrator.Orchestrator
	config *config.Config
	hub    *Hub
}

// NewHandler creates a new handler. The hub is wired as the orchestrator's
// delegate so streaming events reach connected clients.
func NewHandler(s store.Store, orch *orchestrator.Orchestrator, cfg *config.Config, hub *Hub) *Handler {
	return &Handler{
		store:  s,
		orch:   orch,
		config: cfg,
		hub:    hub,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Conversation
	e.POST("/v1/chat", h.Chat)
	e.POST("/v1/chat/regenerate", h.Regenerate)
	e.GET("/v1/sessions/:session_id/messages", h.GetSessionMessages)
	e.DELETE("/v1/sessions/:session_id", h.EndSession)

	// Streaming events
	e.GET("/v1/events", h.HandleWebSocket)

	// Direct nutrition operations
	e.POST("/v1/nutrition/parse", h.ParseNutrition)
	e.POST("/v1/nutrition/log", h.LogNutrition)
	e.POST("/v1/nutrition/correct", h.CorrectNutrition)
	e.GET("/v1/nutrition/status", h.MacroStatus)

	// Workouts and dashboard
	e.POST("/v1/workouts/analysis", h.PostWorkoutAnalysis)
	e.GET("/v1/dashboard", h.Dashboard)

	// Metrics
	e.GET("/v1/metrics/functions", h.FunctionMetrics)
	e.GET("/v1/metrics/routing", h.RoutingMetrics)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
