package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/peakform/coach/domain"
	"github.com/peakform/coach/internal/orchestrator"
)

// ChatRequest is the body for POST /v1/chat.
type ChatRequest struct {
	UserID      string `json:"user_id"`
	Text        string `json:"text"`
	DisplayName string `json:"display_name,omitempty"`
	PersonaID   string `json:"persona_id,omitempty"`
	Goal        string `json:"goal,omitempty"`
	TrainingDay bool   `json:"training_day,omitempty"`
}

func (r *ChatRequest) profile() domain.UserProfile {
	return domain.UserProfile{
		UserID:      r.UserID,
		DisplayName: r.DisplayName,
		PersonaID:   r.PersonaID,
		Goal:        r.Goal,
		TrainingDay: r.TrainingDay,
	}
}

// Chat processes one conversation turn. Deltas stream over the events
// socket; the response carries the persisted messages for clients that
// prefer polling.
// POST /v1/chat
func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}

	ctx := c.Request().Context()
	if err := h.orch.ProcessUserMessage(ctx, req.Text, req.profile()); err != nil {
		if errors.Is(err, orchestrator.ErrEmptyInput) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "text is required"})
		}
		log.Printf("ERROR: chat turn failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to process message"})
	}

	session, err := h.store.GetActiveSession(ctx, req.UserID)
	if err != nil || session == nil {
		// The turn may have cleared the session via a local command.
		return c.JSON(http.StatusOK, map[string]interface{}{"messages": []domain.Message{}})
	}

	messages, err := h.store.GetRecentMessages(ctx, session.SessionID, 4)
	if err != nil {
		log.Printf("ERROR: failed to get messages: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get messages"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id": session.SessionID,
		"messages":   messages,
	})
}

// Regenerate replays the last user message through a fresh turn.
// POST /v1/chat/regenerate
func (h *Handler) Regenerate(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}

	err := h.orch.RegenerateLastResponse(c.Request().Context(), req.profile())
	switch {
	case errors.Is(err, orchestrator.ErrNoActiveSession):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no active session"})
	case errors.Is(err, orchestrator.ErrNothingToRegenerate):
		return c.JSON(http.StatusConflict, map[string]string{"error": "nothing to regenerate"})
	case err != nil:
		log.Printf("ERROR: regenerate failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to regenerate"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// GetSessionMessages returns messages for a session.
// GET /v1/sessions/:session_id/messages
func (h *Handler) GetSessionMessages(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 50
	}

	messages, err := h.store.GetRecentMessages(ctx, sessionID, limit+1)
	if err != nil {
		log.Printf("ERROR: failed to get messages: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get messages"})
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[len(messages)-limit:]
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": messages,
		"has_more": hasMore,
	})
}

// EndSession closes a session.
// DELETE /v1/sessions/:session_id
func (h *Handler) EndSession(c echo.Context) error {
	sessionID := c.Param("session_id")
	if err := h.orch.Conversation().EndSession(c.Request().Context(), sessionID); err != nil {
		log.Printf("ERROR: failed to end session %s: %v", sessionID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to end session"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "closed"})
}
