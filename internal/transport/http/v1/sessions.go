package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/apperrors"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

// EnsureSessionAgent provisions the session's agent if it does not exist yet.
// POST /v1/sessions/:session_id/agent
func (h *Handler) EnsureSessionAgent(c echo.Context) error {
	agent, err := h.service.EnsureSessionAgent(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, agent)
}

// GetSessionAgent reports the provisioning state of a session.
// GET /v1/sessions/:session_id/agent
func (h *Handler) GetSessionAgent(c echo.Context) error {
	agent, err := h.service.SessionAgentState(c.Param("session_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, agent)
}

// Chat sends a message to the session's agent.
// POST /v1/sessions/:session_id/chat
func (h *Handler) Chat(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperrors.InvalidInput("body", "is not valid JSON"))
	}

	resp, err := h.service.Chat(c.Request().Context(), c.Param("session_id"), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
