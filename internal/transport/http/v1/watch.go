package v1

import (
	"context"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/apperrors"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

// WatchResponse streams job progress over a WebSocket: one status message
// per distinct status, then a done message with the final text. Failures are
// sent as an error message before the socket is closed.
// GET /v1/responses/:agent/:job_id/watch
func (h *Handler) WatchResponse(c echo.Context) error {
	agentName := c.Param("agent")
	jobID := c.Param("job_id")
	opts := waitOptions(c)

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// The client never sends data; reading only detects a closed socket.
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(msg domain.WatchMessage) error {
		ws.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		return ws.WriteJSON(msg)
	}

	err = h.service.WatchResponse(ctx, agentName, jobID, opts, send)
	if err != nil && ctx.Err() == nil {
		if sendErr := send(domain.WatchMessage{
			Type:  domain.WatchTypeError,
			Ts:    time.Now().UnixMilli(),
			JobID: jobID,
			Code:  apperrors.Code(err),
			Error: watchErrorText(err),
		}); sendErr != nil {
			log.Printf("WARN: failed to send watch error for job %s: %v", jobID, sendErr)
		}
	}

	ws.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return nil
}

func watchErrorText(err error) string {
	switch apperrors.Code(err) {
	case apperrors.CodeInvalidInput, apperrors.CodePolicyBlocked:
		return err.Error()
	case apperrors.CodePollingTimeout:
		return "still processing, try later"
	}
	return apologyMessage
}
