// Package v1 provides the HTTP handlers of the dashboard API.
package v1

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Service
	upgrader websocket.Upgrader
	// writeTimeout bounds a single WebSocket write.
	writeTimeout time.Duration
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The dashboard is served from another origin in development.
				return true
			},
		},
		writeTimeout: 10 * time.Second,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Market data
	e.GET("/v1/market/quote/:symbol", h.GetQuote)
	e.GET("/v1/market/history/:symbol", h.GetHistory)
	e.GET("/v1/market/profile/:symbol", h.GetProfile)
	e.GET("/v1/market/holders/:symbol", h.GetHolders)
	e.GET("/v1/market/news/:symbol", h.GetNews)
	e.GET("/v1/market/search", h.Search)

	// Assistant
	e.POST("/v1/analysis", h.Analyze)
	e.POST("/v1/responses", h.CreateResponse)
	e.GET("/v1/responses/:agent/:job_id", h.GetResponse)
	e.POST("/v1/responses/:agent/:job_id/wait", h.WaitResponse)
	e.GET("/v1/responses/:agent/:job_id/watch", h.WatchResponse)

	// Sessions
	e.POST("/v1/sessions/:session_id/agent", h.EnsureSessionAgent)
	e.GET("/v1/sessions/:session_id/agent", h.GetSessionAgent)
	e.POST("/v1/sessions/:session_id/chat", h.Chat)

	e.GET("/v1/canvas/*", h.GetCanvasFile)

	// Job trace
	e.GET("/v1/jobs", h.ListJobs)
	e.GET("/v1/jobs/:job_id", h.GetJob)
	e.GET("/v1/jobs/:job_id/events", h.GetJobEvents)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":          "healthy",
		"version":         "0.1.0",
		"assistant_ready": h.service.AssistantReady(),
	})
}
