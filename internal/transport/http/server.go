// Package http provides the HTTP server of the dashboard backend.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/service"
	v1 "github.com/CloserlookAI/demo-market-app-sub000/internal/transport/http/v1"
)

// NewServer creates and configures the public HTTP server. It serves the
// market and assistant API plus the Prometheus scrape endpoint.
func NewServer(svc *service.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}
