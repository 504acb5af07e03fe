package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetCanvasFile proxies a file from the canvas agent's workspace.
// GET /v1/canvas/*
func (h *Handler) GetCanvasFile(c echo.Context) error {
	file, err := h.service.CanvasFile(c.Request().Context(), c.Param("*"))
	if err != nil {
		return respondError(c, err)
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(file.Body)
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, contentType, file.Body)
}
