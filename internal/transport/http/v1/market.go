package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetQuote returns the latest quote for a symbol.
// GET /v1/market/quote/:symbol
func (h *Handler) GetQuote(c echo.Context) error {
	env, err := h.service.Quote(c.Request().Context(), c.Param("symbol"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, env)
}

// GetHistory returns a price series.
// GET /v1/market/history/:symbol?range=&interval=
func (h *Handler) GetHistory(c echo.Context) error {
	env, err := h.service.History(c.Request().Context(), c.Param("symbol"), c.QueryParam("range"), c.QueryParam("interval"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, env)
}

// GetProfile returns the company profile.
// GET /v1/market/profile/:symbol
func (h *Handler) GetProfile(c echo.Context) error {
	env, err := h.service.Profile(c.Request().Context(), c.Param("symbol"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, env)
}

// GetHolders returns the ownership summary.
// GET /v1/market/holders/:symbol
func (h *Handler) GetHolders(c echo.Context) error {
	env, err := h.service.Holders(c.Request().Context(), c.Param("symbol"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, env)
}

// GetNews returns recent headlines.
// GET /v1/market/news/:symbol
func (h *Handler) GetNews(c echo.Context) error {
	env, err := h.service.News(c.Request().Context(), c.Param("symbol"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, env)
}

// Search finds instruments.
// GET /v1/market/search?q=
func (h *Handler) Search(c echo.Context) error {
	env, err := h.service.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, env)
}
