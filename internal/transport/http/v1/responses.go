package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/apperrors"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/service"
)

// Analyze runs a blocking analysis.
// POST /v1/analysis
func (h *Handler) Analyze(c echo.Context) error {
	var req domain.AnalysisRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperrors.InvalidInput("body", "is not valid JSON"))
	}

	resp, err := h.service.Analyze(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// CreateResponse submits a prompt. Background jobs answer 202 with the job
// handle.
// POST /v1/responses
func (h *Handler) CreateResponse(c echo.Context) error {
	var req domain.CreateResponseRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperrors.InvalidInput("body", "is not valid JSON"))
	}

	view, err := h.service.CreateResponse(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	if !view.Terminal {
		return c.JSON(http.StatusAccepted, view)
	}
	return c.JSON(http.StatusOK, view)
}

// GetResponse returns a job snapshot.
// GET /v1/responses/:agent/:job_id
func (h *Handler) GetResponse(c echo.Context) error {
	view, err := h.service.GetResponse(c.Request().Context(), c.Param("agent"), c.Param("job_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// WaitResponse polls a job until it finishes or max_wait_ms elapses.
// POST /v1/responses/:agent/:job_id/wait?max_wait_ms=&interval_ms=
func (h *Handler) WaitResponse(c echo.Context) error {
	jobID := c.Param("job_id")
	view, err := h.service.WaitResponse(c.Request().Context(), c.Param("agent"), jobID, waitOptions(c))
	if err != nil {
		if apperrors.Code(err) == apperrors.CodePollingTimeout {
			return c.JSON(http.StatusAccepted, map[string]string{
				"job_id":  jobID,
				"status":  "processing",
				"message": "still processing, try later",
			})
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// waitOptions reads max_wait_ms and interval_ms. Missing or invalid values
// fall back to the configured defaults.
func waitOptions(c echo.Context) service.WaitOptions {
	var opts service.WaitOptions
	if v := c.QueryParam("max_wait_ms"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			opts.MaxWait = time.Duration(ms) * time.Millisecond
		}
	}
	if v := c.QueryParam("interval_ms"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			opts.Interval = time.Duration(ms) * time.Millisecond
		}
	}
	return opts
}
