package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// ListJobs returns recent jobs, optionally filtered by session.
// GET /v1/jobs?session_id=&limit=
func (h *Handler) ListJobs(c echo.Context) error {
	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}

	jobs, err := h.service.ListJobs(c.Request().Context(), c.QueryParam("session_id"), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"jobs": jobs,
	})
}

// GetJob returns the local record of a job.
// GET /v1/jobs/:job_id
func (h *Handler) GetJob(c echo.Context) error {
	rec, err := h.service.GetJobRecord(c.Request().Context(), c.Param("job_id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if rec == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}
	return c.JSON(http.StatusOK, rec)
}

// GetJobEvents retrieves the trace of a job.
// GET /v1/jobs/:job_id/events?after_ts=&types=&limit=
func (h *Handler) GetJobEvents(c echo.Context) error {
	jobID := c.Param("job_id")
	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}
	afterTs := int64(0)
	if t := c.QueryParam("after_ts"); t != "" {
		if val, err := strconv.ParseInt(t, 10, 64); err == nil {
			afterTs = val
		}
	}
	var types []string
	if t := c.QueryParam("types"); t != "" {
		types = strings.Split(t, ",")
	}

	events, err := h.service.JobEvents(c.Request().Context(), jobID, afterTs, types, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"job_id": jobID,
		"events": events,
	})
}
