package v1

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/apperrors"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

// apologyMessage is shown to end users instead of internal error details.
const apologyMessage = "Sorry, the assistant could not complete this request. Please try again."

// statusFor maps an error code to its HTTP status.
func statusFor(err error) int {
	switch apperrors.Code(err) {
	case apperrors.CodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.CodePolicyBlocked:
		return http.StatusForbidden
	case apperrors.CodeConfiguration:
		return http.StatusServiceUnavailable
	case apperrors.CodePollingTimeout:
		return http.StatusAccepted
	case apperrors.CodeRemoteAgent:
		var remote *apperrors.RemoteAgentError
		if errors.As(err, &remote) && remote.Status == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case apperrors.CodeProvisioning:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError writes err as an ErrorResponse. Input and policy errors keep
// their text so callers can fix the request; everything else is replaced by
// the generic apology.
func respondError(c echo.Context, err error) error {
	code := apperrors.Code(err)
	status := statusFor(err)

	body := domain.ErrorResponse{Code: code, Error: apologyMessage}
	switch code {
	case apperrors.CodeInvalidInput, apperrors.CodePolicyBlocked:
		body.Error = err.Error()
	case apperrors.CodeConfiguration:
		body.Message = "the assistant is not configured"
	case apperrors.CodePollingTimeout:
		var timeoutErr *apperrors.PollingTimeoutError
		if errors.As(err, &timeoutErr) {
			body.JobID = timeoutErr.JobID
		}
		body.Message = "still processing, try later"
	}

	if status >= http.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	} else {
		log.Printf("WARN: %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}
	return c.JSON(status, body)
}
