package apperrors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRemoteAgentErrorTransient(t *testing.T) {
	cases := []struct {
		status int
		want   bool
	}{
		{0, true},
		{408, true},
		{429, true},
		{500, true},
		{503, true},
		{400, false},
		{401, false},
		{404, false},
		{409, false},
	}
	for _, tc := range cases {
		err := &RemoteAgentError{Op: "create", Status: tc.status}
		assert.Equal(t, tc.want, err.Transient(), "status %d", tc.status)
	}
}

func TestCodeUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("analysis: %w", &PollingTimeoutError{JobID: "j1", LastStatus: "processing", Elapsed: time.Second})
	assert.Equal(t, CodePollingTimeout, Code(wrapped))

	assert.Equal(t, CodeConfiguration, Code(&ConfigurationError{Missing: []string{"AGENT_PLATFORM_URL"}}))
	assert.Equal(t, CodeRemoteAgent, Code(&RemoteAgentError{Op: "get", Status: 502}))
	assert.Equal(t, CodeInvalidInput, Code(InvalidInput("prompt", "is required")))
	assert.Equal(t, CodePolicyBlocked, Code(&PolicyError{Operation: "create", AgentName: "x"}))
	assert.Equal(t, CodeProvisioning, Code(&ProvisioningError{
		SessionID: "s1",
		Reason:    "remix failed",
		Cause:     &RemoteAgentError{Op: "remix agent", Status: 409},
	}))
	assert.Equal(t, "internal_error", Code(errors.New("boom")))
}

func TestRemoteAgentErrorUnwrap(t *testing.T) {
	err := &RemoteAgentError{Op: "create", Cause: context.DeadlineExceeded}
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "create")
}
