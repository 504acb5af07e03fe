// Package apperrors defines the error taxonomy shared by the agent client,
// the session provisioner and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// Error codes surfaced to API callers.
const (
	CodeConfiguration  = "configuration_error"
	CodeRemoteAgent    = "remote_agent_error"
	CodePollingTimeout = "polling_timeout"
	CodeInvalidInput   = "invalid_input"
	CodePolicyBlocked  = "policy_blocked"
	CodeProvisioning   = "provisioning_failed"
)

// ConfigurationError reports required settings that are absent. It is fatal
// for the feature that needs them and is never retried.
type ConfigurationError struct {
	Missing []string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: missing %v (caused by: %v)", CodeConfiguration, e.Missing, e.Cause)
	}
	return fmt.Sprintf("%s: missing %v", CodeConfiguration, e.Missing)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// RemoteAgentError is a non-2xx or undecodable answer from the agent platform.
// Status is zero when the request never got an HTTP answer.
type RemoteAgentError struct {
	Op     string
	Status int
	Body   string
	Cause  error
}

func (e *RemoteAgentError) Error() string {
	msg := fmt.Sprintf("%s: %s", CodeRemoteAgent, e.Op)
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

func (e *RemoteAgentError) Unwrap() error {
	return e.Cause
}

// Transient reports whether a create-and-await loop may try again.
func (e *RemoteAgentError) Transient() bool {
	switch {
	case e.Status == 0:
		return true
	case e.Status == 408, e.Status == 425, e.Status == 429:
		return true
	case e.Status >= 500:
		return true
	}
	return false
}

// PollingTimeoutError means a job did not reach a terminal status within the
// caller's wall-clock budget. The job may still finish later.
type PollingTimeoutError struct {
	JobID      string
	LastStatus string
	Elapsed    time.Duration
}

func (e *PollingTimeoutError) Error() string {
	return fmt.Sprintf("%s: job %s still %q after %s", CodePollingTimeout, e.JobID, e.LastStatus, e.Elapsed.Round(time.Millisecond))
}

// InvalidInputError rejects a request before any remote call is made.
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s %s", CodeInvalidInput, e.Field, e.Message)
}

// InvalidInput builds an InvalidInputError.
func InvalidInput(field, message string) error {
	return &InvalidInputError{Field: field, Message: message}
}

// PolicyError is returned when the agent access policy blocks a call.
type PolicyError struct {
	Operation string
	AgentName string
	Reason    string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s: %s on %q: %s", CodePolicyBlocked, e.Operation, e.AgentName, e.Reason)
}

// ProvisioningError means a session's agent could not be created. The session
// stays failed; the client has to start a new one.
type ProvisioningError struct {
	SessionID string
	Reason    string
	Cause     error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("%s: session %s: %s", CodeProvisioning, e.SessionID, e.Reason)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Cause
}

// Code maps an error to the machine code exposed by the API.
func Code(err error) string {
	var cfgErr *ConfigurationError
	var remoteErr *RemoteAgentError
	var timeoutErr *PollingTimeoutError
	var inputErr *InvalidInputError
	var policyErr *PolicyError
	var provErr *ProvisioningError
	switch {
	case errors.As(err, &cfgErr):
		return CodeConfiguration
	case errors.As(err, &timeoutErr):
		return CodePollingTimeout
	case errors.As(err, &inputErr):
		return CodeInvalidInput
	case errors.As(err, &policyErr):
		return CodePolicyBlocked
	case errors.As(err, &provErr):
		return CodeProvisioning
	case errors.As(err, &remoteErr):
		return CodeRemoteAgent
	}
	return "internal_error"
}
