// Package agentclient is the client of the remote agent platform. It submits
// prompts to named agents, waits for the resulting jobs and normalizes their
// heterogeneous result payloads into display text.
package agentclient

import (
	"context"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

// Platform defines the operations the service needs from the agent platform.
type Platform interface {
	// CreateResponse submits prompt to agentName. Unless opts.Background is
	// set it returns only once the job is terminal.
	CreateResponse(ctx context.Context, agentName, prompt string, opts CreateOptions) (*domain.AgentJob, error)

	// GetResponse reads the current snapshot of a job. No retry.
	GetResponse(ctx context.Context, agentName, jobID string) (*domain.AgentJob, error)

	// PollResponse waits for a job to reach a terminal status.
	PollResponse(ctx context.Context, agentName, jobID string, opts PollOptions) (*domain.AgentJob, error)

	// ListAgents lists agents whose name starts with prefix.
	ListAgents(ctx context.Context, prefix string) ([]domain.Agent, error)

	// RemixAgent clones template into a new agent called name.
	RemixAgent(ctx context.Context, template, name string) (*domain.Agent, error)

	// GetFile reads a file published by an agent's workspace.
	GetFile(ctx context.Context, agentName, path string) (*File, error)
}

// CreateOptions controls CreateResponse.
type CreateOptions struct {
	Background bool
}

// File is a static file served from an agent workspace.
type File struct {
	Path        string
	ContentType string
	Body        []byte
}

// Ensure Client implements Platform interface.
var _ Platform = (*Client)(nil)
