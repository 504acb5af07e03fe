package store

import (
	"context"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

// Store defines the interface for the service's local records.
type Store interface {
	// Session agent operations
	UpsertSessionAgent(ctx context.Context, agent *domain.SessionAgent) error
	GetSessionAgent(ctx context.Context, sessionID string) (*domain.SessionAgent, error)
	ListSessionAgents(ctx context.Context) ([]domain.SessionAgent, error)

	// Job operations
	CreateJob(ctx context.Context, job *domain.JobRecord) error
	GetJob(ctx context.Context, jobID string) (*domain.JobRecord, error)
	UpdateJob(ctx context.Context, jobID string, status domain.JobStatus, finalText string) error
	ListJobs(ctx context.Context, sessionID string, limit int) ([]domain.JobRecord, error)
	ListActiveJobs(ctx context.Context, limit int) ([]domain.JobRecord, error)
	TouchJob(ctx context.Context, jobID string) error

	// Event operations
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, jobID string, afterTs int64, types []string, limit int) ([]domain.Event, error)

	Close() error
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
