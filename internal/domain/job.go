package domain

import (
	"encoding/json"
	"time"
)

// AgentJob is one unit of work submitted to a named remote agent.
// Output and Segments keep the raw payload because its shape varies; they are
// only meaningful once Status is terminal.
type AgentJob struct {
	ID        string          `json:"id"`
	AgentName string          `json:"agent_name"`
	Status    JobStatus       `json:"status"`
	Input     string          `json:"input"`
	Output    json.RawMessage `json:"output,omitempty"`
	Segments  json.RawMessage `json:"segments,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ContentItem is a typed entry of a response input or output.
type ContentItem struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// JobRecord is the local trace of a job driven by this service.
type JobRecord struct {
	JobID     string    `json:"job_id"`
	AgentName string    `json:"agent_name"`
	SessionID string    `json:"session_id,omitempty"`
	Status    JobStatus `json:"status"`
	Prompt    string    `json:"prompt"`
	FinalText string    `json:"final_text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Event represents a trace event for a job.
type Event struct {
	EventID string          `json:"event_id"`
	JobID   string          `json:"job_id"`
	Ts      int64           `json:"ts"` // Unix milliseconds
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StatusChangedPayload is the payload of a job_status_changed event.
type StatusChangedPayload struct {
	From JobStatus `json:"from,omitempty"`
	To   JobStatus `json:"to"`
}

// JobDonePayload is the payload of job_completed and job_failed events.
type JobDonePayload struct {
	Status    JobStatus `json:"status"`
	FinalText string    `json:"final_text,omitempty"`
	Error     string    `json:"error,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
}
