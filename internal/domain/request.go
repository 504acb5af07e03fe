package domain

// AnalysisRequest asks an agent for a blocking analysis.
type AnalysisRequest struct {
	Symbol string `json:"symbol,omitempty"`
	Prompt string `json:"prompt"`
	Agent  string `json:"agent,omitempty"`
}

// AnalysisResponse carries the normalized result of a finished job.
type AnalysisResponse struct {
	JobID     string    `json:"job_id"`
	AgentName string    `json:"agent_name"`
	Status    JobStatus `json:"status"`
	Text      string    `json:"text"`
}

// CreateResponseRequest submits a prompt, optionally in the background.
type CreateResponseRequest struct {
	Agent      string `json:"agent,omitempty"`
	Prompt     string `json:"prompt"`
	Background bool   `json:"background"`
}

// JobView is a job snapshot as returned to API callers.
type JobView struct {
	JobID     string    `json:"job_id"`
	AgentName string    `json:"agent_name"`
	Status    JobStatus `json:"status"`
	Terminal  bool      `json:"terminal"`
	Text      string    `json:"text,omitempty"`
	CreatedAt int64     `json:"created_at,omitempty"`
	UpdatedAt int64     `json:"updated_at,omitempty"`
}

// ChatRequest is a message sent to the session agent.
type ChatRequest struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	// JobID names the job that is still running after a polling timeout.
	JobID string `json:"job_id,omitempty"`
}

// WatchMessage is streamed over the job watch WebSocket.
type WatchMessage struct {
	Type   string    `json:"type"` // status, done, error
	Ts     int64     `json:"ts"`
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status,omitempty"`
	Text   string    `json:"text,omitempty"`
	Code   string    `json:"code,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// Watch message types.
const (
	WatchTypeStatus = "status"
	WatchTypeDone   = "done"
	WatchTypeError  = "error"
)
