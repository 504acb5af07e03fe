// Package domain defines the core domain models for the dashboard backend.
package domain

// JobStatus represents the lifecycle status of an agent job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// IsTerminal reports whether no further transitions can occur.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// AdvanceStatus returns the status a job should hold after observing next.
// Terminal statuses never revert, and unknown values are ignored.
func AdvanceStatus(prev, next JobStatus) JobStatus {
	if prev.IsTerminal() || !next.Valid() {
		return prev
	}
	return next
}

// ProvisionState is the lifecycle of a per-session agent clone.
type ProvisionState string

const (
	ProvisionStateUnprovisioned ProvisionState = "unprovisioned"
	ProvisionStateProvisioning  ProvisionState = "provisioning"
	ProvisionStateReady         ProvisionState = "ready"
	ProvisionStateFailed        ProvisionState = "failed"
)

// EventType represents the type of a job trace event.
type EventType string

const (
	EventTypeJobCreated       EventType = "job_created"
	EventTypeJobStatusChanged EventType = "job_status_changed"
	EventTypeJobCompleted     EventType = "job_completed"
	EventTypeJobFailed        EventType = "job_failed"
	EventTypeJobTimeout       EventType = "job_poll_timeout"
)

// Agent operations evaluated by the access policy.
const (
	OperationCreateResponse = "create_response"
	OperationGetResponse    = "get_response"
	OperationReadFile       = "read_file"
	OperationRemix          = "remix"
)
