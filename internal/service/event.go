package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

// recordEvent records an event to the store.
func (s *Service) recordEvent(ctx context.Context, jobID string, eventType domain.EventType, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &domain.Event{
		EventID: "evt_" + uuid.New().String()[:8],
		JobID:   jobID,
		Ts:      time.Now().UnixMilli(),
		Type:    eventType,
		Payload: payloadBytes,
	}

	return s.store.CreateEvent(ctx, event)
}

// trackJob records a job this service drives with its first observed status.
// Trace failures are logged and never fail the request.
func (s *Service) trackJob(ctx context.Context, job *domain.AgentJob, sessionID string, status domain.JobStatus) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	ctx = context.WithoutCancel(ctx)
	existing, err := s.store.GetJob(ctx, job.ID)
	if err != nil {
		log.Printf("WARN: failed to read job %s: %v", job.ID, err)
		return
	}
	if existing != nil {
		return
	}

	rec := &domain.JobRecord{
		JobID:     job.ID,
		AgentName: job.AgentName,
		SessionID: sessionID,
		Status:    status,
		Prompt:    job.Input,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateJob(ctx, rec); err != nil {
		log.Printf("ERROR: failed to record job %s: %v", job.ID, err)
		return
	}
	if err := s.recordEvent(ctx, job.ID, domain.EventTypeJobCreated, map[string]interface{}{
		"agent_name": job.AgentName,
		"session_id": sessionID,
		"status":     status,
	}); err != nil {
		log.Printf("ERROR: failed to record job_created event: %v", err)
	}
}

// observeStatus records a status change of a tracked job.
func (s *Service) observeStatus(ctx context.Context, jobID string, status domain.JobStatus) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	s.observeStatusLocked(context.WithoutCancel(ctx), jobID, status)
}

func (s *Service) observeStatusLocked(ctx context.Context, jobID string, status domain.JobStatus) {
	rec, err := s.store.GetJob(ctx, jobID)
	if err != nil || rec == nil {
		return
	}
	next := domain.AdvanceStatus(rec.Status, status)
	if next == rec.Status {
		return
	}
	if err := s.store.UpdateJob(ctx, jobID, next, ""); err != nil {
		log.Printf("WARN: failed to update job %s: %v", jobID, err)
		return
	}
	if err := s.recordEvent(ctx, jobID, domain.EventTypeJobStatusChanged, domain.StatusChangedPayload{From: rec.Status, To: next}); err != nil {
		log.Printf("ERROR: failed to record job_status_changed event: %v", err)
	}
}

// finishJob records the terminal state and final text of a tracked job once.
func (s *Service) finishJob(ctx context.Context, job *domain.AgentJob, finalText string) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	ctx = context.WithoutCancel(ctx)
	rec, err := s.store.GetJob(ctx, job.ID)
	if err != nil || rec == nil {
		return
	}
	if rec.FinalText != "" {
		return
	}
	s.observeStatusLocked(ctx, job.ID, job.Status)
	if err := s.store.UpdateJob(ctx, job.ID, job.Status, finalText); err != nil {
		log.Printf("WARN: failed to store result of job %s: %v", job.ID, err)
	}

	eventType := domain.EventTypeJobCompleted
	if job.Status != domain.JobStatusCompleted {
		eventType = domain.EventTypeJobFailed
	}
	if err := s.recordEvent(ctx, job.ID, eventType, domain.JobDonePayload{
		Status:    job.Status,
		FinalText: finalText,
		Error:     job.Error,
		LatencyMs: s.now().Sub(rec.CreatedAt).Milliseconds(),
	}); err != nil {
		log.Printf("ERROR: failed to record %s event: %v", eventType, err)
	}
}

// JobEvents returns the trace of a job.
func (s *Service) JobEvents(ctx context.Context, jobID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	events, err := s.store.GetEvents(ctx, jobID, afterTs, types, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}

// GetJobRecord returns the local record of a job, or nil.
func (s *Service) GetJobRecord(ctx context.Context, jobID string) (*domain.JobRecord, error) {
	rec, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return rec, nil
}

// ListJobs returns recent job records, optionally for one session.
func (s *Service) ListJobs(ctx context.Context, sessionID string, limit int) ([]domain.JobRecord, error) {
	jobs, err := s.store.ListJobs(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	if jobs == nil {
		jobs = []domain.JobRecord{}
	}
	return jobs, nil
}
