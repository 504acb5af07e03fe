package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/adapter/agentclient"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/apperrors"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
	"github.com/CloserlookAI/demo-market-app-sub000/policy"
)

// agents returns the agent platform, or the configuration error that keeps
// it unavailable.
func (s *Service) agents() (agentclient.Platform, error) {
	if s.platform != nil {
		return s.platform, nil
	}
	if s.platformErr != nil {
		return nil, s.platformErr
	}
	return nil, s.config.AgentPlatform.Validate()
}

// authorize evaluates the agent access policy for one remote call.
func (s *Service) authorize(ctx context.Context, operation, agentName string, promptLength int) error {
	if s.policyEngine == nil {
		return nil
	}
	ap := s.config.AgentPlatform
	err := s.policyEngine.Check(ctx, policy.Input{
		Operation:       operation,
		AgentName:       agentName,
		DefaultAgent:    ap.DefaultAgent,
		CanvasAgent:     ap.CanvasAgent,
		TemplateAgent:   ap.TemplateAgent,
		PromptLength:    promptLength,
		MaxPromptLength: s.config.MaxPromptLength,
	})
	if err != nil {
		log.Printf("WARN: policy blocked %s on %s: %v", operation, agentName, err)
	}
	return err
}

func (s *Service) resolveAgent(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return s.config.AgentPlatform.DefaultAgent
}

// Analyze runs a blocking analysis on the requested (or default) agent.
func (s *Service) Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, apperrors.InvalidInput("prompt", "is required")
	}
	prompt := req.Prompt
	if symbol := strings.ToUpper(strings.TrimSpace(req.Symbol)); symbol != "" {
		prompt = fmt.Sprintf("Symbol: %s\n\n%s", symbol, req.Prompt)
	}
	return s.runBlocking(ctx, s.resolveAgent(req.Agent), prompt, "")
}

// runBlocking submits prompt and waits for the terminal job.
func (s *Service) runBlocking(ctx context.Context, agentName, prompt, sessionID string) (*domain.AnalysisResponse, error) {
	platform, err := s.agents()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, apperrors.InvalidInput("prompt", "is required")
	}
	if err := s.authorize(ctx, domain.OperationCreateResponse, agentName, len(prompt)); err != nil {
		return nil, err
	}

	started := s.now()
	job, err := platform.CreateResponse(ctx, agentName, prompt, agentclient.CreateOptions{})
	if err != nil {
		var timeoutErr *apperrors.PollingTimeoutError
		if errors.As(err, &timeoutErr) && timeoutErr.JobID != "" {
			// The job exists and keeps running; trace it so it can be
			// waited on and finished by the refresher.
			s.trackUnfinished(ctx, agentName, prompt, sessionID, timeoutErr)
		}
		log.Printf("ERROR: analysis on %s failed after %s: %v", agentName, s.now().Sub(started).Round(time.Millisecond), err)
		return nil, err
	}

	s.trackJob(ctx, job, sessionID, domain.JobStatusPending)
	text := agentclient.ExtractFinalResponse(job)
	s.finishJob(ctx, job, text)

	return &domain.AnalysisResponse{
		JobID:     job.ID,
		AgentName: job.AgentName,
		Status:    job.Status,
		Text:      text,
	}, nil
}

// trackUnfinished records a job whose blocking create timed out while it was
// still running.
func (s *Service) trackUnfinished(ctx context.Context, agentName, prompt, sessionID string, timeoutErr *apperrors.PollingTimeoutError) {
	status := domain.JobStatus(timeoutErr.LastStatus)
	if !status.Valid() || status.IsTerminal() {
		status = domain.JobStatusPending
	}
	s.trackJob(ctx, &domain.AgentJob{ID: timeoutErr.JobID, AgentName: agentName, Input: prompt}, sessionID, status)
	if err := s.recordEvent(context.WithoutCancel(ctx), timeoutErr.JobID, domain.EventTypeJobTimeout, map[string]interface{}{
		"last_status": timeoutErr.LastStatus,
		"elapsed_ms":  timeoutErr.Elapsed.Milliseconds(),
	}); err != nil {
		log.Printf("ERROR: failed to record job_poll_timeout event: %v", err)
	}
}

// CreateResponse submits a prompt. In background mode it returns the job
// handle right away; otherwise it waits like Analyze.
func (s *Service) CreateResponse(ctx context.Context, req domain.CreateResponseRequest) (*domain.JobView, error) {
	agentName := s.resolveAgent(req.Agent)
	if !req.Background {
		res, err := s.runBlocking(ctx, agentName, req.Prompt, "")
		if err != nil {
			return nil, err
		}
		return &domain.JobView{JobID: res.JobID, AgentName: res.AgentName, Status: res.Status, Terminal: true, Text: res.Text}, nil
	}

	platform, err := s.agents()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, apperrors.InvalidInput("prompt", "is required")
	}
	if err := s.authorize(ctx, domain.OperationCreateResponse, agentName, len(req.Prompt)); err != nil {
		return nil, err
	}

	job, err := platform.CreateResponse(ctx, agentName, req.Prompt, agentclient.CreateOptions{Background: true})
	if err != nil {
		log.Printf("ERROR: background create on %s failed: %v", agentName, err)
		return nil, err
	}
	s.trackJob(ctx, job, "", job.Status)
	return s.view(ctx, job), nil
}

// GetResponse returns the current snapshot of a job.
func (s *Service) GetResponse(ctx context.Context, agentName, jobID string) (*domain.JobView, error) {
	platform, err := s.agents()
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, domain.OperationGetResponse, agentName, 0); err != nil {
		return nil, err
	}

	job, err := platform.GetResponse(ctx, agentName, jobID)
	if err != nil {
		return nil, err
	}
	s.observeStatus(ctx, job.ID, job.Status)
	return s.view(ctx, job), nil
}

// WaitOptions bounds a wait on a job. Zero values use the configured poll
// defaults.
type WaitOptions struct {
	MaxWait  time.Duration
	Interval time.Duration
}

// WaitResponse polls a job until it is terminal. A PollingTimeoutError means
// the job is still running.
func (s *Service) WaitResponse(ctx context.Context, agentName, jobID string, opts WaitOptions) (*domain.JobView, error) {
	job, err := s.poll(ctx, agentName, jobID, opts, nil)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, job), nil
}

// WatchResponse polls a job and calls send for every distinct status, then
// once more with the final text. It stops early when send fails.
func (s *Service) WatchResponse(ctx context.Context, agentName, jobID string, opts WaitOptions, send func(domain.WatchMessage) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sendErr error
	onUpdate := func(status domain.JobStatus, job *domain.AgentJob) {
		if sendErr != nil {
			return
		}
		sendErr = send(domain.WatchMessage{
			Type:   domain.WatchTypeStatus,
			Ts:     s.now().UnixMilli(),
			JobID:  jobID,
			Status: status,
		})
		if sendErr != nil {
			cancel()
		}
	}

	job, err := s.poll(ctx, agentName, jobID, opts, onUpdate)
	if sendErr != nil {
		return sendErr
	}
	if err != nil {
		return err
	}

	view := s.view(ctx, job)
	return send(domain.WatchMessage{
		Type:   domain.WatchTypeDone,
		Ts:     s.now().UnixMilli(),
		JobID:  jobID,
		Status: view.Status,
		Text:   view.Text,
	})
}

func (s *Service) poll(ctx context.Context, agentName, jobID string, opts WaitOptions, onUpdate func(domain.JobStatus, *domain.AgentJob)) (*domain.AgentJob, error) {
	platform, err := s.agents()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(agentName) == "" || strings.TrimSpace(jobID) == "" {
		return nil, apperrors.InvalidInput("job", "agent name and job id are required")
	}
	if err := s.authorize(ctx, domain.OperationGetResponse, agentName, 0); err != nil {
		return nil, err
	}

	job, err := platform.PollResponse(ctx, agentName, jobID, agentclient.PollOptions{
		MaxWait:  opts.MaxWait,
		Interval: opts.Interval,
		OnStatusUpdate: func(status domain.JobStatus, job *domain.AgentJob) {
			s.observeStatus(ctx, jobID, status)
			if onUpdate != nil {
				onUpdate(status, job)
			}
		},
	})
	if err != nil {
		var timeoutErr *apperrors.PollingTimeoutError
		if errors.As(err, &timeoutErr) {
			log.Printf("WARN: job %s on %s not finished after %s", jobID, agentName, timeoutErr.Elapsed.Round(time.Millisecond))
			if rec, _ := s.store.GetJob(context.WithoutCancel(ctx), jobID); rec != nil {
				if err := s.recordEvent(context.WithoutCancel(ctx), jobID, domain.EventTypeJobTimeout, map[string]interface{}{
					"last_status": timeoutErr.LastStatus,
					"elapsed_ms":  timeoutErr.Elapsed.Milliseconds(),
				}); err != nil {
					log.Printf("ERROR: failed to record job_poll_timeout event: %v", err)
				}
			}
		}
		return nil, err
	}
	return job, nil
}

// view converts a job into its API representation. Terminal jobs carry the
// extracted text and are recorded as finished.
func (s *Service) view(ctx context.Context, job *domain.AgentJob) *domain.JobView {
	v := &domain.JobView{
		JobID:     job.ID,
		AgentName: job.AgentName,
		Status:    job.Status,
		Terminal:  job.Status.IsTerminal(),
	}
	if !job.CreatedAt.IsZero() {
		v.CreatedAt = job.CreatedAt.UnixMilli()
	}
	if !job.UpdatedAt.IsZero() {
		v.UpdatedAt = job.UpdatedAt.UnixMilli()
	}
	if v.Terminal {
		v.Text = agentclient.ExtractFinalResponse(job)
		s.finishJob(ctx, job, v.Text)
	}
	return v
}
