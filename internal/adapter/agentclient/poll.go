package agentclient

import (
	"context"
	"errors"
	"time"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/apperrors"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/metrics"
)

const (
	// DefaultPollInterval is the cadence of status lookups.
	DefaultPollInterval = 2 * time.Second
	// DefaultPollMaxWait is the wall-clock budget of one poll loop.
	DefaultPollMaxWait = 15 * time.Minute
)

// PollOptions controls Poll.
type PollOptions struct {
	MaxWait  time.Duration
	Interval time.Duration
	// OnStatusUpdate is called once per distinct status observed, in order.
	OnStatusUpdate func(status domain.JobStatus, job *domain.AgentJob)
}

// ResponseGetter reads a job snapshot.
type ResponseGetter interface {
	GetResponse(ctx context.Context, agentName, jobID string) (*domain.AgentJob, error)
}

// Poll reads the job every Interval until it is terminal. A failed or empty
// lookup means "not visible yet" and the loop keeps waiting. Once MaxWait has
// elapsed without a terminal status, Poll stops and returns a
// PollingTimeoutError.
func Poll(ctx context.Context, getter ResponseGetter, agentName, jobID string, opts PollOptions) (*domain.AgentJob, error) {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultPollMaxWait
	}

	started := time.Now()
	deadline := started.Add(opts.MaxWait)
	var last domain.JobStatus

	for {
		job, err := getter.GetResponse(ctx, agentName, jobID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var cfgErr *apperrors.ConfigurationError
			var inputErr *apperrors.InvalidInputError
			if errors.As(err, &cfgErr) || errors.As(err, &inputErr) {
				return nil, err
			}
			metrics.Polls.WithLabelValues("absent").Inc()
		case job == nil:
			metrics.Polls.WithLabelValues("absent").Inc()
		default:
			metrics.Polls.WithLabelValues("ok").Inc()
			status := job.Status
			if last != "" {
				status = domain.AdvanceStatus(last, job.Status)
			}
			if status != last {
				last = status
				metrics.StatusUpdates.WithLabelValues(string(status)).Inc()
				if opts.OnStatusUpdate != nil {
					opts.OnStatusUpdate(status, job)
				}
			}
			if status.IsTerminal() {
				return job, nil
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			lastStatus := string(last)
			if lastStatus == "" {
				lastStatus = "unknown"
			}
			return nil, &apperrors.PollingTimeoutError{JobID: jobID, LastStatus: lastStatus, Elapsed: time.Since(started)}
		}

		wait := opts.Interval
		if remaining < wait {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
