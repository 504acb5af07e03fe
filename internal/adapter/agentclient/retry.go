package agentclient

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/apperrors"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/config"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/metrics"
)

// createAndAwait repeats the blocking create call until the platform hands
// back a job. Transient failures wait and retry the same request; the loop
// ends on success, a non-transient rejection, ctx cancellation or when the
// configured elapsed budget is spent.
func (c *Client) createAndAwait(ctx context.Context, agentName, prompt string) (*domain.AgentJob, error) {
	started := time.Now()
	attempt := 0

	operation := func() (*domain.AgentJob, error) {
		attempt++
		job, err := c.createOnce(ctx, agentName, prompt, false)
		if err == nil {
			metrics.CreateAttempts.WithLabelValues("ok").Inc()
			return job, nil
		}
		if ctx.Err() != nil {
			metrics.CreateAttempts.WithLabelValues("cancelled").Inc()
			return nil, backoff.Permanent(ctx.Err())
		}

		var remoteErr *apperrors.RemoteAgentError
		if errors.As(err, &remoteErr) && !remoteErr.Transient() {
			metrics.CreateAttempts.WithLabelValues("rejected").Inc()
			return nil, backoff.Permanent(err)
		}
		metrics.CreateAttempts.WithLabelValues("transient").Inc()
		return nil, err
	}

	job, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(newBackOff(c.retry)),
		backoff.WithMaxElapsedTime(c.retry.MaxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.CreateRetries.Inc()
			log.Printf("WARN: create response on %s failed (attempt %d), retrying in %s: %v", agentName, attempt, next, err)
		}),
	)
	if err != nil {
		log.Printf("ERROR: create response on %s gave up after %d attempts in %s: %v", agentName, attempt, time.Since(started).Round(time.Millisecond), err)
		return nil, err
	}

	if job.Status.IsTerminal() {
		metrics.JobDuration.WithLabelValues(string(job.Status)).Observe(time.Since(started).Seconds())
		return job, nil
	}

	// The platform answered before the job finished; wait for it.
	log.Printf("INFO: job %s on %s returned %s, polling until terminal", job.ID, agentName, job.Status)
	done, err := c.PollResponse(ctx, agentName, job.ID, PollOptions{})
	if err != nil {
		return nil, err
	}
	metrics.JobDuration.WithLabelValues(string(done.Status)).Observe(time.Since(started).Seconds())
	return done, nil
}

// newBackOff builds the wait schedule between create attempts. A multiplier
// of 1 keeps a fixed interval.
func newBackOff(cfg config.RetryConfig) backoff.BackOff {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	multiplier := cfg.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	maxInterval := cfg.MaxInterval
	if maxInterval < interval {
		maxInterval = interval
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.Multiplier = multiplier
	b.MaxInterval = maxInterval
	b.RandomizationFactor = 0
	b.Reset()
	return b
}
