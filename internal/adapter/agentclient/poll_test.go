package agentclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/apperrors"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

// scriptedGetter returns the scripted statuses in order and repeats the last.
type scriptedGetter struct {
	mu       sync.Mutex
	statuses []domain.JobStatus
	errs     map[int]error
	calls    int
	times    []time.Time
}

func (g *scriptedGetter) GetResponse(_ context.Context, agentName, jobID string) (*domain.AgentJob, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	g.calls++
	g.times = append(g.times, time.Now())
	if err, ok := g.errs[i]; ok {
		return nil, err
	}
	if len(g.statuses) == 0 {
		return nil, nil
	}
	if i >= len(g.statuses) {
		i = len(g.statuses) - 1
	}
	return &domain.AgentJob{ID: jobID, AgentName: agentName, Status: g.statuses[i]}, nil
}

func (g *scriptedGetter) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestPollNotifiesDistinctStatuses(t *testing.T) {
	getter := &scriptedGetter{statuses: []domain.JobStatus{
		domain.JobStatusPending,
		domain.JobStatusPending,
		domain.JobStatusProcessing,
		domain.JobStatusProcessing,
		domain.JobStatusProcessing,
		domain.JobStatusCompleted,
	}}

	var seen []domain.JobStatus
	job, err := Poll(context.Background(), getter, "analyst", "resp_1", PollOptions{
		Interval: time.Millisecond,
		MaxWait:  time.Second,
		OnStatusUpdate: func(status domain.JobStatus, _ *domain.AgentJob) {
			seen = append(seen, status)
		},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, []domain.JobStatus{
		domain.JobStatusPending,
		domain.JobStatusProcessing,
		domain.JobStatusCompleted,
	}, seen)
	assert.Equal(t, 6, getter.Calls())
}

func TestPollRepeatedProcessingNotifiesOnce(t *testing.T) {
	getter := &scriptedGetter{statuses: []domain.JobStatus{
		domain.JobStatusProcessing,
		domain.JobStatusProcessing,
		domain.JobStatusProcessing,
		domain.JobStatusProcessing,
		domain.JobStatusProcessing,
		domain.JobStatusCompleted,
	}}

	var seen []domain.JobStatus
	job, err := Poll(context.Background(), getter, "analyst", "resp_5", PollOptions{
		Interval: time.Millisecond,
		MaxWait:  time.Second,
		OnStatusUpdate: func(status domain.JobStatus, _ *domain.AgentJob) {
			seen = append(seen, status)
		},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	require.Len(t, seen, 2)
	assert.Equal(t, []domain.JobStatus{domain.JobStatusProcessing, domain.JobStatusCompleted}, seen)
	assert.Equal(t, 6, getter.Calls())
}

func TestPollTreatsLookupErrorsAsAbsent(t *testing.T) {
	getter := &scriptedGetter{
		statuses: []domain.JobStatus{"", "", domain.JobStatusProcessing, domain.JobStatusFailed},
		errs: map[int]error{
			0: &apperrors.RemoteAgentError{Op: "get response", Status: 404},
			1: errors.New("connection reset"),
		},
	}

	job, err := Poll(context.Background(), getter, "analyst", "resp_1", PollOptions{Interval: time.Millisecond, MaxWait: time.Second})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
}

func TestPollTimesOutAfterMaxWait(t *testing.T) {
	getter := &scriptedGetter{statuses: []domain.JobStatus{domain.JobStatusProcessing}}
	maxWait := 60 * time.Millisecond

	started := time.Now()
	job, err := Poll(context.Background(), getter, "analyst", "resp_1", PollOptions{Interval: 10 * time.Millisecond, MaxWait: maxWait})
	elapsed := time.Since(started)

	assert.Nil(t, job)
	var timeoutErr *apperrors.PollingTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "resp_1", timeoutErr.JobID)
	assert.Equal(t, string(domain.JobStatusProcessing), timeoutErr.LastStatus)
	assert.GreaterOrEqual(t, elapsed, maxWait)
	assert.GreaterOrEqual(t, timeoutErr.Elapsed, maxWait)

	// No lookup happens after the deadline.
	calls := getter.Calls()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, getter.Calls())
	for _, ts := range getter.times {
		assert.LessOrEqual(t, ts.Sub(started), maxWait+20*time.Millisecond)
	}
}

func TestPollKeepsInterval(t *testing.T) {
	getter := &scriptedGetter{statuses: []domain.JobStatus{
		domain.JobStatusProcessing,
		domain.JobStatusProcessing,
		domain.JobStatusCompleted,
	}}
	interval := 20 * time.Millisecond

	_, err := Poll(context.Background(), getter, "analyst", "resp_1", PollOptions{Interval: interval, MaxWait: time.Second})
	require.NoError(t, err)
	require.Len(t, getter.times, 3)
	for i := 1; i < len(getter.times); i++ {
		assert.GreaterOrEqual(t, getter.times[i].Sub(getter.times[i-1]), interval)
	}
}

func TestPollHonorsCancellation(t *testing.T) {
	getter := &scriptedGetter{statuses: []domain.JobStatus{domain.JobStatusProcessing}}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := Poll(ctx, getter, "analyst", "resp_1", PollOptions{Interval: 5 * time.Millisecond, MaxWait: time.Minute})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPollStopsOnInvalidInput(t *testing.T) {
	getter := &scriptedGetter{errs: map[int]error{0: apperrors.InvalidInput("job", "agent name and job id are required")}}

	_, err := Poll(context.Background(), getter, "", "", PollOptions{Interval: time.Millisecond, MaxWait: time.Second})
	var inputErr *apperrors.InvalidInputError
	assert.ErrorAs(t, err, &inputErr)
	assert.Equal(t, 1, getter.Calls())
}

func TestPollNeverRevertsTerminalStatus(t *testing.T) {
	getter := &scriptedGetter{statuses: []domain.JobStatus{domain.JobStatusCompleted}}

	var seen []domain.JobStatus
	job, err := Poll(context.Background(), getter, "analyst", "resp_1", PollOptions{
		Interval:       time.Millisecond,
		MaxWait:        time.Second,
		OnStatusUpdate: func(s domain.JobStatus, _ *domain.AgentJob) { seen = append(seen, s) },
	})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, []domain.JobStatus{domain.JobStatusCompleted}, seen)
}
