package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/apperrors"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
	"github.com/CloserlookAI/demo-market-app-sub000/tests/helpers"
)

type fakeRemixer struct {
	mu       sync.Mutex
	agents   []string
	remixes  int32
	delay    time.Duration
	remixErr error
	listErr  error
}

func (f *fakeRemixer) ListAgents(_ context.Context, prefix string) ([]domain.Agent, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Agent
	for _, n := range f.agents {
		out = append(out, domain.Agent{Name: n})
	}
	return out, nil
}

func (f *fakeRemixer) RemixAgent(_ context.Context, template, name string) (*domain.Agent, error) {
	atomic.AddInt32(&f.remixes, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.remixErr != nil {
		return nil, f.remixErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.agents = append(f.agents, name)
	return &domain.Agent{Name: name, Parent: template}, nil
}

func TestEnsureProvisionsOnce(t *testing.T) {
	platform := &fakeRemixer{agents: []string{"analyst-4"}, delay: 20 * time.Millisecond}
	st := helpers.NewTestSQLiteStore(t)
	p := NewProvisioner(platform, st, "analyst")

	var wg sync.WaitGroup
	results := make([]*domain.SessionAgent, 10)
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.Ensure(context.Background(), "s1")
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, "analyst-5", results[i].Name)
		assert.Equal(t, domain.ProvisionStateReady, results[i].State)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&platform.remixes))

	// Ready is cached.
	again, err := p.Ensure(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "analyst-5", again.Name)
	assert.Equal(t, int32(1), atomic.LoadInt32(&platform.remixes))

	stored, err := st.GetSessionAgent(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.ProvisionStateReady, stored.State)
	assert.Equal(t, "analyst-5", stored.Name)
	assert.Equal(t, "analyst", stored.ParentAgentName)
}

func TestEnsureSeparateSessionsGetSeparateClones(t *testing.T) {
	platform := &fakeRemixer{}
	p := NewProvisioner(platform, nil, "analyst")

	a, err := p.Ensure(context.Background(), "s1")
	require.NoError(t, err)
	b, err := p.Ensure(context.Background(), "s2")
	require.NoError(t, err)

	assert.Equal(t, "analyst-1", a.Name)
	assert.Equal(t, "analyst-2", b.Name)
}

func TestEnsureFailureIsSticky(t *testing.T) {
	platform := &fakeRemixer{remixErr: &apperrors.RemoteAgentError{Op: "remix agent", Status: 409}}
	p := NewProvisioner(platform, nil, "analyst")

	_, err := p.Ensure(context.Background(), "s1")
	var provErr *apperrors.ProvisioningError
	require.ErrorAs(t, err, &provErr)
	var remoteErr *apperrors.RemoteAgentError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, 409, remoteErr.Status)

	platform.remixErr = nil
	_, err = p.Ensure(context.Background(), "s1")
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&platform.remixes))

	state := p.State("s1")
	assert.Equal(t, domain.ProvisionStateFailed, state.State)
	assert.NotEmpty(t, state.Error)
}

func TestEnsureListFailure(t *testing.T) {
	platform := &fakeRemixer{listErr: errors.New("platform down")}
	p := NewProvisioner(platform, nil, "analyst")

	_, err := p.Ensure(context.Background(), "s1")
	assert.Error(t, err)
	assert.Equal(t, apperrors.CodeProvisioning, apperrors.Code(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&platform.remixes))
}

func TestEnsureValidatesInput(t *testing.T) {
	p := NewProvisioner(&fakeRemixer{}, nil, "analyst")
	_, err := p.Ensure(context.Background(), " ")
	var inputErr *apperrors.InvalidInputError
	assert.ErrorAs(t, err, &inputErr)

	unconfigured := NewProvisioner(&fakeRemixer{}, nil, "")
	_, err = unconfigured.Ensure(context.Background(), "s1")
	var cfgErr *apperrors.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestStateUnprovisioned(t *testing.T) {
	p := NewProvisioner(&fakeRemixer{}, nil, "analyst")
	state := p.State("fresh")
	assert.Equal(t, domain.ProvisionStateUnprovisioned, state.State)
	assert.Equal(t, "analyst", state.ParentAgentName)
}
