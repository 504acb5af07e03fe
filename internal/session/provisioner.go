package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/apperrors"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/metrics"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/repository"
)

// Remixer is the part of the agent platform the provisioner needs.
type Remixer interface {
	ListAgents(ctx context.Context, prefix string) ([]domain.Agent, error)
	RemixAgent(ctx context.Context, template, name string) (*domain.Agent, error)
}

// Provisioner makes sure each session has its own clone of the template agent.
type Provisioner struct {
	platform Remixer
	store    store.Store
	template string

	group singleflight.Group

	mu       sync.RWMutex
	sessions map[string]*domain.SessionAgent
}

// NewProvisioner creates a provisioner cloning template. store may be nil.
func NewProvisioner(platform Remixer, st store.Store, template string) *Provisioner {
	return &Provisioner{
		platform: platform,
		store:    st,
		template: template,
		sessions: make(map[string]*domain.SessionAgent),
	}
}

// Template returns the name of the agent that sessions are cloned from.
func (p *Provisioner) Template() string {
	return p.template
}

// Ensure returns the session's agent, provisioning it on first use.
// Concurrent calls for one session share a single attempt. A ready agent is
// kept for the process lifetime; a failed attempt is final for the session.
func (p *Provisioner) Ensure(ctx context.Context, sessionID string) (*domain.SessionAgent, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, apperrors.InvalidInput("session_id", "is required")
	}
	if p.template == "" {
		return nil, &apperrors.ConfigurationError{Missing: []string{"SESSION_TEMPLATE_AGENT"}}
	}

	if agent, done, err := p.settled(sessionID); done {
		return agent, err
	}

	v, err, shared := p.group.Do(sessionID, func() (interface{}, error) {
		// Another caller may have finished between the check and the call.
		if agent, done, err := p.settled(sessionID); done {
			return agent, err
		}
		// The attempt is shared, so one caller going away must not abort it.
		return p.provision(context.WithoutCancel(ctx), sessionID)
	})
	if shared {
		metrics.Provisioning.WithLabelValues("shared").Inc()
	}
	if err != nil {
		return nil, err
	}
	agent := *v.(*domain.SessionAgent)
	return &agent, nil
}

// State returns the current provisioning record of a session.
func (p *Provisioner) State(sessionID string) domain.SessionAgent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if agent, ok := p.sessions[sessionID]; ok {
		return *agent
	}
	return domain.SessionAgent{
		SessionID:       sessionID,
		ParentAgentName: p.template,
		State:           domain.ProvisionStateUnprovisioned,
	}
}

// settled reports a ready or failed session without doing any work.
func (p *Provisioner) settled(sessionID string) (*domain.SessionAgent, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	agent, ok := p.sessions[sessionID]
	if !ok {
		return nil, false, nil
	}
	switch agent.State {
	case domain.ProvisionStateReady:
		cp := *agent
		return &cp, true, nil
	case domain.ProvisionStateFailed:
		return nil, true, &apperrors.ProvisioningError{SessionID: sessionID, Reason: agent.Error}
	}
	return nil, false, nil
}

func (p *Provisioner) provision(ctx context.Context, sessionID string) (*domain.SessionAgent, error) {
	agent := &domain.SessionAgent{
		SessionID:       sessionID,
		ParentAgentName: p.template,
		State:           domain.ProvisionStateProvisioning,
		CreatedAt:       time.Now().UTC(),
	}
	p.record(ctx, agent)

	existing, err := p.platform.ListAgents(ctx, p.template+"-")
	if err != nil {
		return nil, p.fail(ctx, agent, fmt.Errorf("failed to list agents: %w", err))
	}
	names := make([]string, 0, len(existing))
	for _, a := range existing {
		names = append(names, a.Name)
	}
	name := NextCloneName(p.template, names)

	log.Printf("INFO: provisioning agent %s for session %s from %s", name, sessionID, p.template)
	clone, err := p.platform.RemixAgent(ctx, p.template, name)
	if err != nil {
		var remoteErr *apperrors.RemoteAgentError
		if errors.As(err, &remoteErr) && remoteErr.Status == http.StatusConflict {
			log.Printf("WARN: agent name %s already taken on the platform (session %s)", name, sessionID)
		}
		return nil, p.fail(ctx, agent, fmt.Errorf("failed to remix %s as %s: %w", p.template, name, err))
	}

	readyAt := time.Now().UTC()
	agent.Name = clone.Name
	agent.State = domain.ProvisionStateReady
	agent.ReadyAt = &readyAt
	p.record(ctx, agent)
	metrics.Provisioning.WithLabelValues("ready").Inc()
	log.Printf("INFO: session %s provisioned with agent %s", sessionID, agent.Name)
	return agent, nil
}

func (p *Provisioner) fail(ctx context.Context, agent *domain.SessionAgent, err error) error {
	agent.State = domain.ProvisionStateFailed
	agent.Error = err.Error()
	p.record(ctx, agent)
	metrics.Provisioning.WithLabelValues("failed").Inc()
	log.Printf("ERROR: provisioning session %s failed: %v", agent.SessionID, err)
	return &apperrors.ProvisioningError{SessionID: agent.SessionID, Reason: agent.Error, Cause: err}
}

// record stores a snapshot of agent in memory and, best effort, in the store.
func (p *Provisioner) record(ctx context.Context, agent *domain.SessionAgent) {
	snapshot := *agent
	p.mu.Lock()
	p.sessions[agent.SessionID] = &snapshot
	p.mu.Unlock()

	if p.store == nil {
		return
	}
	if err := p.store.UpsertSessionAgent(context.WithoutCancel(ctx), &snapshot); err != nil {
		log.Printf("WARN: failed to record session %s: %v", agent.SessionID, err)
	}
}
