// Package service implements the dashboard backend use cases: market data
// with fallbacks and the assistant features driven by the agent platform.
package service

import (
	"sync"
	"time"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/adapter/agentclient"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/adapter/marketdata"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/config"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/repository"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/session"
	"github.com/CloserlookAI/demo-market-app-sub000/policy"
)

type Service struct {
	store        store.Store
	platform     agentclient.Platform
	platformErr  error
	provisioner  *session.Provisioner
	market       marketdata.Provider
	config       *config.Config
	policyEngine *policy.Engine
	now          func() time.Time

	// jobMu serializes writes to the job trace.
	jobMu sync.Mutex
}

// New creates the service. platform may be nil when the agent platform is
// not configured; platformErr is then reported by every assistant call.
func New(store store.Store, platform agentclient.Platform, platformErr error, market marketdata.Provider, cfg *config.Config, policyEngine *policy.Engine) *Service {
	s := &Service{
		store:        store,
		platform:     platform,
		platformErr:  platformErr,
		market:       market,
		config:       cfg,
		policyEngine: policyEngine,
		now:          time.Now,
	}
	if platform != nil {
		s.provisioner = session.NewProvisioner(platform, store, cfg.AgentPlatform.TemplateAgent)
	}
	return s
}

// AssistantReady reports whether assistant features can be served.
func (s *Service) AssistantReady() bool {
	return s.platform != nil
}
