package service

import (
	"context"
	"strings"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/apperrors"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

// EnsureSessionAgent provisions the session's private agent on first use.
func (s *Service) EnsureSessionAgent(ctx context.Context, sessionID string) (*domain.SessionAgent, error) {
	if _, err := s.agents(); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, domain.OperationRemix, s.provisioner.Template(), 0); err != nil {
		return nil, err
	}
	return s.provisioner.Ensure(ctx, sessionID)
}

// SessionAgentState reports the provisioning state of a session.
func (s *Service) SessionAgentState(sessionID string) (*domain.SessionAgent, error) {
	if _, err := s.agents(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, apperrors.InvalidInput("session_id", "is required")
	}
	state := s.provisioner.State(sessionID)
	return &state, nil
}

// Chat sends a message to the session's agent, provisioning it if needed.
func (s *Service) Chat(ctx context.Context, sessionID string, req domain.ChatRequest) (*domain.AnalysisResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, apperrors.InvalidInput("message", "is required")
	}
	agent, err := s.EnsureSessionAgent(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.runBlocking(ctx, agent.Name, req.Message, sessionID)
}
