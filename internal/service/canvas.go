package service

import (
	"context"
	"strings"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/adapter/agentclient"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

const canvasIndex = "index.html"

// CanvasFile reads a file published by the canvas agent's workspace.
func (s *Service) CanvasFile(ctx context.Context, path string) (*agentclient.File, error) {
	platform, err := s.agents()
	if err != nil {
		return nil, err
	}
	agentName := s.config.AgentPlatform.CanvasAgent
	if err := s.authorize(ctx, domain.OperationReadFile, agentName, 0); err != nil {
		return nil, err
	}

	path = strings.TrimPrefix(path, "/")
	if path == "" || strings.HasSuffix(path, "/") {
		path += canvasIndex
	}
	return platform.GetFile(ctx, agentName, path)
}
