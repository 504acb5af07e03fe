package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/adapter/agentclient"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/adapter/marketdata"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/config"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/logging"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/repository"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/service"
	handler "github.com/CloserlookAI/demo-market-app-sub000/internal/transport/http"
	"github.com/CloserlookAI/demo-market-app-sub000/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := logging.Setup(os.Stderr, cfg.LogLevel); err != nil {
		log.Printf("WARN: %v, using info", err)
	}
	if cfg.MockMode() {
		cfg.ApplyMockDefaults()
	}

	log.Printf("Starting market dashboard backend...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Market data URL: %s", cfg.MarketData.BaseURL)
	log.Printf("Agent platform URL: %s", cfg.AgentPlatform.BaseURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize agent platform. Without it the market pages keep working and
	// the assistant endpoints answer 503.
	platform, platformErr := agentclient.NewPlatform(cfg)
	if platformErr != nil {
		log.Printf("WARN: assistant disabled: %v", platformErr)
	}

	// Initialize market data client
	market := marketdata.NewClient(cfg.MarketData)

	// Initialize policy engine
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	policyEngine, err := newPolicyEngine(ctx, cfg.PolicyFile)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize service
	svc := service.New(db, platform, platformErr, market, cfg, policyEngine)
	if svc.AssistantReady() {
		go svc.RunJobRefresher(ctx, cfg.JobRefreshInterval)
	}

	server := handler.NewServer(svc)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	stop()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Server stopped")
}

func newPolicyEngine(ctx context.Context, path string) (*policy.Engine, error) {
	if path == "" {
		return policy.NewEngine(ctx, policy.DefaultPolicy)
	}
	log.Printf("Loading agent policy from %s", path)
	return policy.NewEngineFromFile(ctx, path)
}
