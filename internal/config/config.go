// Package config provides configuration for the dashboard backend.
package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/apperrors"
)

const (
	// EnvMode selects the agent platform implementation.
	EnvMode = "FINDASH_MODE"
	// ModeMock serves agent calls from the in-process mock platform.
	ModeMock = "MOCK"
)

// Config holds the server configuration. It is built once in main and passed
// by pointer; nothing else reads the environment.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	Mode string

	AgentPlatform AgentPlatformConfig
	CreateRetry   RetryConfig
	Poll          PollConfig
	MarketData    MarketDataConfig

	// Policy
	PolicyFile      string
	MaxPromptLength int

	// JobRefreshInterval is the cadence of the background job refresher.
	JobRefreshInterval time.Duration

	// Logging
	LogLevel string
}

// AgentPlatformConfig describes the remote agent platform.
type AgentPlatformConfig struct {
	BaseURL       string
	Token         string
	DefaultAgent  string
	CanvasAgent   string
	TemplateAgent string
	// RequestTimeout bounds a single HTTP call. The blocking create call is
	// held open by the platform until the job finishes, so it is generous.
	RequestTimeout time.Duration
}

// RetryConfig parameterizes the create-and-await retry loop.
type RetryConfig struct {
	Interval    time.Duration
	Multiplier  float64
	MaxInterval time.Duration
	// MaxElapsed of zero retries until the caller's context is cancelled.
	MaxElapsed time.Duration
}

// PollConfig holds the defaults of the explicit poll loop.
type PollConfig struct {
	Interval time.Duration
	MaxWait  time.Duration
}

// MarketDataConfig describes the upstream market-data provider.
type MarketDataConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RequestsPerSec float64
	Burst          int
}

// Load loads configuration from a .env file, when present, and the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("WARN: failed to read .env: %v", err)
	}

	return &Config{
		HTTPPort:    getEnvInt("HTTP_PORT", 8080),
		DatabaseURL: getEnv("DATABASE_URL", "file:findash?mode=memory&cache=shared"),
		Mode:        getEnv(EnvMode, ""),
		AgentPlatform: AgentPlatformConfig{
			BaseURL:        strings.TrimSuffix(getEnv("AGENT_PLATFORM_URL", ""), "/"),
			Token:          getEnv("AGENT_PLATFORM_TOKEN", ""),
			DefaultAgent:   getEnv("AGENT_NAME", ""),
			CanvasAgent:    getEnv("CANVAS_AGENT_NAME", ""),
			TemplateAgent:  getEnv("SESSION_TEMPLATE_AGENT", getEnv("AGENT_NAME", "")),
			RequestTimeout: time.Duration(getEnvInt("AGENT_REQUEST_TIMEOUT_MS", 1200000)) * time.Millisecond,
		},
		CreateRetry: RetryConfig{
			Interval:    time.Duration(getEnvInt("AGENT_RETRY_INTERVAL_MS", 10000)) * time.Millisecond,
			Multiplier:  getEnvFloat("AGENT_RETRY_MULTIPLIER", 1.0),
			MaxInterval: time.Duration(getEnvInt("AGENT_RETRY_MAX_INTERVAL_MS", 60000)) * time.Millisecond,
			MaxElapsed:  time.Duration(getEnvInt("AGENT_RETRY_MAX_ELAPSED_MS", 1800000)) * time.Millisecond,
		},
		Poll: PollConfig{
			Interval: time.Duration(getEnvInt("AGENT_POLL_INTERVAL_MS", 2000)) * time.Millisecond,
			MaxWait:  time.Duration(getEnvInt("AGENT_POLL_MAX_WAIT_MS", 900000)) * time.Millisecond,
		},
		MarketData: MarketDataConfig{
			BaseURL:        strings.TrimSuffix(getEnv("MARKET_DATA_URL", "https://query1.finance.yahoo.com"), "/"),
			Timeout:        time.Duration(getEnvInt("MARKET_DATA_TIMEOUT_MS", 8000)) * time.Millisecond,
			RequestsPerSec: getEnvFloat("MARKET_DATA_RPS", 5),
			Burst:          getEnvInt("MARKET_DATA_BURST", 10),
		},
		PolicyFile:         getEnv("AGENT_POLICY_FILE", ""),
		MaxPromptLength:    getEnvInt("MAX_PROMPT_LENGTH", 16000),
		JobRefreshInterval: time.Duration(getEnvInt("JOB_REFRESH_INTERVAL_MS", 5000)) * time.Millisecond,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

// MockMode reports whether the in-process agent platform should be used.
func (c *Config) MockMode() bool {
	return strings.EqualFold(c.Mode, ModeMock)
}

// ApplyMockDefaults names the mock platform's agents when the environment
// leaves them unset.
func (c *Config) ApplyMockDefaults() {
	ap := &c.AgentPlatform
	if ap.DefaultAgent == "" {
		ap.DefaultAgent = "analyst"
	}
	if ap.CanvasAgent == "" {
		ap.CanvasAgent = "canvas"
	}
	if ap.TemplateAgent == "" {
		ap.TemplateAgent = ap.DefaultAgent
	}
}

// Validate checks that every value needed to reach the platform is present.
// All missing keys are reported together.
func (c AgentPlatformConfig) Validate() error {
	var result *multierror.Error
	var missing []string

	required := []struct {
		key   string
		value string
	}{
		{"AGENT_PLATFORM_URL", c.BaseURL},
		{"AGENT_PLATFORM_TOKEN", c.Token},
		{"AGENT_NAME", c.DefaultAgent},
		{"CANVAS_AGENT_NAME", c.CanvasAgent},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
			result = multierror.Append(result, errors.New(r.key+" is not set"))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return &apperrors.ConfigurationError{Missing: missing, Cause: err}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
