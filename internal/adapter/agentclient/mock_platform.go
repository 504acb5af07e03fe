package agentclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

// MockOptions tunes the behavior of MockPlatform.
type MockOptions struct {
	// PollsUntilDone is the number of reads a background job reports as
	// processing before it completes.
	PollsUntilDone int
	// TransientCreateFailures makes the first N blocking creates answer 503.
	TransientCreateFailures int
	// BlockingDelay is how long a blocking create is held open.
	BlockingDelay time.Duration
	// ReleaseBlocking makes a blocking create answer with the unfinished job,
	// leaving the caller to poll it like a background job.
	ReleaseBlocking bool
	// RemixDelay is how long a remix call is held open.
	RemixDelay time.Duration
	// Agents are pre-registered agent names.
	Agents []string
}

// MockPlatform is an in-memory implementation of the agent platform HTTP API.
// It backs FINDASH_MODE=MOCK and the tests.
type MockPlatform struct {
	mu      sync.Mutex
	opts    MockOptions
	jobs    map[string]*mockJob
	agents  map[string]domain.Agent
	e       *echo.Echo
	creates int
	remixes int
	gets    int
}

type mockJob struct {
	wire  wireJob
	reads int
}

// NewMockPlatform creates a mock platform.
func NewMockPlatform(opts MockOptions) *MockPlatform {
	m := &MockPlatform{
		opts:   opts,
		jobs:   make(map[string]*mockJob),
		agents: make(map[string]domain.Agent),
	}
	for _, name := range opts.Agents {
		m.agents[name] = domain.Agent{Name: name, CreatedAt: time.Now()}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(m.requireToken)
	e.GET("/agents", m.listAgents)
	e.POST("/agents/:name/remix", m.remix)
	e.POST("/agents/:name/responses", m.createResponse)
	e.GET("/agents/:name/responses/:id", m.getResponse)
	e.GET("/agents/:name/files/*", m.getFile)
	m.e = e
	return m
}

// ServeHTTP implements http.Handler.
func (m *MockPlatform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.e.ServeHTTP(w, r)
}

// CreateCalls returns the number of create requests received.
func (m *MockPlatform) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates
}

// RemixCalls returns the number of remix requests received.
func (m *MockPlatform) RemixCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remixes
}

// GetCalls returns the number of job reads received.
func (m *MockPlatform) GetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}

// AddAgent registers an agent.
func (m *MockPlatform) AddAgent(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[name] = domain.Agent{Name: name, CreatedAt: time.Now()}
}

func (m *MockPlatform) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !strings.HasPrefix(c.Request().Header.Get("Authorization"), "Bearer ") {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
		}
		return next(c)
	}
}

func (m *MockPlatform) listAgents(c echo.Context) error {
	prefix := c.QueryParam("prefix")

	m.mu.Lock()
	list := make([]domain.Agent, 0, len(m.agents))
	for name, a := range m.agents {
		if strings.HasPrefix(name, prefix) {
			list = append(list, a)
		}
	}
	m.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return c.JSON(http.StatusOK, list)
}

func (m *MockPlatform) remix(c echo.Context) error {
	template := c.Param("name")
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}

	m.mu.Lock()
	m.remixes++
	delay := m.opts.RemixDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[template]; !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "template not found"})
	}
	if _, ok := m.agents[req.Name]; ok {
		return c.JSON(http.StatusConflict, map[string]string{"error": "agent already exists"})
	}
	agent := domain.Agent{Name: req.Name, Parent: template, CreatedAt: time.Now()}
	m.agents[req.Name] = agent
	return c.JSON(http.StatusCreated, agent)
}

func (m *MockPlatform) createResponse(c echo.Context) error {
	name := c.Param("name")
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	prompt := ""
	if len(req.Input.Content) > 0 {
		prompt = req.Input.Content[0].Content
	}

	m.mu.Lock()
	m.creates++
	if _, ok := m.agents[name]; !ok {
		m.mu.Unlock()
		return c.JSON(http.StatusNotFound, map[string]string{"error": "agent not found"})
	}
	if !req.Background && m.opts.TransientCreateFailures > 0 {
		m.opts.TransientCreateFailures--
		m.mu.Unlock()
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "agent busy"})
	}

	now := time.Now().UTC()
	input, _ := json.Marshal(req.Input)
	job := &mockJob{wire: wireJob{
		ID:        "resp_" + uuid.New().String()[:8],
		AgentName: name,
		Status:    string(domain.JobStatusPending),
		Input:     input,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	m.jobs[job.wire.ID] = job
	delay := m.opts.BlockingDelay
	m.mu.Unlock()

	if req.Background {
		return c.JSON(http.StatusAccepted, job.wire)
	}
	if m.opts.ReleaseBlocking {
		return c.JSON(http.StatusOK, job.wire)
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	complete(job, prompt)
	return c.JSON(http.StatusOK, job.wire)
}

func (m *MockPlatform) getResponse(c echo.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++

	job, ok := m.jobs[c.Param("id")]
	if !ok || job.wire.AgentName != c.Param("name") {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "response not found"})
	}

	if !domain.JobStatus(job.wire.Status).IsTerminal() {
		job.reads++
		if job.reads > m.opts.PollsUntilDone {
			complete(job, inputText(job.wire.Input))
		} else {
			job.wire.Status = string(domain.JobStatusProcessing)
			job.wire.UpdatedAt = time.Now().UTC()
		}
	}
	return c.JSON(http.StatusOK, job.wire)
}

func (m *MockPlatform) getFile(c echo.Context) error {
	path := c.Param("*")
	m.mu.Lock()
	_, ok := m.agents[c.Param("name")]
	m.mu.Unlock()
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "agent not found"})
	}

	switch path {
	case "index.html", "canvas/index.html":
		return c.HTML(http.StatusOK, "<!doctype html><html><head><title>Canvas</title></head><body><h1>Market canvas</h1><p>Generated by the mock platform.</p></body></html>")
	case "data.json":
		return c.JSON(http.StatusOK, map[string]interface{}{"generated_at": time.Now().UTC(), "items": []string{}})
	}
	return c.JSON(http.StatusNotFound, map[string]string{"error": "file not found"})
}

func complete(job *mockJob, prompt string) {
	output, _ := json.Marshal(map[string]interface{}{
		"content": []domain.ContentItem{{
			Type:    "text",
			Content: fmt.Sprintf("Mock analysis for: %s", prompt),
		}},
	})
	job.wire.Status = string(domain.JobStatusCompleted)
	job.wire.Output = output
	job.wire.UpdatedAt = time.Now().UTC()
}
