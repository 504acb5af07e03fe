package agentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/apperrors"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/config"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/metrics"
)

const maxErrorBody = 512

// Client is an HTTP client for the agent platform.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retry      config.RetryConfig
	poll       config.PollConfig
}

// NewClient creates a new agent platform client. It refuses an incomplete
// configuration with a ConfigurationError.
func NewClient(cfg config.AgentPlatformConfig, retry config.RetryConfig, poll config.PollConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 20 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout, // the blocking create is held open until the job ends
		},
		retry: retry,
		poll:  poll,
	}, nil
}

// createRequest is the body of POST /agents/{name}/responses.
type createRequest struct {
	Input      createInput `json:"input"`
	Background bool        `json:"background"`
}

type createInput struct {
	Content []domain.ContentItem `json:"content"`
}

// wireJob is the job representation used by the platform.
type wireJob struct {
	ID        string          `json:"id"`
	AgentName string          `json:"agent_name"`
	Status    string          `json:"status"`
	Input     json.RawMessage `json:"input"`
	Output    json.RawMessage `json:"output"`
	Segments  json.RawMessage `json:"segments"`
	Error     json.RawMessage `json:"error"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CreateResponse submits prompt to agentName. In background mode the job is
// returned as created; otherwise the call waits for a terminal job, retrying
// the creation on transient failures.
func (c *Client) CreateResponse(ctx context.Context, agentName, prompt string, opts CreateOptions) (*domain.AgentJob, error) {
	if strings.TrimSpace(agentName) == "" {
		return nil, apperrors.InvalidInput("agent_name", "is required")
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, apperrors.InvalidInput("prompt", "is required")
	}

	if opts.Background {
		job, err := c.createOnce(ctx, agentName, prompt, true)
		if err != nil {
			metrics.CreateAttempts.WithLabelValues("error").Inc()
			return nil, err
		}
		metrics.CreateAttempts.WithLabelValues("ok").Inc()
		return job, nil
	}

	return c.createAndAwait(ctx, agentName, prompt)
}

func (c *Client) createOnce(ctx context.Context, agentName, prompt string, background bool) (*domain.AgentJob, error) {
	body := createRequest{
		Input:      createInput{Content: []domain.ContentItem{{Type: "text", Content: prompt}}},
		Background: background,
	}

	data, status, err := c.do(ctx, "create response", http.MethodPost, c.agentPath(agentName, "responses"), body)
	if err != nil {
		return nil, err
	}

	job, err := decodeJob(data)
	if err != nil {
		return nil, &apperrors.RemoteAgentError{Op: "create response", Status: status, Body: "malformed job payload", Cause: err}
	}
	if job.AgentName == "" {
		job.AgentName = agentName
	}
	if job.Input == "" {
		job.Input = prompt
	}
	return job, nil
}

// GetResponse reads the current snapshot of a job.
func (c *Client) GetResponse(ctx context.Context, agentName, jobID string) (*domain.AgentJob, error) {
	if strings.TrimSpace(agentName) == "" || strings.TrimSpace(jobID) == "" {
		return nil, apperrors.InvalidInput("job", "agent name and job id are required")
	}

	data, status, err := c.do(ctx, "get response", http.MethodGet, c.agentPath(agentName, "responses", jobID), nil)
	if err != nil {
		return nil, err
	}

	job, err := decodeJob(data)
	if err != nil {
		return nil, &apperrors.RemoteAgentError{Op: "get response", Status: status, Body: "malformed job payload", Cause: err}
	}
	if job.AgentName == "" {
		job.AgentName = agentName
	}
	return job, nil
}

// PollResponse waits for a job to reach a terminal status. Zero options fall
// back to the configured poll defaults.
func (c *Client) PollResponse(ctx context.Context, agentName, jobID string, opts PollOptions) (*domain.AgentJob, error) {
	if opts.Interval <= 0 {
		opts.Interval = c.poll.Interval
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = c.poll.MaxWait
	}
	return Poll(ctx, c, agentName, jobID, opts)
}

// ListAgents lists agents whose name starts with prefix.
func (c *Client) ListAgents(ctx context.Context, prefix string) ([]domain.Agent, error) {
	path := "/agents"
	if prefix != "" {
		path += "?prefix=" + url.QueryEscape(prefix)
	}

	data, status, err := c.do(ctx, "list agents", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, &apperrors.RemoteAgentError{Op: "list agents", Status: status, Body: "malformed agent list"}
	}

	list := gjson.ParseBytes(data)
	if list.IsObject() {
		list = list.Get("agents")
	}

	var agents []domain.Agent
	list.ForEach(func(_, item gjson.Result) bool {
		name := item.Get("name").String()
		if name == "" || !strings.HasPrefix(name, prefix) {
			return true
		}
		agents = append(agents, domain.Agent{
			Name:      name,
			Parent:    firstString(item, "parent", "parent_agent_name", "remixed_from"),
			CreatedAt: item.Get("created_at").Time(),
		})
		return true
	})
	return agents, nil
}

// RemixAgent clones template into a new agent called name.
func (c *Client) RemixAgent(ctx context.Context, template, name string) (*domain.Agent, error) {
	if strings.TrimSpace(template) == "" || strings.TrimSpace(name) == "" {
		return nil, apperrors.InvalidInput("remix", "template and name are required")
	}

	data, _, err := c.do(ctx, "remix agent", http.MethodPost, c.agentPath(template, "remix"), map[string]string{"name": name})
	if err != nil {
		return nil, err
	}

	agent := &domain.Agent{Name: name, Parent: template, CreatedAt: time.Now()}
	if gjson.ValidBytes(data) {
		res := gjson.ParseBytes(data)
		if n := res.Get("name").String(); n != "" {
			agent.Name = n
		}
		if t := res.Get("created_at").Time(); !t.IsZero() {
			agent.CreatedAt = t
		}
	}
	return agent, nil
}

// GetFile reads a file published by an agent's workspace.
func (c *Client) GetFile(ctx context.Context, agentName, path string) (*File, error) {
	path = strings.TrimPrefix(path, "/")
	if strings.TrimSpace(agentName) == "" || path == "" {
		return nil, apperrors.InvalidInput("file", "agent name and path are required")
	}
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return nil, apperrors.InvalidInput("path", "must not leave the workspace")
		}
	}

	req, err := c.newRequest(ctx, http.MethodGet, c.agentPath(agentName, "files")+"/"+escapePath(path), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperrors.RemoteAgentError{Op: "get file", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperrors.RemoteAgentError{Op: "get file", Status: resp.StatusCode, Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apperrors.RemoteAgentError{Op: "get file", Status: resp.StatusCode, Body: truncate(string(body), maxErrorBody)}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	return &File{Path: path, ContentType: contentType, Body: body}, nil
}

// do executes a JSON request and returns the body of a 2xx answer. Transport
// failures and other statuses come back as RemoteAgentError.
func (c *Client) do(ctx context.Context, op, method, path string, payload interface{}) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &apperrors.RemoteAgentError{Op: op, Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &apperrors.RemoteAgentError{Op: op, Status: resp.StatusCode, Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &apperrors.RemoteAgentError{Op: op, Status: resp.StatusCode, Body: truncate(string(data), maxErrorBody)}
	}
	return data, resp.StatusCode, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) agentPath(agentName string, parts ...string) string {
	segs := make([]string, 0, len(parts)+2)
	segs = append(segs, "agents", url.PathEscape(agentName))
	for _, p := range parts {
		segs = append(segs, url.PathEscape(p))
	}
	return "/" + strings.Join(segs, "/")
}

func decodeJob(data []byte) (*domain.AgentJob, error) {
	var w wireJob
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	if w.ID == "" {
		return nil, errors.New("job id missing")
	}

	job := &domain.AgentJob{
		ID:        w.ID,
		AgentName: w.AgentName,
		Status:    normalizeStatus(w.Status),
		Input:     inputText(w.Input),
		Output:    nonNull(w.Output),
		Segments:  nonNull(w.Segments),
		Error:     errorText(w.Error),
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
	return job, nil
}

// normalizeStatus maps the platform's status vocabulary onto JobStatus.
func normalizeStatus(s string) domain.JobStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "queued", "created", "":
		return domain.JobStatusPending
	case "processing", "running", "in_progress":
		return domain.JobStatusProcessing
	case "completed", "complete", "succeeded", "done":
		return domain.JobStatusCompleted
	case "failed", "error":
		return domain.JobStatusFailed
	case "cancelled", "canceled":
		return domain.JobStatusCancelled
	}
	return domain.JobStatusProcessing
}

func inputText(raw json.RawMessage) string {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return ""
	}
	in := gjson.ParseBytes(raw)
	if in.Type == gjson.String {
		return in.String()
	}
	var parts []string
	in.Get("content").ForEach(func(_, item gjson.Result) bool {
		if s := firstString(item, "content", "text"); s != "" {
			parts = append(parts, s)
		}
		return true
	})
	return strings.Join(parts, "\n")
}

func errorText(raw json.RawMessage) string {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return ""
	}
	e := gjson.ParseBytes(raw)
	if e.IsObject() {
		return firstString(e, "message", "detail", "code")
	}
	if e.Type == gjson.Null {
		return ""
	}
	return e.String()
}

func nonNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}

func firstString(r gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := r.Get(k); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
