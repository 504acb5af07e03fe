package agentclient

import (
	"bytes"
	"io"
	"log"
	"net/http"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/config"
)

const mockBaseURL = "http://agents.mock"

// NewPlatform creates the agent platform client for cfg. In mock mode the
// client talks to an in-process MockPlatform; otherwise the configuration must
// be complete.
func NewPlatform(cfg *config.Config) (Platform, error) {
	if cfg.MockMode() {
		log.Printf("%s=%s detected, using in-process mock agent platform", config.EnvMode, config.ModeMock)
		mock := NewMockPlatform(MockOptions{
			PollsUntilDone: 2,
			Agents:         mockAgentNames(cfg.AgentPlatform),
		})
		return NewHandlerClient(mock, cfg.CreateRetry, cfg.Poll), nil
	}
	client, err := NewClient(cfg.AgentPlatform, cfg.CreateRetry, cfg.Poll)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// NewHandlerClient creates a client whose requests are served in-process by h.
func NewHandlerClient(h http.Handler, retry config.RetryConfig, poll config.PollConfig) *Client {
	return &Client{
		baseURL:    mockBaseURL,
		token:      "mock-token",
		httpClient: &http.Client{Transport: handlerTransport{h: h}},
		retry:      retry,
		poll:       poll,
	}
}

func mockAgentNames(cfg config.AgentPlatformConfig) []string {
	names := []string{"analyst", "canvas"}
	for _, n := range []string{cfg.DefaultAgent, cfg.CanvasAgent, cfg.TemplateAgent} {
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}

// handlerTransport serves requests with an http.Handler instead of the network.
type handlerTransport struct {
	h http.Handler
}

func (t handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	w := &bufferedResponse{header: make(http.Header), status: http.StatusOK}
	t.h.ServeHTTP(w, req)
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	return &http.Response{
		Status:        http.StatusText(w.status),
		StatusCode:    w.status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        w.header,
		Body:          io.NopCloser(bytes.NewReader(w.body.Bytes())),
		ContentLength: int64(w.body.Len()),
		Request:       req,
	}, nil
}

type bufferedResponse struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func (w *bufferedResponse) Header() http.Header { return w.header }

func (w *bufferedResponse) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
}

func (w *bufferedResponse) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.body.Write(p)
}
