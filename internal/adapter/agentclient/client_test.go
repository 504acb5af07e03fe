package agentclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/apperrors"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/config"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

func testPlatformConfig(baseURL string) config.AgentPlatformConfig {
	return config.AgentPlatformConfig{
		BaseURL:        baseURL,
		Token:          "secret",
		DefaultAgent:   "analyst",
		CanvasAgent:    "canvas",
		TemplateAgent:  "analyst",
		RequestTimeout: 5 * time.Second,
	}
}

func fastRetry() config.RetryConfig {
	return config.RetryConfig{Interval: 5 * time.Millisecond, Multiplier: 1, MaxElapsed: 2 * time.Second}
}

func fastPoll() config.PollConfig {
	return config.PollConfig{Interval: 5 * time.Millisecond, MaxWait: 2 * time.Second}
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	client, err := NewClient(testPlatformConfig(server.URL), fastRetry(), fastPoll())
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresConfiguration(t *testing.T) {
	_, err := NewClient(config.AgentPlatformConfig{BaseURL: "http://x"}, fastRetry(), fastPoll())

	var cfgErr *apperrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ElementsMatch(t, []string{"AGENT_PLATFORM_TOKEN", "AGENT_NAME", "CANVAS_AGENT_NAME"}, cfgErr.Missing)
}

func TestCreateResponseSendsPromptVerbatim(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody createRequest

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"resp_1","status":"completed","output":{"text":"done"}}`)
	}))

	prompt := "  Analyze AAPL\n\twith {json} & \"quotes\"  "
	job, err := client.CreateResponse(context.Background(), "analyst", prompt, CreateOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "/agents/analyst/responses", gotPath)
	assert.False(t, gotBody.Background)
	require.Len(t, gotBody.Input.Content, 1)
	assert.Equal(t, "text", gotBody.Input.Content[0].Type)
	assert.Equal(t, prompt, gotBody.Input.Content[0].Content)

	assert.Equal(t, "resp_1", job.ID)
	assert.Equal(t, "analyst", job.AgentName)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, "done", ExtractFinalResponse(job))
}

func TestCreateResponseRejectsEmptyInput(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	_, err := client.CreateResponse(context.Background(), "analyst", "   ", CreateOptions{})
	var inputErr *apperrors.InvalidInputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "prompt", inputErr.Field)

	_, err = client.CreateResponse(context.Background(), "", "hi", CreateOptions{})
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestCreateResponseBackgroundIsSingleCall(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.CreateResponse(context.Background(), "analyst", "hi", CreateOptions{Background: true})
	var remoteErr *apperrors.RemoteAgentError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusServiceUnavailable, remoteErr.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCreateResponseBackgroundReturnsJobAsCreated(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.True(t, req.Background)
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"id":"resp_bg","status":"queued"}`)
	}))

	job, err := client.CreateResponse(context.Background(), "analyst", "hi", CreateOptions{Background: true})
	require.NoError(t, err)
	assert.Equal(t, "resp_bg", job.ID)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Equal(t, "hi", job.Input)
}

func TestCreateResponseRetriesTransientFailures(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"id":"resp_1","status":"completed","output":{"text":"ok"}}`)
	}))

	job, err := client.CreateResponse(context.Background(), "analyst", "hi", CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCreateResponseStopsOnClientError(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusUnprocessableEntity} {
		var calls int32
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error":"nope"}`)
		}))

		_, err := client.CreateResponse(context.Background(), "analyst", "hi", CreateOptions{})
		var remoteErr *apperrors.RemoteAgentError
		require.ErrorAs(t, err, &remoteErr, "status %d", status)
		assert.Equal(t, status, remoteErr.Status)
		assert.Contains(t, remoteErr.Body, "nope")
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "status %d", status)
	}
}

func TestCreateResponseGivesUpAfterMaxElapsed(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	retry := config.RetryConfig{Interval: 10 * time.Millisecond, Multiplier: 1, MaxElapsed: 100 * time.Millisecond}
	client, err := NewClient(testPlatformConfig(server.URL), retry, fastPoll())
	require.NoError(t, err)

	started := time.Now()
	_, err = client.CreateResponse(context.Background(), "analyst", "hi", CreateOptions{})
	var remoteErr *apperrors.RemoteAgentError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusServiceUnavailable, remoteErr.Status)
	assert.Greater(t, atomic.LoadInt32(&calls), int32(1))
	assert.Less(t, time.Since(started), 2*time.Second)
}

func TestCreateResponseHonorsCancellation(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	retry := fastRetry()
	retry.MaxElapsed = 0
	client.retry = retry

	_, err := client.CreateResponse(ctx, "analyst", "hi", CreateOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCreateResponsePollsNonTerminalResult(t *testing.T) {
	var reads int32
	mux := http.NewServeMux()
	mux.HandleFunc("/agents/analyst/responses", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"resp_1","status":"processing"}`)
	})
	mux.HandleFunc("/agents/analyst/responses/resp_1", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&reads, 1) < 3 {
			_, _ = io.WriteString(w, `{"id":"resp_1","status":"processing"}`)
			return
		}
		_, _ = io.WriteString(w, `{"id":"resp_1","status":"completed","output":{"content":[{"type":"text","content":"late"}]}}`)
	})
	client := newTestClient(t, mux)

	job, err := client.CreateResponse(context.Background(), "analyst", "hi", CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, "late", ExtractFinalResponse(job))
	assert.Equal(t, int32(3), atomic.LoadInt32(&reads))
}

func TestGetResponseDecodesJob(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agents/analyst/responses/resp_9", r.URL.Path)
		_, _ = io.WriteString(w, `{
			"id":"resp_9","agent_name":"analyst","status":"failed",
			"input":{"content":[{"type":"text","content":"prompt text"}]},
			"error":{"message":"agent crashed"},
			"segments":null
		}`)
	}))

	job, err := client.GetResponse(context.Background(), "analyst", "resp_9")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Equal(t, "prompt text", job.Input)
	assert.Equal(t, "agent crashed", job.Error)
	assert.Nil(t, job.Segments)
}

func TestGetResponseMalformedPayload(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>oops</html>`)
	}))

	_, err := client.GetResponse(context.Background(), "analyst", "resp_9")
	var remoteErr *apperrors.RemoteAgentError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusOK, remoteErr.Status)
}

func TestListAgentsAcceptsArrayAndObject(t *testing.T) {
	for _, body := range []string{
		`[{"name":"analyst-1"},{"name":"analyst-2","parent":"analyst"},{"name":"other"}]`,
		`{"agents":[{"name":"analyst-1"},{"name":"analyst-2","parent":"analyst"},{"name":"other"}]}`,
	} {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "analyst-", r.URL.Query().Get("prefix"))
			_, _ = io.WriteString(w, body)
		}))

		agents, err := client.ListAgents(context.Background(), "analyst-")
		require.NoError(t, err)
		require.Len(t, agents, 2)
		assert.Equal(t, "analyst-1", agents[0].Name)
		assert.Equal(t, "analyst", agents[1].Parent)
	}
}

func TestGetFileRejectsTraversal(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler())

	_, err := client.GetFile(context.Background(), "canvas", "../secrets")
	var inputErr *apperrors.InvalidInputError
	assert.ErrorAs(t, err, &inputErr)
}

func TestGetFileDetectsContentType(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agents/canvas/files/site/index.html", r.URL.Path)
		w.Header()["Content-Type"] = nil
		_, _ = io.WriteString(w, "<!doctype html><html><body>hi</body></html>")
	}))

	file, err := client.GetFile(context.Background(), "canvas", "/site/index.html")
	require.NoError(t, err)
	assert.Equal(t, "site/index.html", file.Path)
	assert.Contains(t, file.ContentType, "text/html")
}
