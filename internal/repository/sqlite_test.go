package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestSQLiteStoreSessionAgents(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	agent := &domain.SessionAgent{
		SessionID:       "s1",
		ParentAgentName: "analyst",
		State:           domain.ProvisionStateProvisioning,
		CreatedAt:       time.Now(),
	}
	if err := store.UpsertSessionAgent(ctx, agent); err != nil {
		t.Fatalf("UpsertSessionAgent failed: %v", err)
	}

	readyAt := time.Now()
	agent.Name = "analyst-3"
	agent.State = domain.ProvisionStateReady
	agent.ReadyAt = &readyAt
	if err := store.UpsertSessionAgent(ctx, agent); err != nil {
		t.Fatalf("UpsertSessionAgent (update) failed: %v", err)
	}

	got, err := store.GetSessionAgent(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSessionAgent failed: %v", err)
	}
	if got == nil || got.Name != "analyst-3" || got.State != domain.ProvisionStateReady || got.ReadyAt == nil {
		t.Fatalf("unexpected session agent: %+v", got)
	}

	missing, err := store.GetSessionAgent(ctx, "nope")
	if err != nil {
		t.Fatalf("GetSessionAgent(missing) failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing session, got %+v", missing)
	}

	all, err := store.ListSessionAgents(ctx)
	if err != nil {
		t.Fatalf("ListSessionAgents failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 session, got %d", len(all))
	}
}

func TestSQLiteStoreJobAndEvents(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	job := &domain.JobRecord{
		JobID:     "resp_1",
		AgentName: "analyst",
		SessionID: "s1",
		Status:    domain.JobStatusPending,
		Prompt:    "hello",
	}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	if err := store.UpdateJob(ctx, "resp_1", domain.JobStatusCompleted, "done"); err != nil {
		t.Fatalf("UpdateJob failed: %v", err)
	}
	// A terminal status is never replaced; empty text keeps the stored one.
	if err := store.UpdateJob(ctx, "resp_1", domain.JobStatusProcessing, ""); err != nil {
		t.Fatalf("UpdateJob (late) failed: %v", err)
	}

	got, err := store.GetJob(ctx, "resp_1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got == nil || got.Status != domain.JobStatusCompleted || got.FinalText != "done" || got.SessionID != "s1" {
		t.Fatalf("unexpected job: %+v", got)
	}

	if err := store.UpdateJob(ctx, "missing", domain.JobStatusCompleted, ""); err == nil {
		t.Fatalf("expected error updating a missing job")
	}

	now := time.Now().UnixMilli()
	for i, typ := range []domain.EventType{domain.EventTypeJobCreated, domain.EventTypeJobStatusChanged, domain.EventTypeJobCompleted} {
		event := &domain.Event{
			EventID: "e" + string(rune('1'+i)),
			JobID:   "resp_1",
			Ts:      now + int64(i),
			Type:    typ,
			Payload: json.RawMessage(`{"to":"completed"}`),
		}
		if err := store.CreateEvent(ctx, event); err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
	}

	events, err := store.GetEvents(ctx, "resp_1", 0, []string{}, 10)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(events) != 3 || events[0].Type != domain.EventTypeJobCreated {
		t.Fatalf("unexpected events: %+v", events)
	}

	filtered, err := store.GetEvents(ctx, "resp_1", now, []string{string(domain.EventTypeJobCompleted)}, 0)
	if err != nil {
		t.Fatalf("GetEvents (filtered) failed: %v", err)
	}
	if len(filtered) != 1 {
		t.Fatalf("expected 1 filtered event, got %d", len(filtered))
	}
}

func TestSQLiteStoreListJobs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		sessionID := "s1"
		if id == "c" {
			sessionID = ""
		}
		job := &domain.JobRecord{
			JobID:     id,
			AgentName: "analyst",
			SessionID: sessionID,
			Status:    domain.JobStatusPending,
			Prompt:    "p",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.CreateJob(ctx, job); err != nil {
			t.Fatalf("CreateJob failed: %v", err)
		}
	}

	jobs, err := store.ListJobs(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(jobs) != 2 || jobs[0].JobID != "b" {
		t.Fatalf("unexpected session jobs: %+v", jobs)
	}

	if err := store.UpdateJob(ctx, "a", domain.JobStatusCompleted, "done"); err != nil {
		t.Fatalf("UpdateJob failed: %v", err)
	}
	active, err := store.ListActiveJobs(ctx, 0)
	if err != nil {
		t.Fatalf("ListActiveJobs failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active jobs, got %d", len(active))
	}

	all, err := store.ListJobs(ctx, "", 2)
	if err != nil {
		t.Fatalf("ListJobs (all) failed: %v", err)
	}
	if len(all) != 2 || all[0].JobID != "c" {
		t.Fatalf("unexpected jobs: %+v", all)
	}
}

func TestListActiveJobsRotatesByCheckTime(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		job := &domain.JobRecord{
			JobID:     id,
			AgentName: "analyst",
			Status:    domain.JobStatusProcessing,
			Prompt:    "p",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.CreateJob(ctx, job); err != nil {
			t.Fatalf("CreateJob failed: %v", err)
		}
	}

	first, err := store.ListActiveJobs(ctx, 2)
	if err != nil {
		t.Fatalf("ListActiveJobs failed: %v", err)
	}
	if len(first) != 2 || first[0].JobID != "a" || first[1].JobID != "b" {
		t.Fatalf("unexpected first batch: %+v", first)
	}
	for _, j := range first {
		if err := store.TouchJob(ctx, j.JobID); err != nil {
			t.Fatalf("TouchJob failed: %v", err)
		}
	}

	// The unchecked job comes before the ones just checked.
	second, err := store.ListActiveJobs(ctx, 2)
	if err != nil {
		t.Fatalf("ListActiveJobs failed: %v", err)
	}
	if len(second) != 2 || second[0].JobID != "c" || second[1].JobID != "a" {
		t.Fatalf("unexpected second batch: %+v", second)
	}
}
