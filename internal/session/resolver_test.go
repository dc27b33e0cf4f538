package session

import (
	"context"
	"testing"
	"time"

	"multiagents/internal/coreerr"
	"multiagents/internal/provider"
	"multiagents/internal/store"
)

type fakeStore struct {
	sessions map[string]store.Session
	agents   map[string]store.Agent
	created  int
	statuses []string
	touched  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: map[string]store.Session{}, agents: map[string]store.Agent{}}
}

func (f *fakeStore) FindSession(ctx context.Context, id string) (store.Session, error) {
	sess, ok := f.sessions[id]
	if !ok {
		return store.Session{}, coreerr.New(coreerr.InvalidInput, "session not found: "+id)
	}
	return sess, nil
}

func (f *fakeStore) CreateSession(ctx context.Context, projectID, agentID string) (store.Session, error) {
	return f.CreateSessionWithMetadata(ctx, projectID, agentID, nil)
}

func (f *fakeStore) CreateSessionWithMetadata(ctx context.Context, projectID, agentID string, metadata map[string]string) (store.Session, error) {
	f.created++
	sess := store.Session{ID: "sess-new", ProjectID: projectID, AgentID: agentID, Status: store.SessionActive, Metadata: metadata}
	f.sessions[sess.ID] = sess
	return sess, nil
}

func (f *fakeStore) FindAgentByID(ctx context.Context, id string) (store.Agent, error) {
	agent, ok := f.agents[id]
	if !ok {
		return store.Agent{}, coreerr.New(coreerr.InvalidInput, "agent not found: "+id)
	}
	return agent, nil
}

func (f *fakeStore) TouchSession(ctx context.Context, id, providerSessionID string) error {
	f.touched = append(f.touched, id)
	sess := f.sessions[id]
	sess.ProviderSessionID = providerSessionID
	f.sessions[id] = sess
	return nil
}

func (f *fakeStore) MarkSessionStatus(ctx context.Context, id, status string) error {
	f.statuses = append(f.statuses, status)
	sess := f.sessions[id]
	sess.Status = status
	f.sessions[id] = sess
	return nil
}

func TestResolveCreatesNewSessionWhenNoConversationID(t *testing.T) {
	fs := newFakeStore()
	fs.agents["agent-1"] = store.Agent{ID: "agent-1", ProviderKey: "claude"}
	r := New(fs, provider.DefaultRegistry())

	target, err := r.Resolve(context.Background(), "proj-1", "agent-1", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if target.Session.ID != "sess-new" || fs.created != 1 {
		t.Fatalf("expected a freshly created session, got %+v", target.Session)
	}
}

func TestResolveLoadsExistingSessionByConversationID(t *testing.T) {
	fs := newFakeStore()
	fs.agents["agent-1"] = store.Agent{ID: "agent-1", ProviderKey: "claude"}
	fs.sessions["sess-1"] = store.Session{ID: "sess-1", AgentID: "agent-1", Status: store.SessionActive}
	r := New(fs, provider.DefaultRegistry())

	target, err := r.Resolve(context.Background(), "proj-1", "", "sess-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if target.Session.ID != "sess-1" || fs.created != 0 {
		t.Fatalf("expected the existing session reused, got %+v", target.Session)
	}
}

func TestResolveMissingConversationIDReturnsInvalidInput(t *testing.T) {
	fs := newFakeStore()
	r := New(fs, provider.DefaultRegistry())

	_, err := r.Resolve(context.Background(), "proj-1", "", "does-not-exist")
	if coreerr.CodeOf(err) != coreerr.InvalidInput {
		t.Fatalf("expected invalid_input, got %v", coreerr.CodeOf(err))
	}
}

func TestHandleProviderOutcomeMintsNewTokenAndReactivates(t *testing.T) {
	fs := newFakeStore()
	fs.agents["agent-1"] = store.Agent{ID: "agent-1", ProviderKey: "claude"}
	fs.sessions["sess-1"] = store.Session{ID: "sess-1", AgentID: "agent-1", Status: store.SessionActive, ProviderSessionID: "stale"}
	r := New(fs, provider.DefaultRegistry())

	target := Target{Session: fs.sessions["sess-1"], Agent: fs.agents["agent-1"]}
	updated, err := r.HandleProviderOutcome(context.Background(), target)
	if err != nil {
		t.Fatalf("handle outcome: %v", err)
	}
	if updated.Session.ID != "sess-1" {
		t.Fatal("expected conversation id to remain stable")
	}
	if updated.Session.ProviderSessionID == "stale" || updated.Session.ProviderSessionID == "" {
		t.Fatalf("expected a new native token, got %q", updated.Session.ProviderSessionID)
	}
	if updated.Session.Status != store.SessionActive {
		t.Fatalf("expected session reactivated, got %q", updated.Session.Status)
	}
	if len(fs.statuses) != 2 || fs.statuses[0] != store.SessionInvalid || fs.statuses[1] != store.SessionActive {
		t.Fatalf("expected invalid-then-active transition, got %v", fs.statuses)
	}
}

func TestHandleProviderOutcomeSurfacesCreateChatTimeoutAsTimeout(t *testing.T) {
	fs := newFakeStore()
	fs.agents["agent-1"] = store.Agent{ID: "agent-1", ProviderKey: "slow-cursor"}
	fs.sessions["sess-1"] = store.Session{ID: "sess-1", AgentID: "agent-1", Status: store.SessionActive, ProviderSessionID: "stale"}

	registry := provider.NewRegistry()
	registry.Register(provider.Template{
		Key:            "slow-cursor",
		Family:         provider.FamilyCursorLike,
		Command:        "sleep",
		CreateChatArgs: []string{"1"},
	})
	r := NewWithCreateChatTimeout(fs, registry, 10*time.Millisecond)

	target := Target{Session: fs.sessions["sess-1"], Agent: fs.agents["agent-1"]}
	updated, err := r.HandleProviderOutcome(context.Background(), target)
	if coreerr.CodeOf(err) != coreerr.Timeout {
		t.Fatalf("expected timeout, got %v (err=%v)", coreerr.CodeOf(err), err)
	}
	if len(fs.touched) != 0 {
		t.Fatalf("expected the timeout sentinel never persisted via TouchSession, got %v", fs.touched)
	}
	if updated.Session.Status != store.SessionInvalid {
		t.Fatalf("expected session left invalid rather than reactivated, got %q", updated.Session.Status)
	}
}

func TestResolveWithTimeoutClassifiesDeadlineAsTimeout(t *testing.T) {
	fs := newFakeStore()
	r := New(fs, provider.DefaultRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.ResolveWithTimeout(ctx, "proj-1", "", "missing", time.Millisecond)
	if coreerr.CodeOf(err) != coreerr.Timeout {
		t.Fatalf("expected timeout, got %v (err=%v)", coreerr.CodeOf(err), err)
	}
}
