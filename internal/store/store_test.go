package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"multiagents/internal/coreerr"
	"multiagents/internal/ids"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "store.sqlite3"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Init(db); err != nil {
		t.Fatalf("init: %v", err)
	}
	return New(db)
}

func TestEnsureProjectFromConfigIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	snapshot := ConfigSnapshot{
		ProjectName: "demo",
		Agents: []AgentConfig{
			{Name: "planner", Role: "planner", ProviderKey: "claude", Model: "sonnet", AllowedTools: []string{"read", "write"}},
		},
	}

	first, err := s.EnsureProjectFromConfig(ctx, snapshot)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}

	snapshot.Agents[0].Model = "opus"
	second, err := s.EnsureProjectFromConfig(ctx, snapshot)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected idempotent project id, got %q then %q", first.ID, second.ID)
	}

	agent, err := s.FindAgentByName(ctx, first.ID, "planner")
	if err != nil {
		t.Fatalf("find agent: %v", err)
	}
	if agent.Model != "opus" {
		t.Fatalf("expected updated model opus, got %q", agent.Model)
	}
}

func TestAgentNameUniquePerProject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	project, err := s.CreateProject(ctx, "demo")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := s.CreateAgent(ctx, Agent{ProjectID: project.ID, Name: "dup", Role: "worker", ProviderKey: "claude", Model: "sonnet"}); err != nil {
		t.Fatalf("create first agent: %v", err)
	}
	if _, err := s.CreateAgent(ctx, Agent{ProjectID: project.ID, Name: "dup", Role: "worker", ProviderKey: "claude", Model: "sonnet"}); err == nil {
		t.Fatal("expected duplicate agent name to fail")
	}
}

func TestProjectDeleteCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	project, err := s.CreateProject(ctx, "demo")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	agent, err := s.CreateAgent(ctx, Agent{ProjectID: project.ID, Name: "worker", Role: "worker", ProviderKey: "claude", Model: "sonnet"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	session, err := s.CreateSession(ctx, project.ID, agent.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, project.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}

	if _, err := s.FindAgentByID(ctx, agent.ID); err == nil {
		t.Fatal("expected agent to be cascade-deleted")
	}
	if _, err := s.FindSession(ctx, session.ID); err == nil {
		t.Fatal("expected session to be cascade-deleted")
	}
}

func TestSessionProviderKeyMatchesAgentAtCreation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	project, err := s.CreateProject(ctx, "demo")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	agent, err := s.CreateAgent(ctx, Agent{ProjectID: project.ID, Name: "worker", Role: "worker", ProviderKey: "gemini", Model: "pro"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	session, err := s.CreateSession(ctx, project.ID, agent.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.ProviderKey != agent.ProviderKey {
		t.Fatalf("expected session provider_key %q to match agent, got %q", agent.ProviderKey, session.ProviderKey)
	}
}

func TestCreateSessionWithMetadataRoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	project, err := s.CreateProject(ctx, "demo")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	agent, err := s.CreateAgent(ctx, Agent{ProjectID: project.ID, Name: "worker", Role: "worker", ProviderKey: "claude", Model: "sonnet"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}

	created, err := s.CreateSessionWithMetadata(ctx, project.ID, agent.ID, map[string]string{"workdir": "/srv/app"})
	if err != nil {
		t.Fatalf("create session with metadata: %v", err)
	}
	if created.Metadata["workdir"] != "/srv/app" {
		t.Fatalf("expected metadata echoed on create, got %v", created.Metadata)
	}

	found, err := s.FindSession(ctx, created.ID)
	if err != nil {
		t.Fatalf("find session: %v", err)
	}
	if found.Metadata["workdir"] != "/srv/app" {
		t.Fatalf("expected metadata to round-trip through storage, got %v", found.Metadata)
	}

	listed, err := s.ListSessions(ctx, project.ID, SessionFilter{})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(listed) != 1 || listed[0].Metadata["workdir"] != "/srv/app" {
		t.Fatalf("expected listed session to carry metadata, got %+v", listed)
	}
}

func TestTouchSessionAdvancesLastActivity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	project, _ := s.CreateProject(ctx, "demo")
	agent, _ := s.CreateAgent(ctx, Agent{ProjectID: project.ID, Name: "worker", Role: "worker", ProviderKey: "claude", Model: "sonnet"})
	session, _ := s.CreateSession(ctx, project.ID, agent.ID)

	if err := s.TouchSession(ctx, session.ID, "native-token-1"); err != nil {
		t.Fatalf("touch session: %v", err)
	}

	reloaded, err := s.FindSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("find session: %v", err)
	}
	if reloaded.ProviderSessionID != "native-token-1" {
		t.Fatalf("expected native token persisted, got %q", reloaded.ProviderSessionID)
	}
	if reloaded.LastActivity == nil {
		t.Fatal("expected last_activity to be set")
	}
	if reloaded.LastActivity.Before(reloaded.CreatedAt) {
		t.Fatalf("expected last_activity >= created_at")
	}
}

func TestCleanupExpiredSessionsAppliesTTL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	project, _ := s.CreateProject(ctx, "demo")
	agent, _ := s.CreateAgent(ctx, Agent{ProjectID: project.ID, Name: "worker", Role: "worker", ProviderKey: "claude", Model: "sonnet"})

	old := s.WithClock(ids.FixedClock{At: time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Millisecond)})
	staleSession, err := old.CreateSession(ctx, project.ID, agent.ID)
	if err != nil {
		t.Fatalf("create stale session: %v", err)
	}

	freshSession, err := s.CreateSession(ctx, project.ID, agent.ID)
	if err != nil {
		t.Fatalf("create fresh session: %v", err)
	}

	marked, err := s.CleanupExpiredSessions(ctx, time.Now().UTC(), 24*time.Hour, false)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if marked != 1 {
		t.Fatalf("expected exactly one session marked expired, got %d", marked)
	}

	stale, err := s.FindSession(ctx, staleSession.ID)
	if err != nil {
		t.Fatalf("find stale session: %v", err)
	}
	if stale.Status != SessionExpired {
		t.Fatalf("expected stale session expired, got %q", stale.Status)
	}

	fresh, err := s.FindSession(ctx, freshSession.ID)
	if err != nil {
		t.Fatalf("find fresh session: %v", err)
	}
	if fresh.Status != SessionActive {
		t.Fatalf("expected fresh session still active, got %q", fresh.Status)
	}
}

func TestInsertBroadcastWithMessagesSharesBroadcastID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	project, _ := s.CreateProject(ctx, "demo")
	agentA, _ := s.CreateAgent(ctx, Agent{ProjectID: project.ID, Name: "a", Role: "worker", ProviderKey: "claude", Model: "sonnet"})
	agentB, _ := s.CreateAgent(ctx, Agent{ProjectID: project.ID, Name: "b", Role: "worker", ProviderKey: "claude", Model: "sonnet"})
	sessionA, _ := s.CreateSession(ctx, project.ID, agentA.ID)
	sessionB, _ := s.CreateSession(ctx, project.ID, agentB.ID)

	broadcast, err := s.InsertBroadcastWithMessages(ctx, project.ID, BroadcastModeOneshot, "hello", []string{sessionA.ID, sessionB.ID})
	if err != nil {
		t.Fatalf("insert broadcast: %v", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM messages WHERE broadcast_id = ?`, broadcast.ID).Scan(&count); err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 messages sharing broadcast_id, got %d", count)
	}
}

func TestTaskCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	project, _ := s.CreateProject(ctx, "demo")
	agent, err := s.CreateAgent(ctx, Agent{ProjectID: project.ID, Name: "worker", Role: "worker", ProviderKey: "claude", Model: "sonnet"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}

	task, err := s.CreateTask(ctx, project.ID, "wire up metrics")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Status != TaskStatusTodo {
		t.Fatalf("expected new task status todo, got %q", task.Status)
	}

	if err := s.AssignTask(ctx, task.ID, agent.ID); err != nil {
		t.Fatalf("assign task: %v", err)
	}
	if err := s.UpdateTaskStatus(ctx, task.ID, TaskStatusDoing); err != nil {
		t.Fatalf("update task status: %v", err)
	}

	doing, err := s.ListTasks(ctx, project.ID, TaskStatusDoing)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(doing) != 1 || doing[0].ID != task.ID || doing[0].AssigneeAgentID != agent.ID {
		t.Fatalf("expected one assigned doing task, got %+v", doing)
	}

	done, err := s.ListTasks(ctx, project.ID, TaskStatusDone)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(done) != 0 {
		t.Fatalf("expected no done tasks, got %+v", done)
	}

	all, err := s.ListTasks(ctx, project.ID, "")
	if err != nil {
		t.Fatalf("list all tasks: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one task unfiltered, got %+v", all)
	}
}

func TestFindSessionMissingReturnsInvalidInput(t *testing.T) {
	s := newTestStore(t)
	_, err := s.FindSession(context.Background(), "does-not-exist")
	if coreerr.CodeOf(err) != coreerr.InvalidInput {
		t.Fatalf("expected invalid_input, got %v", coreerr.CodeOf(err))
	}
}
