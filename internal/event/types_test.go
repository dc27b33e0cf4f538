package event

import (
	"testing"
	"time"
)

var _ Event = ConfigEvent{}
var _ Event = RunEvent{}
var _ Event = BroadcastEvent{}
var _ Event = LogEvent{}

func TestNewConfigEvent(t *testing.T) {
	event := NewConfigEvent("agent", "/config/agents/example.json", "modified")

	if event.Type() != "config_modified" {
		t.Fatalf("expected config_modified, got %q", event.Type())
	}
	if event.ConfigType != "agent" {
		t.Fatalf("expected config type agent, got %q", event.ConfigType)
	}
	if event.Path != "/config/agents/example.json" {
		t.Fatalf("expected path, got %q", event.Path)
	}
	if event.ChangeType != "modified" {
		t.Fatalf("expected change type modified, got %q", event.ChangeType)
	}
	assertUTC(t, event.Timestamp())
}

func TestNewRunEvent(t *testing.T) {
	event := NewRunEvent("run_started", "project-1", "agent-1", "session-1")

	if event.Type() != "run_started" {
		t.Fatalf("expected run_started, got %q", event.Type())
	}
	if event.ProjectID != "project-1" {
		t.Fatalf("expected project ID, got %q", event.ProjectID)
	}
	if event.AgentID != "agent-1" {
		t.Fatalf("expected agent ID, got %q", event.AgentID)
	}
	if event.SessionID != "session-1" {
		t.Fatalf("expected session ID, got %q", event.SessionID)
	}
	assertUTC(t, event.Timestamp())
}

func TestNewBroadcastEvent(t *testing.T) {
	event := NewBroadcastEvent("broadcast_routed", "broadcast-1", "agent-1", "ok")

	if event.Type() != "broadcast_routed" {
		t.Fatalf("expected broadcast_routed, got %q", event.Type())
	}
	if event.BroadcastID != "broadcast-1" {
		t.Fatalf("expected broadcast ID, got %q", event.BroadcastID)
	}
	if event.TargetID != "agent-1" {
		t.Fatalf("expected target ID, got %q", event.TargetID)
	}
	if event.Outcome != "ok" {
		t.Fatalf("expected outcome ok, got %q", event.Outcome)
	}
	assertUTC(t, event.Timestamp())
}

func TestNewLogEvent(t *testing.T) {
	context := map[string]string{"terminal": "1"}
	event := NewLogEvent("info", "hello", context)

	if event.Type() != "log_entry" {
		t.Fatalf("expected log_entry, got %q", event.Type())
	}
	if event.Level != "info" {
		t.Fatalf("expected level info, got %q", event.Level)
	}
	if event.Message != "hello" {
		t.Fatalf("expected message hello, got %q", event.Message)
	}
	if event.Context["terminal"] != "1" {
		t.Fatalf("expected context terminal 1, got %q", event.Context["terminal"])
	}
	assertUTC(t, event.Timestamp())
}

func assertUTC(t *testing.T, value time.Time) {
	t.Helper()
	if value.IsZero() {
		t.Fatal("expected timestamp to be set")
	}
	if value.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", value.Location())
	}
}
