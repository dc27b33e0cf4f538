package provider

import (
	"reflect"
	"strings"
	"testing"
)

func TestRenderClaudeOneshotDropsMissingSessionID(t *testing.T) {
	reg := DefaultRegistry()
	tmpl, ok := reg.Lookup("claude")
	if !ok {
		t.Fatal("expected claude template")
	}

	args := Render(tmpl, "oneshot", Context{Prompt: "hello"})
	joined := strings.Join(args, " ")
	if strings.Contains(joined, "--session-id") {
		t.Fatalf("expected --session-id pair dropped when session id absent, got %q", joined)
	}
	if !strings.Contains(joined, "hello") {
		t.Fatalf("expected prompt substituted, got %q", joined)
	}
}

func TestRenderClaudeOneshotKeepsSessionIDWhenPresent(t *testing.T) {
	reg := DefaultRegistry()
	tmpl, _ := reg.Lookup("claude")

	args := Render(tmpl, "oneshot", Context{Prompt: "hello", SessionID: "abc123"})
	// allowed-tools with no value also drops its flag pair.
	want := []string{"claude", "-p", "hello", "--session-id", "abc123"}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("expected %v, got %v", want, args)
	}
}

func TestRenderCursorForcesStreamJSON(t *testing.T) {
	reg := DefaultRegistry()
	tmpl, _ := reg.Lookup("cursor")

	args := Render(tmpl, "oneshot", Context{Prompt: "hi", ChatID: "chat-1"})
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--output-format stream-json") {
		t.Fatalf("expected forced stream-json, got %q", joined)
	}
}

func TestRenderCursorReplDoesNotForceStreamJSON(t *testing.T) {
	reg := DefaultRegistry()
	tmpl, _ := reg.Lookup("cursor")

	args := Render(tmpl, "repl", Context{ChatID: "chat-1"})
	joined := strings.Join(args, " ")
	if strings.Contains(joined, "stream-json") {
		t.Fatalf("expected repl mode to not force stream-json, got %q", joined)
	}
}

func TestSyntheticSessionIDPerFamily(t *testing.T) {
	if got := SyntheticSessionID(FamilyClaudeLike); !strings.HasPrefix(got, "valid_session_") {
		t.Fatalf("expected valid_session_ prefix, got %q", got)
	}
	if got := SyntheticSessionID(FamilyGeminiLike); !strings.HasPrefix(got, "valid_context_") {
		t.Fatalf("expected valid_context_ prefix, got %q", got)
	}
	if got := SyntheticSessionID(FamilyCursorLike); got == "" {
		t.Fatal("expected a non-empty synthetic id for cursor-like")
	}
}
