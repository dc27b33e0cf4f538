// Package provider is the Provider Adapter: it translates a
// (provider, mode, context) triple into an argument vector, and parses
// streaming output where a provider family requires it.
package provider

// Family groups providers that share a CLI shape.
type Family string

const (
	FamilyClaudeLike Family = "claude-like"
	FamilyCursorLike Family = "cursor-like"
	FamilyGeminiLike Family = "gemini-like"
)

// Template describes one provider's argument-vector shape. Argument
// lists contain placeholder tokens substituted by Render.
type Template struct {
	Key            string
	Family         Family
	Command        string
	OneshotArgs    []string
	ReplArgs       []string
	ForbidFlags    []string
	CreateChatArgs []string // cursor-like only
}

const (
	PlaceholderPrompt       = "{prompt}"
	PlaceholderSessionID    = "{session_id}"
	PlaceholderChatID       = "{chat_id}"
	PlaceholderSystemPrompt = "{system_prompt}"
	PlaceholderAllowedTools = "{allowed_tools}"
)

// Registry is a static map of known provider templates, analogous to the
// external config validator's provider schema but owned by the core for
// the handful of built-in families it must render argument vectors for.
type Registry struct {
	templates map[string]Template
}

func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]Template)}
}

func (r *Registry) Register(t Template) {
	r.templates[t.Key] = t
}

func (r *Registry) Lookup(key string) (Template, bool) {
	t, ok := r.templates[key]
	return t, ok
}

// DefaultRegistry returns a registry pre-populated with the three
// reference provider families.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Template{
		Key:         "claude",
		Family:      FamilyClaudeLike,
		Command:     "claude",
		OneshotArgs: []string{"-p", PlaceholderPrompt, "--session-id", PlaceholderSessionID, "--allowed-tools", PlaceholderAllowedTools},
		ReplArgs:    []string{"--resume", PlaceholderSessionID},
	})
	r.Register(Template{
		Key:            "cursor",
		Family:         FamilyCursorLike,
		Command:        "cursor-agent",
		OneshotArgs:    []string{"-p", PlaceholderPrompt, "--chat-id", PlaceholderChatID},
		ReplArgs:       []string{"--chat-id", PlaceholderChatID},
		ForbidFlags:    []string{"--force"},
		CreateChatArgs: []string{"create-chat"},
	})
	r.Register(Template{
		Key:         "gemini",
		Family:      FamilyGeminiLike,
		Command:     "gemini",
		OneshotArgs: []string{"-p", PlaceholderPrompt, "--system-prompt", PlaceholderSystemPrompt, "--allowed-tools", PlaceholderAllowedTools},
		ReplArgs:    []string{"--system-prompt", PlaceholderSystemPrompt},
	})
	return r
}
