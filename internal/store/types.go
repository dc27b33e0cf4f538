package store

import "time"

type Project struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type Agent struct {
	ID           string
	ProjectID    string
	Name         string
	Role         string
	ProviderKey  string
	Model        string
	AllowedTools []string
	SystemPrompt string
	CreatedAt    time.Time
}

const (
	SessionActive  = "active"
	SessionExpired = "expired"
	SessionInvalid = "invalid"
)

type Session struct {
	ID                string
	ProjectID         string
	AgentID           string
	ProviderKey       string
	ProviderSessionID string
	Status            string
	CreatedAt         time.Time
	LastActivity      *time.Time
	// Metadata is an opaque sidecar of caller-supplied fields (e.g. the
	// REPL startup's working directory), round-tripped through YAML in
	// the sessions.metadata_json column. Nil unless a caller sets one.
	Metadata map[string]string
}

const (
	MessageSenderUser   = "user"
	MessageSenderAgent  = "agent"
	MessageSenderSystem = "system"
)

type Message struct {
	ID          string
	SessionID   string
	Sender      string
	Content     string
	BroadcastID string
	CreatedAt   time.Time
}

const (
	BroadcastModeOneshot = "oneshot"
	BroadcastModeRepl    = "repl"
)

type Broadcast struct {
	ID        string
	ProjectID string
	Mode      string
	Targets   []string
	CreatedAt time.Time
}

const (
	TaskStatusTodo  = "todo"
	TaskStatusDoing = "doing"
	TaskStatusDone  = "done"
)

type Task struct {
	ID              string
	ProjectID       string
	Title           string
	Status          string
	AssigneeAgentID string
	CreatedAt       time.Time
}

// AgentConfig is a single agent entry in a configuration snapshot, as
// produced by the external config validator.
type AgentConfig struct {
	Name         string
	Role         string
	ProviderKey  string
	Model        string
	AllowedTools []string
	SystemPrompt string
}

// ConfigSnapshot is the structured value ensure_project_from_config
// synchronizes against the store.
type ConfigSnapshot struct {
	ProjectName string
	Agents      []AgentConfig
}

// SessionFilter narrows list_sessions.
type SessionFilter struct {
	AgentID     string
	ProviderKey string
	Status      string
	Limit       int
	Offset      int
}
