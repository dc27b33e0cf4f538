package event

import "time"

// Event represents a typed event with an occurrence timestamp.
type Event interface {
	Type() string
	Timestamp() time.Time
}

// ConfigEvent captures config snapshot changes observed on disk.
type ConfigEvent struct {
	EventType  string
	ConfigType string
	Path       string
	ChangeType string
	OccurredAt time.Time
}

func NewConfigEvent(configType, path, changeType string) ConfigEvent {
	eventType := "config_" + changeType
	return ConfigEvent{
		EventType:  eventType,
		ConfigType: configType,
		Path:       path,
		ChangeType: changeType,
		OccurredAt: time.Now().UTC(),
	}
}

func (e ConfigEvent) Type() string {
	return e.EventType
}

func (e ConfigEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// RunEvent captures One-Shot Runner / REPL lifecycle transitions, for
// live subscribers (e.g. a supervising TUI); it is distinct from the
// per-agent NDJSON record the Event Log Writer appends to disk.
type RunEvent struct {
	EventType   string
	ProjectID   string
	AgentID     string
	SessionID   string
	BroadcastID string
	ExitCode    int
	DurationMS  int64
	OccurredAt  time.Time
}

func NewRunEvent(eventType, projectID, agentID, sessionID string) RunEvent {
	return RunEvent{
		EventType:  eventType,
		ProjectID:  projectID,
		AgentID:    agentID,
		SessionID:  sessionID,
		OccurredAt: time.Now().UTC(),
	}
}

func (e RunEvent) Type() string {
	return e.EventType
}

func (e RunEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// BroadcastEvent captures fan-out progress for a single target within a
// broadcast's shared correlation ID.
type BroadcastEvent struct {
	EventType   string
	BroadcastID string
	TargetID    string
	Outcome     string
	OccurredAt  time.Time
}

func NewBroadcastEvent(eventType, broadcastID, targetID, outcome string) BroadcastEvent {
	return BroadcastEvent{
		EventType:   eventType,
		BroadcastID: broadcastID,
		TargetID:    targetID,
		Outcome:     outcome,
		OccurredAt:  time.Now().UTC(),
	}
}

func (e BroadcastEvent) Type() string {
	return e.EventType
}

func (e BroadcastEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// LogEvent wraps log data for streaming.
type LogEvent struct {
	EventType  string
	Level      string
	Message    string
	Context    map[string]string
	OccurredAt time.Time
}

func NewLogEvent(level, message string, context map[string]string) LogEvent {
	return LogEvent{
		EventType:  "log_entry",
		Level:      level,
		Message:    message,
		Context:    context,
		OccurredAt: time.Now().UTC(),
	}
}

func (e LogEvent) Type() string {
	return e.EventType
}

func (e LogEvent) Timestamp() time.Time {
	return e.OccurredAt
}
