// Package eventlog is the Event Log Writer: it appends structured JSON
// records to per-project, per-role NDJSON files, stripping terminal
// escape sequences and enforcing UTF-8.
package eventlog

import "multiagents/internal/ids"

const (
	DirectionUser   = "user"
	DirectionAgent  = "agent"
	DirectionSystem = "system"

	EventStart      = "start"
	EventStdoutLine = "stdout_line"
	EventStderrLine = "stderr_line"
	EventEnd        = "end"
	EventRouted     = "routed"
)

// Record is a single NDJSON line appended to logs/{project}/{role}.ndjson.
type Record struct {
	TS          string `json:"ts"`
	Level       string `json:"level"`
	ProjectID   string `json:"project_id"`
	AgentRole   string `json:"agent_role"`
	AgentID     string `json:"agent_id"`
	Provider    string `json:"provider"`
	SessionID   string `json:"session_id,omitempty"`
	BroadcastID string `json:"broadcast_id,omitempty"`
	MessageID   string `json:"message_id,omitempty"`
	Direction   string `json:"direction"`
	Event       string `json:"event"`
	Text        string `json:"text,omitempty"`
	DurMS       *int64 `json:"dur_ms,omitempty"`
	ExitCode    *int   `json:"exit_code,omitempty"`
}

// NewRecord stamps a record with the current timestamp and a sensible
// default level.
func NewRecord(projectID, role, agentID, provider, direction, eventType string) Record {
	return Record{
		TS:        ids.FormatTimestamp(ids.SystemClock{}.Now()),
		Level:     "info",
		ProjectID: projectID,
		AgentRole: role,
		AgentID:   agentID,
		Provider:  provider,
		Direction: direction,
		Event:     eventType,
	}
}

func intPtr(v int) *int {
	return &v
}

func durPtr(v int64) *int64 {
	return &v
}

// WithExitCode attaches the required exit_code field for an "end" event.
func (r Record) WithExitCode(code int) Record {
	r.ExitCode = intPtr(code)
	return r
}

// WithDuration attaches dur_ms.
func (r Record) WithDuration(ms int64) Record {
	r.DurMS = durPtr(ms)
	return r
}

// WithText attaches the (escape-stripped) text payload.
func (r Record) WithText(text string) Record {
	r.Text = StripEscapeSequences(text)
	return r
}

// WithCorrelation attaches the optional session/broadcast/message
// correlation identifiers.
func (r Record) WithCorrelation(sessionID, broadcastID, messageID string) Record {
	r.SessionID = sessionID
	r.BroadcastID = broadcastID
	r.MessageID = messageID
	return r
}
