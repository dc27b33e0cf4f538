// Package router is the Message Router: it expands a target expression
// into a deduplicated list of agents and emits a routed event per target.
package router

import (
	"context"
	"strings"

	"multiagents/internal/coreerr"
	"multiagents/internal/eventlog"
	"multiagents/internal/ids"
	"multiagents/internal/store"
)

const TargetAll = "@all"

// Store narrows *store.Store to what the router needs.
type Store interface {
	ListAgentsByRole(ctx context.Context, projectID, role string) ([]store.Agent, error)
	FindAgentByName(ctx context.Context, projectID, name string) (store.Agent, error)
	FindSession(ctx context.Context, id string) (store.Session, error)
}

// Target is one resolved routing destination: either an agent (message
// goes to whichever session the caller resolves for it) or an existing
// conversation id.
type Target struct {
	Agent          store.Agent
	ConversationID string
}

type Router struct {
	store  Store
	writer *eventlog.Writer
}

func New(st Store, writer *eventlog.Writer) *Router {
	return &Router{store: st, writer: writer}
}

// Expand resolves a comma-separated target expression into a
// deduplicated, insertion-ordered list of Targets.
func (r *Router) Expand(ctx context.Context, projectID, expr string) ([]Target, error) {
	var targets []Target
	seen := map[string]bool{}

	for _, raw := range strings.Split(expr, ",") {
		piece := strings.TrimSpace(raw)
		if piece == "" {
			continue
		}

		switch {
		case piece == TargetAll:
			agents, err := r.store.ListAgentsByRole(ctx, projectID, "")
			if err != nil {
				return nil, err
			}
			for _, agent := range agents {
				addAgentTarget(&targets, seen, agent)
			}
		case strings.HasPrefix(piece, "@"):
			role := strings.TrimPrefix(piece, "@")
			agents, err := r.store.ListAgentsByRole(ctx, projectID, role)
			if err != nil {
				return nil, err
			}
			for _, agent := range agents {
				addAgentTarget(&targets, seen, agent)
			}
		default:
			agent, err := r.store.FindAgentByName(ctx, projectID, piece)
			if err == nil {
				addAgentTarget(&targets, seen, agent)
				continue
			}
			sess, sessErr := r.store.FindSession(ctx, piece)
			if sessErr != nil {
				return nil, coreerr.New(coreerr.InvalidInput, "unknown target: "+piece)
			}
			if seen["conv:"+sess.ID] {
				continue
			}
			seen["conv:"+sess.ID] = true
			targets = append(targets, Target{ConversationID: sess.ID})
		}
	}
	return targets, nil
}

func addAgentTarget(targets *[]Target, seen map[string]bool, agent store.Agent) {
	key := "agent:" + agent.ID
	if seen[key] {
		return
	}
	seen[key] = true
	*targets = append(*targets, Target{Agent: agent})
}

// Route emits a `routed` event to target's log carrying broadcastID, a
// freshly minted messageID, and the fan-out latency observed for that
// target, letting supervisors derive per-role and per-broadcast latency
// metrics from the log files alone.
func (r *Router) Route(projectID, role, agentID, providerKey, sessionID, broadcastID string, durMS int64) {
	if r.writer == nil {
		return
	}
	messageID := ids.New()
	rec := eventlog.NewRecord(projectID, role, agentID, providerKey, eventlog.DirectionSystem, eventlog.EventRouted).
		WithCorrelation(sessionID, broadcastID, messageID).
		WithDuration(durMS)
	_ = r.writer.Append(rec)
}
