// Package session is the Session Resolver: it turns an (agent, optional
// conversation id) pair into an executable session context, falling back
// to minting a fresh native token when the provider reports the existing
// one invalid.
package session

import (
	"context"
	"time"

	"multiagents/internal/coreerr"
	"multiagents/internal/provider"
	"multiagents/internal/store"
)

const DefaultResumeTimeout = 5 * time.Second

// DefaultCreateChatTimeout bounds the cursor-like create-chat bootstrap
// mintToken runs when a native token needs replacing. Callers normally
// override it from config.Settings.Runner.CreateChatTimeout.
const DefaultCreateChatTimeout = 5 * time.Second

// Store narrows *store.Store to what the resolver needs, so tests can
// substitute a fake without a real database.
type Store interface {
	FindSession(ctx context.Context, id string) (store.Session, error)
	CreateSession(ctx context.Context, projectID, agentID string) (store.Session, error)
	CreateSessionWithMetadata(ctx context.Context, projectID, agentID string, metadata map[string]string) (store.Session, error)
	FindAgentByID(ctx context.Context, id string) (store.Agent, error)
	TouchSession(ctx context.Context, id, providerSessionID string) error
	MarkSessionStatus(ctx context.Context, id, status string) error
}

// Target is the resolved, executable session context.
type Target struct {
	Session store.Session
	Agent   store.Agent
}

type Resolver struct {
	store             Store
	templates         *provider.Registry
	createChatTimeout time.Duration
}

func New(st Store, templates *provider.Registry) *Resolver {
	return NewWithCreateChatTimeout(st, templates, DefaultCreateChatTimeout)
}

// NewWithCreateChatTimeout is New with an explicit bound on mintToken's
// cursor-like create-chat bootstrap, normally sourced from
// config.Settings.Runner.CreateChatTimeout.
func NewWithCreateChatTimeout(st Store, templates *provider.Registry, createChatTimeout time.Duration) *Resolver {
	if createChatTimeout <= 0 {
		createChatTimeout = DefaultCreateChatTimeout
	}
	return &Resolver{store: st, templates: templates, createChatTimeout: createChatTimeout}
}

// Resolve loads an existing session by conversationID, or creates a new
// one for agentID when conversationID is empty. It is optimistic: it does
// not validate the native token itself, leaving that to the next provider
// call and HandleProviderOutcome.
func (r *Resolver) Resolve(ctx context.Context, projectID, agentID, conversationID string) (Target, error) {
	return r.ResolveWithMetadata(ctx, projectID, agentID, conversationID, nil)
}

// ResolveWithMetadata is Resolve plus an opaque metadata sidecar (e.g.
// the REPL startup's working directory) attached to a freshly created
// session; ignored when an existing conversationID is resolved instead.
func (r *Resolver) ResolveWithMetadata(ctx context.Context, projectID, agentID, conversationID string, metadata map[string]string) (Target, error) {
	if conversationID != "" {
		sess, err := r.store.FindSession(ctx, conversationID)
		if err != nil {
			return Target{}, err
		}
		agent, err := r.store.FindAgentByID(ctx, sess.AgentID)
		if err != nil {
			return Target{}, err
		}
		return Target{Session: sess, Agent: agent}, nil
	}

	agent, err := r.store.FindAgentByID(ctx, agentID)
	if err != nil {
		return Target{}, err
	}
	sess, err := r.store.CreateSessionWithMetadata(ctx, projectID, agentID, metadata)
	if err != nil {
		return Target{}, err
	}
	return Target{Session: sess, Agent: agent}, nil
}

// ResolveWithTimeout bounds Resolve by timeout (5s by default for the
// `session resume` command), classifying an elapsed deadline as timeout.
func (r *Resolver) ResolveWithTimeout(ctx context.Context, projectID, agentID, conversationID string, timeout time.Duration) (Target, error) {
	if timeout <= 0 {
		timeout = DefaultResumeTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target, err := r.Resolve(callCtx, projectID, agentID, conversationID)
	if err != nil {
		if callCtx.Err() != nil {
			return Target{}, coreerr.Wrap(coreerr.Timeout, callCtx.Err())
		}
		return Target{}, err
	}
	return target, nil
}

// HandleProviderOutcome reacts to the provider classifying the session's
// native token invalid or expired: it marks the session invalid, mints a
// replacement token, persists it, and reactivates the session, keeping
// the internal conversation id stable throughout.
func (r *Resolver) HandleProviderOutcome(ctx context.Context, target Target) (Target, error) {
	if err := r.store.MarkSessionStatus(ctx, target.Session.ID, store.SessionInvalid); err != nil {
		return target, err
	}
	target.Session.Status = store.SessionInvalid

	newToken, err := r.mintToken(ctx, target)
	if err != nil {
		return target, err
	}

	if err := r.store.TouchSession(ctx, target.Session.ID, newToken); err != nil {
		return target, err
	}
	if err := r.store.MarkSessionStatus(ctx, target.Session.ID, store.SessionActive); err != nil {
		return target, err
	}

	target.Session.ProviderSessionID = newToken
	target.Session.Status = store.SessionActive
	return target, nil
}

func (r *Resolver) mintToken(ctx context.Context, target Target) (string, error) {
	tmpl, ok := r.templates.Lookup(target.Agent.ProviderKey)
	if !ok {
		return provider.SyntheticSessionID(provider.FamilyGeminiLike), nil
	}
	if tmpl.Family == provider.FamilyCursorLike && len(tmpl.CreateChatArgs) > 0 {
		chatID, err := provider.CreateChat(ctx, tmpl, r.createChatTimeout)
		if err != nil {
			return "", coreerr.Wrap(coreerr.ProviderCLIError, err)
		}
		if chatID == provider.CreateChatTimeoutID {
			return "", coreerr.New(coreerr.Timeout, "create-chat timed out minting a replacement session token")
		}
		return chatID, nil
	}
	return provider.SyntheticSessionID(tmpl.Family), nil
}
