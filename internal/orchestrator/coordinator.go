// Package orchestrator is the Broadcast Coordinator: it fans a message
// out to a set of resolved targets, in either gated one-shot mode or
// ungated REPL key-injection mode, and aggregates the per-target outcomes
// into a single exit code.
package orchestrator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"multiagents/internal/coreerr"
	"multiagents/internal/provider"
	"multiagents/internal/router"
	"multiagents/internal/runner"
	"multiagents/internal/session"
	"multiagents/internal/store"
)

const (
	ModeOneshot = "oneshot"
	ModeRepl    = "repl"
)

// Store narrows *store.Store to what the coordinator needs directly (the
// Resolver and Router hold their own narrower views).
type Store interface {
	InsertBroadcastWithMessages(ctx context.Context, projectID, mode, content string, targetSessionIDs []string) (store.Broadcast, error)
}

// Driver is the subset of the Terminal Multiplexer Driver the coordinator
// drives in REPL mode.
type Driver interface {
	SendKeys(project, role, agent, text string) error
}

// TargetOutcome is one target's dispatch result.
type TargetOutcome struct {
	AgentName string
	SessionID string
	Code      coreerr.Code
	DurationMS int64
	Err       error
}

// Result is the aggregate outcome of one broadcast dispatch.
type Result struct {
	BroadcastID string
	Outcomes    []TargetOutcome
	ExitCode    coreerr.Code
}

type Coordinator struct {
	store    Store
	router   *router.Router
	resolver *session.Resolver
	runner   *runner.Runner
	driver   Driver
	registry *provider.Registry
}

func New(st Store, r *router.Router, resolver *session.Resolver, rn *runner.Runner, driver Driver, registry *provider.Registry) *Coordinator {
	return &Coordinator{store: st, router: r, resolver: resolver, runner: rn, driver: driver, registry: registry}
}

// Request describes one broadcast dispatch.
type Request struct {
	ProjectID string
	Targets   []router.Target
	Message   string
	Mode      string
	Timeout   time.Duration
}

// Dispatch resolves a session per target, persists the Broadcast and its
// per-target Messages in one transaction, then fans the message out.
func (c *Coordinator) Dispatch(ctx context.Context, req Request) (Result, error) {
	mode := req.Mode
	if mode == "" {
		mode = ModeOneshot
	}

	resolved := make([]session.Target, 0, len(req.Targets))
	sessionIDs := make([]string, 0, len(req.Targets))
	for _, t := range req.Targets {
		if t.ConversationID != "" {
			target, err := c.resolver.Resolve(ctx, req.ProjectID, "", t.ConversationID)
			if err != nil {
				return Result{}, err
			}
			resolved = append(resolved, target)
		} else {
			target, err := c.resolver.Resolve(ctx, req.ProjectID, t.Agent.ID, "")
			if err != nil {
				return Result{}, err
			}
			resolved = append(resolved, target)
		}
		sessionIDs = append(sessionIDs, resolved[len(resolved)-1].Session.ID)
	}

	broadcast, err := c.store.InsertBroadcastWithMessages(ctx, req.ProjectID, mode, req.Message, sessionIDs)
	if err != nil {
		return Result{}, err
	}

	var outcomes []TargetOutcome
	if mode == ModeRepl {
		outcomes = c.dispatchRepl(req, resolved, broadcast.ID)
	} else {
		outcomes = c.dispatchOneshot(ctx, req, resolved, broadcast.ID)
	}

	for i, target := range resolved {
		c.router.Route(req.ProjectID, target.Agent.Role, target.Agent.ID, target.Agent.ProviderKey, target.Session.ID, broadcast.ID, outcomes[i].DurationMS)
	}

	return Result{BroadcastID: broadcast.ID, Outcomes: outcomes, ExitCode: aggregate(mode, outcomes)}, nil
}

func (c *Coordinator) dispatchOneshot(ctx context.Context, req Request, targets []session.Target, broadcastID string) []TargetOutcome {
	outcomes := make([]TargetOutcome, len(targets))
	var g errgroup.Group
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			outcomes[i] = c.runOneshot(ctx, req, target, broadcastID)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (c *Coordinator) runOneshot(ctx context.Context, req Request, target session.Target, broadcastID string) TargetOutcome {
	outcome := TargetOutcome{AgentName: target.Agent.Name, SessionID: target.Session.ID}

	tmpl, ok := c.registry.Lookup(target.Agent.ProviderKey)
	if !ok {
		outcome.Code = coreerr.ProviderUnavailable
		outcome.Err = coreerr.New(coreerr.ProviderUnavailable, "unknown provider: "+target.Agent.ProviderKey)
		return outcome
	}

	result, err := c.runner.Run(ctx, runner.Request{
		ProjectID:         req.ProjectID,
		AgentID:           target.Agent.ID,
		Role:              target.Agent.Role,
		SessionID:         target.Session.ID,
		BroadcastID:       broadcastID,
		Template:          tmpl,
		Mode:              runner.ModeOneshot,
		Render:            provider.Context{Prompt: req.Message, SessionID: target.Session.ProviderSessionID, AllowedTools: target.Agent.AllowedTools, SystemPrompt: target.Agent.SystemPrompt},
		ProviderSessionID: target.Session.ProviderSessionID,
		Timeout:           req.Timeout,
	})
	outcome.Code = result.Code
	outcome.DurationMS = result.DurationMS
	outcome.Err = err
	return outcome
}

func (c *Coordinator) dispatchRepl(req Request, targets []session.Target, broadcastID string) []TargetOutcome {
	outcomes := make([]TargetOutcome, len(targets))
	var g errgroup.Group
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			start := time.Now()
			err := c.driver.SendKeys(req.ProjectID, target.Agent.Role, target.Agent.Name, req.Message)
			outcomes[i] = TargetOutcome{
				AgentName:  target.Agent.Name,
				SessionID:  target.Session.ID,
				DurationMS: time.Since(start).Milliseconds(),
				Err:        err,
			}
			if err != nil {
				outcomes[i].Code = coreerr.CodeOf(err)
				if outcomes[i].Code == coreerr.Generic {
					outcomes[i].Code = coreerr.MultiplexerError
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

var oneshotPriority = []coreerr.Code{coreerr.Timeout, coreerr.ProviderCLIError, coreerr.ProviderUnavailable, coreerr.InvalidInput, coreerr.Generic}
var replPriority = []coreerr.Code{coreerr.MultiplexerError, coreerr.Timeout, coreerr.InvalidInput, coreerr.Generic}

// aggregate returns 0 unless every target failed, in which case it
// returns the most specific shared failure code.
func aggregate(mode string, outcomes []TargetOutcome) coreerr.Code {
	if len(outcomes) == 0 {
		return coreerr.InvalidInput
	}
	allFailed := true
	present := map[coreerr.Code]bool{}
	for _, o := range outcomes {
		if o.Err == nil {
			allFailed = false
			continue
		}
		present[o.Code] = true
	}
	if !allFailed {
		return coreerr.OK
	}
	priority := oneshotPriority
	if mode == ModeRepl {
		priority = replPriority
	}
	for _, code := range priority {
		if present[code] {
			return code
		}
	}
	return coreerr.Generic
}
