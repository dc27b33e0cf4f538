package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"multiagents/internal/cli"
	"multiagents/internal/ids"
	"multiagents/internal/session"
	"multiagents/internal/store"
)

type sessionCommand struct {
	deps commandDeps
}

func (c sessionCommand) Run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(c.deps.Stderr, "usage: gestalt session start|list|resume|cleanup ...")
		return 2
	}
	switch args[0] {
	case "start":
		return c.start(args[1:])
	case "list":
		return c.list(args[1:])
	case "resume":
		return c.resume(args[1:])
	case "cleanup":
		return c.cleanup(args[1:])
	default:
		fmt.Fprintln(c.deps.Stderr, "usage: gestalt session start|list|resume|cleanup ...")
		return 2
	}
}

func (c sessionCommand) start(args []string) int {
	fs := flag.NewFlagSet("gestalt session start", flag.ContinueOnError)
	fs.SetOutput(c.deps.Stderr)
	projectName := fs.String("project", "", "project name")
	agentName := fs.String("agent", "", "agent name")
	storeFlags := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *projectName == "" || *agentName == "" {
		fmt.Fprintln(c.deps.Stderr, "--project and --agent are required")
		return 2
	}

	ctx := context.Background()
	a, err := storeFlags.open(ctx)
	if err != nil {
		return fail(c.deps.Stderr, err)
	}
	defer a.Close()

	project, err := a.Store.FindProjectByName(ctx, *projectName)
	if err != nil {
		return fail(c.deps.Stderr, err)
	}
	agent, err := a.Store.FindAgentByName(ctx, project.ID, *agentName)
	if err != nil {
		return fail(c.deps.Stderr, err)
	}

	target, err := a.Resolver.Resolve(ctx, project.ID, agent.ID, "")
	if err != nil {
		return fail(c.deps.Stderr, err)
	}
	fmt.Fprintf(c.deps.Stdout, "conversation_id=%s\n", target.Session.ID)
	return 0
}

type sessionView struct {
	ID          string `json:"id"`
	AgentID     string `json:"agent_id"`
	ProviderKey string `json:"provider_key"`
	Status      string `json:"status"`
}

func (c sessionCommand) list(args []string) int {
	fs := flag.NewFlagSet("gestalt session list", flag.ContinueOnError)
	fs.SetOutput(c.deps.Stderr)
	projectName := fs.String("project", "", "project name")
	agentName := fs.String("agent", "", "agent name filter")
	providerKey := fs.String("provider", "", "provider key filter")
	format := addFormatFlag(fs)
	storeFlags := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *projectName == "" {
		fmt.Fprintln(c.deps.Stderr, "--project is required")
		return 2
	}

	ctx := context.Background()
	a, err := storeFlags.open(ctx)
	if err != nil {
		return fail(c.deps.Stderr, err)
	}
	defer a.Close()

	project, err := a.Store.FindProjectByName(ctx, *projectName)
	if err != nil {
		return fail(c.deps.Stderr, err)
	}

	filter := store.SessionFilter{ProviderKey: *providerKey}
	if *agentName != "" {
		agent, err := a.Store.FindAgentByName(ctx, project.ID, *agentName)
		if err != nil {
			return fail(c.deps.Stderr, err)
		}
		filter.AgentID = agent.ID
	}

	sessions, err := a.Store.ListSessions(ctx, project.ID, filter)
	if err != nil {
		return fail(c.deps.Stderr, err)
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{ID: s.ID, AgentID: s.AgentID, ProviderKey: s.ProviderKey, Status: s.Status})
	}

	if cli.NormalizeFormat(*format) == cli.FormatJSON {
		return exitOn(c.deps.Stderr, cli.WriteJSON(c.deps.Stdout, views))
	}
	for _, v := range views {
		fmt.Fprintf(c.deps.Stdout, "%s\t%s\t%s\t%s\n", v.ID, v.AgentID, v.ProviderKey, v.Status)
	}
	return 0
}

func (c sessionCommand) resume(args []string) int {
	fs := flag.NewFlagSet("gestalt session resume", flag.ContinueOnError)
	fs.SetOutput(c.deps.Stderr)
	conversationID := fs.String("conversation-id", "", "conversation id")
	timeoutMS := fs.Int("timeout-ms", int(session.DefaultResumeTimeout/time.Millisecond), "resolve timeout in milliseconds")
	storeFlags := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *conversationID == "" {
		fmt.Fprintln(c.deps.Stderr, "--conversation-id is required")
		return 2
	}

	ctx := context.Background()
	a, err := storeFlags.open(ctx)
	if err != nil {
		return fail(c.deps.Stderr, err)
	}
	defer a.Close()

	target, err := a.Resolver.ResolveWithTimeout(ctx, "", "", *conversationID, time.Duration(*timeoutMS)*time.Millisecond)
	if err != nil {
		return fail(c.deps.Stderr, err)
	}
	fmt.Fprintf(c.deps.Stdout, "conversation_id=%s agent=%s status=%s\n", target.Session.ID, target.Agent.Name, target.Session.Status)
	return 0
}

func (c sessionCommand) cleanup(args []string) int {
	fs := flag.NewFlagSet("gestalt session cleanup", flag.ContinueOnError)
	fs.SetOutput(c.deps.Stderr)
	dryRun := fs.Bool("dry-run", false, "report without mutating")
	format := addFormatFlag(fs)
	storeFlags := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	a, err := storeFlags.open(ctx)
	if err != nil {
		return fail(c.deps.Stderr, err)
	}
	defer a.Close()

	n, err := a.Store.CleanupExpiredSessions(ctx, ids.SystemClock{}.Now(), a.Settings.Session.TTL, *dryRun)
	if err != nil {
		return fail(c.deps.Stderr, err)
	}

	if cli.NormalizeFormat(*format) == cli.FormatJSON {
		return exitOn(c.deps.Stderr, cli.WriteJSON(c.deps.Stdout, map[string]any{"expired": n, "dry_run": *dryRun}))
	}
	fmt.Fprintf(c.deps.Stdout, "expired=%d dry_run=%t\n", n, *dryRun)
	return 0
}

func exitOn(errOut io.Writer, err error) int {
	if err != nil {
		return fail(errOut, err)
	}
	return 0
}
