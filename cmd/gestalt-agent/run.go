package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"multiagents/internal/coreerr"
	"multiagents/internal/eventlog"
	"multiagents/internal/provider"
)

func runAgent(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gestalt-agent run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	target := addTargetFlags(fs)
	// The tmux Client has no per-window working-directory primitive, so
	// --workdir cannot change where the provider process runs; it is
	// still recorded on the session's metadata sidecar for later lookup
	// (e.g. by supervisors correlating sessions to checkouts).
	workdir := fs.String("workdir", "", "working directory for the spawned process (recorded, not applied)")
	noLogs := fs.Bool("no-logs", false, "skip installing the pane-output log pipe")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !target.require(stderr) {
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*target.timeout)*time.Millisecond)
	defer cancel()

	r, err := target.resolve(ctx)
	if err != nil {
		return fail(stderr, err)
	}
	defer r.App.Close()

	tmpl, ok := r.App.Providers.Lookup(r.ProviderKey)
	if !ok {
		return fail(stderr, coreerr.New(coreerr.ProviderUnavailable, "unknown provider: "+r.ProviderKey))
	}

	var metadata map[string]string
	if *workdir != "" {
		metadata = map[string]string{"workdir": *workdir}
	}
	session, err := r.App.Resolver.ResolveWithMetadata(ctx, r.Project.ID, r.Agent.ID, "", metadata)
	if err != nil {
		return fail(stderr, err)
	}

	command := provider.Render(tmpl, "repl", provider.Context{
		SessionID:    session.Session.ProviderSessionID,
		SystemPrompt: r.Agent.SystemPrompt,
		AllowedTools: r.Agent.AllowedTools,
	})

	created, err := r.App.Tmux.EnsureWindow(r.Project.ID, r.Role, r.Agent.Name, command)
	if err != nil {
		return fail(stderr, err)
	}
	if !created {
		fmt.Fprintln(stdout, "already running")
		return 0
	}

	if !*noLogs {
		path := r.App.EventLog.PathFor(r.Project.ID, r.Role)
		if err := r.App.Tmux.EnablePanePipe(r.Project.ID, r.Role, r.Agent.Name, path); err != nil {
			return fail(stderr, err)
		}
	}

	rec := eventlog.NewRecord(r.Project.ID, r.Role, r.Agent.ID, r.ProviderKey, eventlog.DirectionSystem, eventlog.EventStart).
		WithCorrelation(session.Session.ID, "", "")
	_ = r.App.EventLog.Append(rec)

	fmt.Fprintf(stdout, "started window=%s:%s conversation_id=%s\n", r.Role, r.Agent.Name, session.Session.ID)
	return 0
}
