package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"multiagents/internal/cli"
	"multiagents/internal/orchestrator"
)

// sendCommand is the convenience wrapper around a oneshot broadcast
// (--to defaults to @all): it resolves a project the same way broadcast does, expands
// the target expression through the Router, and dispatches through the
// same Coordinator so the event log and store side effects are
// identical whether a caller uses `send` or `broadcast oneshot`.
type sendCommand struct {
	deps commandDeps
}

func (c sendCommand) Run(args []string) int {
	fs := flag.NewFlagSet("gestalt send", flag.ContinueOnError)
	fs.SetOutput(c.deps.Stderr)
	projectName := fs.String("project", "", "project name")
	to := fs.String("to", "@all", "target expression: @role, @all, agent name, or conversation id")
	message := fs.String("message", "", "message content")
	timeoutMS := fs.Int("timeout-ms", 120_000, "per-target timeout in milliseconds")
	format := addFormatFlag(fs)
	noProgress := fs.Bool("no-progress", false, "disable the fan-out progress line")
	storeFlags := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *projectName == "" || *message == "" {
		fmt.Fprintln(c.deps.Stderr, "--project and --message are required")
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

	targets, err := a.Router.Expand(ctx, project.ID, *to)
	if err != nil {
		return fail(c.deps.Stderr, err)
	}

	reporter := cli.NewReporter(os.Stdout, *noProgress)
	reporter.Update("sending to %d target(s)...", len(targets))

	result, err := a.Coordinator.Dispatch(ctx, orchestrator.Request{
		ProjectID: project.ID,
		Targets:   targets,
		Message:   *message,
		Mode:      orchestrator.ModeOneshot,
		Timeout:   time.Duration(*timeoutMS) * time.Millisecond,
	})
	if err != nil {
		reporter.Done("send failed")
		return fail(c.deps.Stderr, err)
	}
	reporter.Done("sent to %d target(s)", len(result.Outcomes))

	if cli.NormalizeFormat(*format) == cli.FormatJSON {
		return exitOn(c.deps.Stderr, cli.WriteJSON(c.deps.Stdout, broadcastView(result)))
	}
	for _, o := range result.Outcomes {
		fmt.Fprintf(c.deps.Stdout, "%s\t%s\t%s\n", o.AgentName, o.Code, errString(o.Err))
	}
	return int(result.ExitCode)
}
