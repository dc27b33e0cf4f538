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

type broadcastCommand struct {
	deps commandDeps
}

func (c broadcastCommand) Run(args []string) int {
	if len(args) == 0 || (args[0] != orchestrator.ModeOneshot && args[0] != orchestrator.ModeRepl) {
		fmt.Fprintln(c.deps.Stderr, "usage: gestalt broadcast oneshot|repl --project <p> --to <targets> --message <t>")
		return 2
	}
	mode := args[0]

	fs := flag.NewFlagSet("gestalt broadcast "+mode, flag.ContinueOnError)
	fs.SetOutput(c.deps.Stderr)
	projectName := fs.String("project", "", "project name")
	to := fs.String("to", "", "comma-separated target expression (@all, @role, name, conversation id)")
	message := fs.String("message", "", "message content")
	timeoutMS := fs.Int("timeout-ms", 120_000, "per-target timeout in milliseconds")
	format := addFormatFlag(fs)
	noProgress := fs.Bool("no-progress", false, "disable the fan-out progress line")
	storeFlags := addStoreFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if *projectName == "" || *to == "" || *message == "" {
		fmt.Fprintln(c.deps.Stderr, "--project, --to, and --message are required")
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
	reporter.Update("dispatching to %d target(s)...", len(targets))

	result, err := a.Coordinator.Dispatch(ctx, orchestrator.Request{
		ProjectID: project.ID,
		Targets:   targets,
		Message:   *message,
		Mode:      mode,
		Timeout:   time.Duration(*timeoutMS) * time.Millisecond,
	})
	if err != nil {
		reporter.Done("dispatch failed")
		return fail(c.deps.Stderr, err)
	}
	reporter.Done("dispatched to %d target(s)", len(result.Outcomes))

	if cli.NormalizeFormat(*format) == cli.FormatJSON {
		return exitOn(c.deps.Stderr, cli.WriteJSON(c.deps.Stdout, broadcastView(result)))
	}
	for _, o := range result.Outcomes {
		fmt.Fprintf(c.deps.Stdout, "%s\t%s\t%s\n", o.AgentName, o.Code, errString(o.Err))
	}
	return int(result.ExitCode)
}

type outcomeView struct {
	Agent      string `json:"agent"`
	Code       string `json:"code"`
	DurationMS int64  `json:"dur_ms"`
	Error      string `json:"error,omitempty"`
}

type broadcastResultView struct {
	BroadcastID string        `json:"broadcast_id"`
	Outcomes    []outcomeView `json:"outcomes"`
	ExitCode    int           `json:"exit_code"`
}

func broadcastView(result orchestrator.Result) broadcastResultView {
	view := broadcastResultView{BroadcastID: result.BroadcastID, ExitCode: int(result.ExitCode)}
	for _, o := range result.Outcomes {
		view.Outcomes = append(view.Outcomes, outcomeView{
			Agent:      o.AgentName,
			Code:       o.Code.String(),
			DurationMS: o.DurationMS,
			Error:      errString(o.Err),
		})
	}
	return view
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
