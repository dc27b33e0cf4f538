package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"multiagents/internal/app"
	"multiagents/internal/coreerr"
	"multiagents/internal/store"
)

type targetFlags struct {
	project  *string
	agent    *string
	role     *string
	provider *string
	timeout  *int
	db       *string
	logs     *string
}

func addTargetFlags(fs *flag.FlagSet) targetFlags {
	t := targetFlags{
		project:  fs.String("project", "", "project name"),
		agent:    fs.String("agent", "", "agent name"),
		role:     fs.String("role", "", "window role (defaults to the agent's stored role)"),
		provider: fs.String("provider", "", "provider key override"),
		timeout:  fs.Int("timeout-ms", 5000, "deadline in milliseconds for store lookups (tmux calls keep a fixed 5s bound)"),
		db:       fs.String("db", "", "sqlite store path override"),
		logs:     fs.String("logs", "", "event log root override"),
	}
	// --model has no effect on an already-created agent's stored model;
	// accepted for interface parity with the source CLI.
	_ = fs.String("model", "", "model override (informational)")
	return t
}

func (f targetFlags) require(errOut io.Writer) bool {
	if *f.project == "" || *f.agent == "" {
		fmt.Fprintln(errOut, "--project and --agent are required")
		return false
	}
	return true
}

// resolved bundles what every subcommand needs after flag parsing:
// the wired App, the project and agent rows, and the effective role and
// provider key (falling back to the agent's stored values).
type resolved struct {
	App         *app.App
	Project     store.Project
	Agent       store.Agent
	Role        string
	ProviderKey string
}

func (f targetFlags) resolve(ctx context.Context) (resolved, error) {
	a, err := app.New(ctx, app.Options{DBPath: *f.db, LogRoot: *f.logs})
	if err != nil {
		return resolved{}, err
	}

	project, err := a.Store.FindProjectByName(ctx, *f.project)
	if err != nil {
		a.Close()
		return resolved{}, err
	}
	agent, err := a.Store.FindAgentByName(ctx, project.ID, *f.agent)
	if err != nil {
		a.Close()
		return resolved{}, err
	}

	role := agent.Role
	if *f.role != "" {
		role = *f.role
	}
	providerKey := agent.ProviderKey
	if *f.provider != "" {
		providerKey = *f.provider
	}

	return resolved{App: a, Project: project, Agent: agent, Role: role, ProviderKey: providerKey}, nil
}

func fail(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %v\n", err)
	return int(coreerr.CodeOf(err))
}
