package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"multiagents/internal/store"
)

type agentCommand struct {
	deps commandDeps
}

func (c agentCommand) Run(args []string) int {
	if len(args) == 0 || args[0] != "add" {
		fmt.Fprintln(c.deps.Stderr, "usage: gestalt agent add --project <p> --name <n> --role <r> --provider <k> --model <m>")
		return 2
	}

	fs := flag.NewFlagSet("gestalt agent add", flag.ContinueOnError)
	fs.SetOutput(c.deps.Stderr)
	projectName := fs.String("project", "", "project name")
	name := fs.String("name", "", "agent name")
	role := fs.String("role", "", "agent role")
	providerKey := fs.String("provider", "", "provider key (claude|cursor|gemini)")
	model := fs.String("model", "", "model name")
	allowedTools := fs.String("allowed-tools", "", "comma-separated allowed tools")
	systemPrompt := fs.String("system-prompt", "", "system prompt")
	storeFlags := addStoreFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if *projectName == "" || *name == "" || *role == "" || *providerKey == "" {
		fmt.Fprintln(c.deps.Stderr, "--project, --name, --role, and --provider are required")
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

	var tools []string
	for _, t := range strings.Split(*allowedTools, ",") {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			tools = append(tools, trimmed)
		}
	}

	agent, err := a.Store.CreateAgent(ctx, store.Agent{
		ProjectID:    project.ID,
		Name:         *name,
		Role:         *role,
		ProviderKey:  *providerKey,
		Model:        *model,
		AllowedTools: tools,
		SystemPrompt: *systemPrompt,
	})
	if err != nil {
		return fail(c.deps.Stderr, err)
	}
	fmt.Fprintf(c.deps.Stdout, "agent_id=%s\n", agent.ID)
	return 0
}
