package main

import (
	"context"
	"flag"
	"fmt"
)

type projectCommand struct {
	deps commandDeps
}

func (c projectCommand) Run(args []string) int {
	if len(args) == 0 || args[0] != "add" {
		fmt.Fprintln(c.deps.Stderr, "usage: gestalt project add --name <n>")
		return 2
	}

	fs := flag.NewFlagSet("gestalt project add", flag.ContinueOnError)
	fs.SetOutput(c.deps.Stderr)
	name := fs.String("name", "", "project name")
	store := addStoreFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if *name == "" {
		fmt.Fprintln(c.deps.Stderr, "--name is required")
		return 2
	}

	ctx := context.Background()
	a, err := store.open(ctx)
	if err != nil {
		return fail(c.deps.Stderr, err)
	}
	defer a.Close()

	project, err := a.Store.CreateProject(ctx, *name)
	if err != nil {
		return fail(c.deps.Stderr, err)
	}
	fmt.Fprintf(c.deps.Stdout, "project_id=%s\n", project.ID)
	return 0
}
