package main

import (
	"context"
	"flag"
	"fmt"
)

type dbCommand struct {
	deps commandDeps
}

func (c dbCommand) Run(args []string) int {
	if len(args) == 0 || args[0] != "init" {
		fmt.Fprintln(c.deps.Stderr, "usage: gestalt db init [--db <path>]")
		return 2
	}

	fs := flag.NewFlagSet("gestalt db init", flag.ContinueOnError)
	fs.SetOutput(c.deps.Stderr)
	store := addStoreFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	a, err := store.open(context.Background())
	if err != nil {
		return fail(c.deps.Stderr, err)
	}
	defer a.Close()

	fmt.Fprintln(c.deps.Stdout, "store initialized")
	return 0
}
