package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"
)

func stopAgent(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gestalt-agent stop", flag.ContinueOnError)
	fs.SetOutput(stderr)
	target := addTargetFlags(fs)
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

	warning, err := r.App.Tmux.StopWindow(r.Project.ID, r.Role, r.Agent.Name)
	if err != nil {
		return fail(stderr, err)
	}
	if warning {
		fmt.Fprintln(stdout, "not running")
		return 0
	}
	fmt.Fprintln(stdout, "stopped")
	return 0
}
