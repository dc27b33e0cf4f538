package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"multiagents/internal/process"
	"multiagents/internal/runner/tmuxsession"
)

// attachAgent implements §4.6 attach: when stdout is a real terminal the
// process image is replaced with the multiplexer's attach command (the
// caller's shell ends up inside tmux, exactly as if it had run `tmux
// attach` itself); otherwise the command is printed as guidance for the
// caller to run manually (e.g. piped output, CI, or a non-interactive
// harness where process replacement would just discard output).
func attachAgent(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gestalt-agent attach", flag.ContinueOnError)
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

	insideTmux := strings.TrimSpace(os.Getenv("TMUX")) != ""
	command := tmuxsession.AttachCommand(insideTmux, r.Project.ID, r.Role, r.Agent.Name)

	if f, ok := stdout.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		r.App.Close()
		if err := process.ExecReplace(command[0], command); err == nil {
			return 0 // unreachable on success: the process image is gone
		}
	}

	fmt.Fprintln(stdout, "run to attach:", strings.Join(command, " "))
	return 0
}
