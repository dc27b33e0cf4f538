// Command gestalt is the administrative CLI: it manages projects,
// agents, sessions, and broadcasts against the shared State Store, and
// exposes Supervisor Metrics over the Event Log.
package main

import (
	"io"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	deps := defaultCommandDeps(stdout, stderr)
	cmd, rest := resolveCommand(args, deps)
	return cmd.Run(rest)
}
