package main

import "io"

type command interface {
	Run(args []string) int
}

type commandDeps struct {
	Stdout io.Writer
	Stderr io.Writer
}

func defaultCommandDeps(stdout, stderr io.Writer) commandDeps {
	return commandDeps{Stdout: stdout, Stderr: stderr}
}

type helpCommand struct {
	deps commandDeps
	code int
}

func (c helpCommand) Run(args []string) int {
	printRootHelp(c.deps.Stdout)
	return c.code
}

func resolveCommand(args []string, deps commandDeps) (command, []string) {
	if len(args) == 0 {
		return helpCommand{deps: deps}, nil
	}
	switch args[0] {
	case "db":
		return dbCommand{deps: deps}, args[1:]
	case "project":
		return projectCommand{deps: deps}, args[1:]
	case "agent":
		return agentCommand{deps: deps}, args[1:]
	case "session":
		return sessionCommand{deps: deps}, args[1:]
	case "send":
		return sendCommand{deps: deps}, args[1:]
	case "broadcast":
		return broadcastCommand{deps: deps}, args[1:]
	case "metrics":
		return metricsCommand{deps: deps}, args[1:]
	case "logs":
		return logsCommand{deps: deps}, args[1:]
	case "help", "-h", "--help":
		return helpCommand{deps: deps}, nil
	default:
		return helpCommand{deps: deps, code: 2}, nil
	}
}

func printRootHelp(out io.Writer) {
	const help = `Usage: gestalt <command> [options]

Commands:
  db init                           create the store schema
  project add --name <n>            create a project
  agent add --project <p> ...       create an agent
  session start|list|resume|cleanup manage sessions
  send --to <targets> --message <t> deliver a message to one or more targets
  broadcast oneshot|repl            fan a message out to targets
  metrics routed                    supervisor metrics over routed events
  logs tail --project <p>           live-follow log entries and config changes

Run 'gestalt <command> --help' for command-specific options.
`
	io.WriteString(out, help)
}
