package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"multiagents/internal/cli"
	"multiagents/internal/config"
)

// logsCommand is the supervisor-facing live tail: it fans in the
// process-local Logger's LogEntry stream (internal/logging.LogHub) and,
// when a snapshot directory is configured or passed explicitly, the
// config-watch ConfigEvent stream (internal/config.Bus), printing both
// until interrupted. It is the one real, long-running consumer of both
// event buses outside their own tests.
type logsCommand struct {
	deps commandDeps
}

func (c logsCommand) Run(args []string) int {
	if len(args) == 0 || args[0] != "tail" {
		fmt.Fprintln(c.deps.Stderr, "usage: gestalt logs tail --project <p> [--snapshot-dir <path>] [--format text|json]")
		return 2
	}

	fs := flag.NewFlagSet("gestalt logs tail", flag.ContinueOnError)
	fs.SetOutput(c.deps.Stderr)
	projectName := fs.String("project", "", "project name")
	snapshotDir := fs.String("snapshot-dir", "", "config snapshot directory to watch (default: the configured snapshot-dir)")
	format := addFormatFlag(fs)
	storeFlags := addStoreFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if *projectName == "" {
		fmt.Fprintln(c.deps.Stderr, "--project is required")
		return 2
	}

	ctx := context.Background()
	a, err := storeFlags.open(ctx)
	if err != nil {
		return fail(c.deps.Stderr, err)
	}
	defer a.Close()

	if _, err := a.Store.FindProjectByName(ctx, *projectName); err != nil {
		return fail(c.deps.Stderr, err)
	}

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()

	dir := *snapshotDir
	if dir == "" {
		dir = a.Settings.ConfigSnapshotDir
	}
	if dir != "" {
		if _, statErr := os.Stat(dir); statErr == nil {
			if err := config.WatchSnapshotDir(watchCtx, dir, a.Logger); err != nil {
				a.Logger.Warn("config snapshot watch unavailable", map[string]string{"error": err.Error()})
			}
		}
	}

	logCh, cancelLog := a.Logger.Subscribe()
	defer cancelLog()
	configCh, cancelConfig := config.Bus().Subscribe()
	defer cancelConfig()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	asJSON := cli.NormalizeFormat(*format) == cli.FormatJSON
	for {
		select {
		case <-stop:
			return 0
		case entry, ok := <-logCh:
			if !ok {
				return 0
			}
			if asJSON {
				_ = cli.WriteJSON(c.deps.Stdout, entry)
				continue
			}
			fmt.Fprintf(c.deps.Stdout, "[log] level=%s msg=%s\n", entry.Level, entry.Message)
		case ev, ok := <-configCh:
			if !ok {
				return 0
			}
			if asJSON {
				_ = cli.WriteJSON(c.deps.Stdout, ev)
				continue
			}
			fmt.Fprintf(c.deps.Stdout, "[config] %s %s %s\n", ev.ChangeType, ev.ConfigType, ev.Path)
		}
	}
}
