package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"multiagents/internal/cli"
	"multiagents/internal/eventlog"
	"multiagents/internal/fsutil"
	"multiagents/internal/metrics"
)

type metricsCommand struct {
	deps commandDeps
}

func (c metricsCommand) Run(args []string) int {
	if len(args) == 0 || args[0] != "routed" {
		fmt.Fprintln(c.deps.Stderr, "usage: gestalt metrics routed --project <p> [--role <r>] [--format text|json]")
		return 2
	}

	fs := flag.NewFlagSet("gestalt metrics routed", flag.ContinueOnError)
	fs.SetOutput(c.deps.Stderr)
	projectName := fs.String("project", "", "project name")
	role := fs.String("role", "", "restrict to a single role's log file")
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

	project, err := a.Store.FindProjectByName(ctx, *projectName)
	if err != nil {
		return fail(c.deps.Stderr, err)
	}

	roles := []string{*role}
	if *role == "" {
		roles, err = roleFiles(a.LogRoot, project.ID)
		if err != nil {
			return fail(c.deps.Stderr, err)
		}
	}

	var events []eventlog.Record
	for _, r := range roles {
		path := a.EventLog.PathFor(project.ID, r)
		records, err := eventlog.ReadRecords(path)
		if err != nil {
			return fail(c.deps.Stderr, err)
		}
		events = append(events, records...)
	}

	summary := metrics.RoutedSummaryOf(events)

	if cli.NormalizeFormat(*format) == cli.FormatJSON {
		return exitOn(c.deps.Stderr, cli.WriteJSON(c.deps.Stdout, summary))
	}
	fmt.Fprintf(c.deps.Stdout, "total=%d unique_broadcasts=%d\n", summary.Total, summary.UniqueBroadcasts)
	for _, r := range summary.TopRoles {
		fmt.Fprintf(c.deps.Stdout, "role=%s count=%d\n", r.Role, r.Count)
	}
	return 0
}

// roleFiles lists the roles with a log file under the project's log
// directory, so `metrics routed` without --role covers every role.
func roleFiles(logRoot, projectID string) ([]string, error) {
	fsys, cleaned, err := fsutil.NormalizeFSPaths(nil, "logs", logRoot+"/"+projectID)
	if err != nil {
		return nil, err
	}
	entries, err := fsutil.ReadDirOrEmpty(fsys, cleaned[0])
	if err != nil {
		return nil, err
	}
	var roles []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".ndjson"); ok {
			roles = append(roles, name)
		}
	}
	return roles, nil
}
