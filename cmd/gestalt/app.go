package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"multiagents/internal/app"
	"multiagents/internal/cli"
	"multiagents/internal/coreerr"
)

// storeFlags are the --db/--logs overrides every subcommand accepts,
// following the same XDG-style resolution chain as config.DBPath/LogRoot
// when left empty.
type storeFlags struct {
	db   *string
	logs *string
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		db:   fs.String("db", "", "sqlite store path (default: MULTI_AGENTS_DB or XDG data dir)"),
		logs: fs.String("logs", "", "event log root (default: MULTI_AGENTS_LOGS or XDG data dir)"),
	}
}

func (f storeFlags) open(ctx context.Context) (*app.App, error) {
	return app.New(ctx, app.Options{DBPath: *f.db, LogRoot: *f.logs})
}

// exitCode derives the process exit code from err, per the §7 taxonomy.
// nil maps to coreerr.OK.
func exitCode(err error) int {
	return int(coreerr.CodeOf(err))
}

func fail(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %v\n", err)
	return exitCode(err)
}

func addFormatFlag(fs *flag.FlagSet) *string {
	return fs.String("format", cli.FormatText, "output format: text|json")
}
