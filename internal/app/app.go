// Package app wires the core components into the single App used by
// every command in the CLI surface: State Store, Event Log Writer,
// Concurrency Gate, One-Shot Runner, Terminal Multiplexer Driver,
// Session Resolver, Message Router, Broadcast Coordinator, and logging.
package app

import (
	"context"
	"database/sql"
	"os"

	"multiagents/internal/config"
	"multiagents/internal/eventlog"
	"multiagents/internal/gate"
	"multiagents/internal/logging"
	"multiagents/internal/metrics"
	"multiagents/internal/orchestrator"
	"multiagents/internal/provider"
	"multiagents/internal/router"
	"multiagents/internal/runner"
	"multiagents/internal/runner/tmuxsession"
	"multiagents/internal/session"
	"multiagents/internal/store"
)

// App is the fully wired dependency graph shared by every command.
type App struct {
	Settings    config.Settings
	LogRoot     string
	DB          *sql.DB
	Store       *store.Store
	Logger      *logging.Logger
	Metrics     *metrics.Registry
	EventLog    *eventlog.Writer
	Providers   *provider.Registry
	Gate        *gate.Gate
	Runner      *runner.Runner
	Tmux        *tmuxsession.Driver
	Resolver    *session.Resolver
	Router      *router.Router
	Coordinator *orchestrator.Coordinator
}

// Options lets commands override the resolved paths and settings
// without reaching into environment variables directly (useful for
// tests and for explicit CLI flags like --db/--logs).
type Options struct {
	DBPath       string
	LogRoot      string
	SettingsPath string
	Overrides    *config.Settings
}

// New opens the store, applies its schema, and wires every component.
// Callers must call Close when done.
func New(ctx context.Context, opts Options) (*App, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = config.DBPath()
	}
	logRoot := opts.LogRoot
	if logRoot == "" {
		logRoot = config.LogRoot()
	}

	settings, err := config.LoadSettings(opts.SettingsPath, opts.Overrides)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(db); err != nil {
		db.Close()
		return nil, err
	}

	st := store.New(db)
	writer := eventlog.NewWriter(logRoot)
	registry := provider.DefaultRegistry()
	metricsRegistry := &metrics.Registry{}
	g := gate.New(settings.Gate.MaxConcurrency)
	rn := runner.New(st, writer, g)
	driver := tmuxsession.New(config.LockRoot())
	resolver := session.NewWithCreateChatTimeout(st, registry, settings.Runner.CreateChatTimeout)
	rt := router.New(st, writer)
	coordinator := orchestrator.New(st, rt, resolver, rn, driver, registry)

	logger := logging.NewLogger(nil, logging.LevelInfo)

	if dir := settings.ConfigSnapshotDir; dir != "" {
		if _, statErr := os.Stat(dir); statErr == nil {
			if err := config.WatchSnapshotDir(ctx, dir, logger); err != nil {
				logger.Warn("config snapshot watch unavailable", map[string]string{"error": err.Error()})
			}
		}
	}

	return &App{
		Settings:    settings,
		LogRoot:     logRoot,
		DB:          db,
		Store:       st,
		Logger:      logger,
		Metrics:     metricsRegistry,
		EventLog:    writer,
		Providers:   registry,
		Gate:        g,
		Runner:      rn,
		Tmux:        driver,
		Resolver:    resolver,
		Router:      rt,
		Coordinator: coordinator,
	}, nil
}

func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
