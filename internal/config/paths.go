package config

import (
	"os"
	"path/filepath"
)

// ConfigDir resolves the configuration directory following the priority
// chain: MULTI_AGENTS_CONFIG_DIR -> MULTI_AGENTS_HOME/config ->
// XDG_CONFIG_HOME/multi-agents -> $HOME/.config/multi-agents -> ./config.
func ConfigDir() string {
	if dir := os.Getenv("MULTI_AGENTS_CONFIG_DIR"); dir != "" {
		return dir
	}
	if home := os.Getenv("MULTI_AGENTS_HOME"); home != "" {
		return filepath.Join(home, "config")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "multi-agents")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".config", "multi-agents")
	}
	return "./config"
}

// DBPath resolves the sqlite store path following the priority chain:
// MULTI_AGENTS_DB -> MULTI_AGENTS_HOME/multi-agents.sqlite3 ->
// XDG_DATA_HOME/multi-agents/... -> $HOME/.local/share/multi-agents/... ->
// ./data/multi-agents.sqlite3.
func DBPath() string {
	if path := os.Getenv("MULTI_AGENTS_DB"); path != "" {
		return path
	}
	if home := os.Getenv("MULTI_AGENTS_HOME"); home != "" {
		return filepath.Join(home, "multi-agents.sqlite3")
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "multi-agents", "multi-agents.sqlite3")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".local", "share", "multi-agents", "multi-agents.sqlite3")
	}
	return filepath.Join("data", "multi-agents.sqlite3")
}

// LockRoot resolves the root directory under which the Terminal
// Multiplexer Driver keeps its per-(project, agent) file locks, following
// the analogous XDG-style chain terminating in ./locks.
func LockRoot() string {
	if path := os.Getenv("MULTI_AGENTS_LOCKS"); path != "" {
		return path
	}
	if home := os.Getenv("MULTI_AGENTS_HOME"); home != "" {
		return filepath.Join(home, "locks")
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "multi-agents", "locks")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".local", "share", "multi-agents", "locks")
	}
	return "./locks"
}

// LogRoot resolves the root directory under which per-project,
// per-role NDJSON log files are written, following the analogous
// XDG-style chain terminating in ./logs.
func LogRoot() string {
	if path := os.Getenv("MULTI_AGENTS_LOGS"); path != "" {
		return path
	}
	if home := os.Getenv("MULTI_AGENTS_HOME"); home != "" {
		return filepath.Join(home, "logs")
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "multi-agents", "logs")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".local", "share", "multi-agents", "logs")
	}
	return "./logs"
}
