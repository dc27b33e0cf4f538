package store

import (
	"database/sql"
	"fmt"
)

const schemaVersion = 1

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		provider_key TEXT NOT NULL,
		model TEXT NOT NULL,
		allowed_tools_json TEXT NOT NULL DEFAULT '[]',
		system_prompt TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		UNIQUE(project_id, name)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_agents_project_name ON agents(project_id, name)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		agent_id TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
		provider_key TEXT NOT NULL,
		provider_session_id TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL,
		last_activity TEXT,
		metadata_json TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_project_status_created ON sessions(project_id, status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_provider_session_id ON sessions(provider_session_id)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		sender TEXT NOT NULL,
		content TEXT NOT NULL,
		broadcast_id TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_session_created ON messages(session_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS broadcasts (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		mode TEXT NOT NULL,
		targets_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'todo',
		assignee_agent_id TEXT REFERENCES agents(id) ON DELETE SET NULL,
		created_at TEXT NOT NULL
	)`,
}

// Init creates the schema if it does not already exist and records the
// applied schema version in the migrations ledger. It is safe to call on
// every startup.
func Init(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema init: %w", err)
	}
	defer tx.Rollback()

	for _, statement := range schemaStatements {
		if _, err := tx.Exec(statement); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}

	var applied int
	if err := tx.QueryRow(`SELECT COUNT(1) FROM migrations WHERE version = ?`, schemaVersion).Scan(&applied); err != nil {
		return fmt.Errorf("check migration ledger: %w", err)
	}
	if applied == 0 {
		if _, err := tx.Exec(`INSERT INTO migrations (version, applied_at) VALUES (?, datetime('now'))`, schemaVersion); err != nil {
			return fmt.Errorf("record migration: %w", err)
		}
	}

	return tx.Commit()
}
