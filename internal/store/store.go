package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"

	"multiagents/internal/coreerr"
	"multiagents/internal/ids"
)

// Store exposes CRUD on the core entities. It is the only legal mutator
// of persistent state; every other component holds read-only snapshots.
type Store struct {
	db    *sql.DB
	clock ids.Clock
}

func New(db *sql.DB) *Store {
	return &Store{db: db, clock: ids.SystemClock{}}
}

// WithClock substitutes the clock used for created_at/last_activity
// stamps; used by tests that need deterministic timestamps.
func (s *Store) WithClock(clock ids.Clock) *Store {
	return &Store{db: s.db, clock: clock}
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return coreerr.Wrap(coreerr.StoreError, err)
}

// EnsureProjectFromConfig idempotently creates/updates the project and its
// agents from a configuration snapshot in a single transaction.
func (s *Store) EnsureProjectFromConfig(ctx context.Context, snapshot ConfigSnapshot) (Project, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Project{}, storeErr(err)
	}
	defer tx.Rollback()

	now := s.clock.Now()
	project, err := s.findProjectByNameTx(ctx, tx, snapshot.ProjectName)
	if err != nil {
		return Project{}, err
	}
	if project.ID == "" {
		project = Project{ID: ids.New(), Name: snapshot.ProjectName, CreatedAt: now}
		if _, err := tx.ExecContext(ctx, `INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)`,
			project.ID, project.Name, ids.FormatTimestamp(project.CreatedAt)); err != nil {
			return Project{}, storeErr(err)
		}
	}

	for _, cfg := range snapshot.Agents {
		toolsJSON, err := json.Marshal(cfg.AllowedTools)
		if err != nil {
			return Project{}, coreerr.Wrap(coreerr.Generic, err)
		}
		existingID, err := s.findAgentIDTx(ctx, tx, project.ID, cfg.Name)
		if err != nil {
			return Project{}, err
		}
		if existingID == "" {
			if _, err := tx.ExecContext(ctx, `INSERT INTO agents
				(id, project_id, name, role, provider_key, model, allowed_tools_json, system_prompt, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				ids.New(), project.ID, cfg.Name, cfg.Role, cfg.ProviderKey, cfg.Model, string(toolsJSON), cfg.SystemPrompt, ids.FormatTimestamp(now)); err != nil {
				return Project{}, storeErr(err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE agents SET role = ?, provider_key = ?, model = ?, allowed_tools_json = ?, system_prompt = ?
			WHERE id = ?`, cfg.Role, cfg.ProviderKey, cfg.Model, string(toolsJSON), cfg.SystemPrompt, existingID); err != nil {
			return Project{}, storeErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Project{}, storeErr(err)
	}
	return project, nil
}

func (s *Store) findProjectByNameTx(ctx context.Context, tx *sql.Tx, name string) (Project, error) {
	var project Project
	var createdAt string
	err := tx.QueryRowContext(ctx, `SELECT id, name, created_at FROM projects WHERE name = ?`, name).
		Scan(&project.ID, &project.Name, &createdAt)
	if err == sql.ErrNoRows {
		return Project{}, nil
	}
	if err != nil {
		return Project{}, storeErr(err)
	}
	project.CreatedAt, _ = time.Parse("2006-01-02T15:04:05.000Z", createdAt)
	return project, nil
}

func (s *Store) findAgentIDTx(ctx context.Context, tx *sql.Tx, projectID, name string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM agents WHERE project_id = ? AND name = ?`, projectID, name).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", storeErr(err)
	}
	return id, nil
}

// CreateProject creates a new project; returns invalid_input if the name
// is already taken.
func (s *Store) CreateProject(ctx context.Context, name string) (Project, error) {
	project := Project{ID: ids.New(), Name: name, CreatedAt: s.clock.Now()}
	_, err := s.db.ExecContext(ctx, `INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)`,
		project.ID, project.Name, ids.FormatTimestamp(project.CreatedAt))
	if err != nil {
		return Project{}, coreerr.Wrap(coreerr.InvalidInput, err)
	}
	return project, nil
}

func (s *Store) FindProjectByName(ctx context.Context, name string) (Project, error) {
	var project Project
	var createdAt string
	err := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM projects WHERE name = ?`, name).
		Scan(&project.ID, &project.Name, &createdAt)
	if err == sql.ErrNoRows {
		return Project{}, coreerr.New(coreerr.InvalidInput, "project not found: "+name)
	}
	if err != nil {
		return Project{}, storeErr(err)
	}
	project.CreatedAt, _ = time.Parse("2006-01-02T15:04:05.000Z", createdAt)
	return project, nil
}

// CreateAgent creates a new agent under project; (project_id, name) must
// be unique.
func (s *Store) CreateAgent(ctx context.Context, a Agent) (Agent, error) {
	a.ID = ids.New()
	a.CreatedAt = s.clock.Now()
	toolsJSON, err := json.Marshal(a.AllowedTools)
	if err != nil {
		return Agent{}, coreerr.Wrap(coreerr.Generic, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO agents
		(id, project_id, name, role, provider_key, model, allowed_tools_json, system_prompt, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ProjectID, a.Name, a.Role, a.ProviderKey, a.Model, string(toolsJSON), a.SystemPrompt, ids.FormatTimestamp(a.CreatedAt))
	if err != nil {
		return Agent{}, coreerr.Wrap(coreerr.InvalidInput, err)
	}
	return a, nil
}

func (s *Store) FindAgentByName(ctx context.Context, projectID, name string) (Agent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, project_id, name, role, provider_key, model, allowed_tools_json, system_prompt, created_at
		FROM agents WHERE project_id = ? AND name = ?`, projectID, name)
	agent, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return Agent{}, coreerr.New(coreerr.InvalidInput, "agent not found: "+name)
	}
	return agent, err
}

func (s *Store) FindAgentByID(ctx context.Context, id string) (Agent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, project_id, name, role, provider_key, model, allowed_tools_json, system_prompt, created_at
		FROM agents WHERE id = ?`, id)
	agent, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return Agent{}, coreerr.New(coreerr.InvalidInput, "agent not found: "+id)
	}
	return agent, err
}

// ListAgentsByRole returns all agents in project with the given role, in
// insertion order. An empty role returns every agent in the project.
func (s *Store) ListAgentsByRole(ctx context.Context, projectID, role string) ([]Agent, error) {
	query := `SELECT id, project_id, name, role, provider_key, model, allowed_tools_json, system_prompt, created_at
		FROM agents WHERE project_id = ?`
	args := []any{projectID}
	if role != "" {
		query += ` AND role = ?`
		args = append(args, role)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		agents = append(agents, agent)
	}
	return agents, storeErr(rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (Agent, error) {
	var agent Agent
	var toolsJSON, createdAt string
	if err := row.Scan(&agent.ID, &agent.ProjectID, &agent.Name, &agent.Role, &agent.ProviderKey, &agent.Model, &toolsJSON, &agent.SystemPrompt, &createdAt); err != nil {
		return Agent{}, err
	}
	_ = json.Unmarshal([]byte(toolsJSON), &agent.AllowedTools)
	agent.CreatedAt, _ = time.Parse("2006-01-02T15:04:05.000Z", createdAt)
	return agent, nil
}

// CreateSession inserts a new session row. The provider_key must equal
// the agent's provider_key at creation time.
func (s *Store) CreateSession(ctx context.Context, projectID, agentID string) (Session, error) {
	return s.CreateSessionWithMetadata(ctx, projectID, agentID, nil)
}

// CreateSessionWithMetadata is CreateSession plus an opaque metadata
// sidecar (e.g. the REPL startup's working directory), YAML-encoded into
// the metadata_json column.
func (s *Store) CreateSessionWithMetadata(ctx context.Context, projectID, agentID string, metadata map[string]string) (Session, error) {
	agent, err := s.FindAgentByID(ctx, agentID)
	if err != nil {
		return Session{}, err
	}
	now := s.clock.Now()
	session := Session{
		ID:          ids.New(),
		ProjectID:   projectID,
		AgentID:     agentID,
		ProviderKey: agent.ProviderKey,
		Status:      SessionActive,
		CreatedAt:   now,
		Metadata:    metadata,
	}

	var metadataJSON sql.NullString
	if len(metadata) > 0 {
		encoded, err := yaml.Marshal(metadata)
		if err != nil {
			return Session{}, err
		}
		metadataJSON = sql.NullString{String: string(encoded), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO sessions (id, project_id, agent_id, provider_key, status, created_at, metadata_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, session.ID, session.ProjectID, session.AgentID, session.ProviderKey, session.Status, ids.FormatTimestamp(now), metadataJSON)
	if err != nil {
		return Session{}, storeErr(err)
	}
	return session, nil
}

func (s *Store) FindSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, project_id, agent_id, provider_key, provider_session_id, status, created_at, last_activity, metadata_json
		FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return Session{}, coreerr.New(coreerr.InvalidInput, "session not found: "+id)
	}
	return session, err
}

// ListSessions lists sessions for project under filter, defaulting to
// status=active, limit=50, ordered by created_at descending.
func (s *Store) ListSessions(ctx context.Context, projectID string, filter SessionFilter) ([]Session, error) {
	status := filter.Status
	if status == "" {
		status = SessionActive
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, project_id, agent_id, provider_key, provider_session_id, status, created_at, last_activity, metadata_json
		FROM sessions WHERE project_id = ? AND status = ?`
	args := []any{projectID, status}
	if filter.AgentID != "" {
		query += ` AND agent_id = ?`
		args = append(args, filter.AgentID)
	}
	if filter.ProviderKey != "" {
		query += ` AND provider_key = ?`
		args = append(args, filter.ProviderKey)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		sessions = append(sessions, session)
	}
	return sessions, storeErr(rows.Err())
}

// TouchSession advances last_activity and optionally sets the provider
// native token, atomically.
func (s *Store) TouchSession(ctx context.Context, id string, providerSessionID string) error {
	now := ids.FormatTimestamp(s.clock.Now())
	if providerSessionID == "" {
		_, err := s.db.ExecContext(ctx, `UPDATE sessions SET last_activity = ? WHERE id = ?`, now, id)
		return storeErr(err)
	}
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET last_activity = ?, provider_session_id = ? WHERE id = ?`, now, providerSessionID, id)
	return storeErr(err)
}

// MarkSessionStatus transitions a session's status (e.g. to invalid when
// the provider reports the native token unusable).
func (s *Store) MarkSessionStatus(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET status = ? WHERE id = ?`, status, id)
	return storeErr(err)
}

// CleanupExpiredSessions marks sessions whose max(last_activity,
// created_at) + ttl < now as expired. Returns the number of rows marked.
func (s *Store) CleanupExpiredSessions(ctx context.Context, now time.Time, ttl time.Duration, dryRun bool) (int64, error) {
	cutoff := ids.FormatTimestamp(now.Add(-ttl))
	query := `SELECT id FROM sessions WHERE status = ? AND COALESCE(last_activity, created_at) < ?`
	rows, err := s.db.QueryContext(ctx, query, SessionActive, cutoff)
	if err != nil {
		return 0, storeErr(err)
	}
	var candidates []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, storeErr(err)
		}
		candidates = append(candidates, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, storeErr(err)
	}

	if dryRun || len(candidates) == 0 {
		return int64(len(candidates)), nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeErr(err)
	}
	defer tx.Rollback()
	for _, id := range candidates {
		if _, err := tx.ExecContext(ctx, `UPDATE sessions SET status = ? WHERE id = ?`, SessionExpired, id); err != nil {
			return 0, storeErr(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, storeErr(err)
	}
	return int64(len(candidates)), nil
}

func scanSession(row rowScanner) (Session, error) {
	var session Session
	var providerSessionID, lastActivity, metadataJSON sql.NullString
	var createdAt string
	if err := row.Scan(&session.ID, &session.ProjectID, &session.AgentID, &session.ProviderKey, &providerSessionID, &session.Status, &createdAt, &lastActivity, &metadataJSON); err != nil {
		return Session{}, err
	}
	session.ProviderSessionID = providerSessionID.String
	session.CreatedAt, _ = time.Parse("2006-01-02T15:04:05.000Z", createdAt)
	if lastActivity.Valid {
		t, err := time.Parse("2006-01-02T15:04:05.000Z", lastActivity.String)
		if err == nil {
			session.LastActivity = &t
		}
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		var metadata map[string]string
		if err := yaml.Unmarshal([]byte(metadataJSON.String), &metadata); err == nil {
			session.Metadata = metadata
		}
	}
	return session, nil
}

// InsertBroadcastWithMessages inserts one Broadcast row and one per-target
// Message (sender=user, shared broadcast_id) in a single transaction, as
// required before dispatch.
func (s *Store) InsertBroadcastWithMessages(ctx context.Context, projectID, mode, content string, targetSessionIDs []string) (Broadcast, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Broadcast{}, storeErr(err)
	}
	defer tx.Rollback()

	now := s.clock.Now()
	targetsJSON, err := json.Marshal(targetSessionIDs)
	if err != nil {
		return Broadcast{}, coreerr.Wrap(coreerr.Generic, err)
	}
	broadcast := Broadcast{ID: ids.New(), ProjectID: projectID, Mode: mode, Targets: targetSessionIDs, CreatedAt: now}
	if _, err := tx.ExecContext(ctx, `INSERT INTO broadcasts (id, project_id, mode, targets_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		broadcast.ID, projectID, mode, string(targetsJSON), ids.FormatTimestamp(now)); err != nil {
		return Broadcast{}, storeErr(err)
	}

	for _, sessionID := range targetSessionIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO messages (id, session_id, sender, content, broadcast_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			ids.New(), sessionID, MessageSenderUser, content, broadcast.ID, ids.FormatTimestamp(now)); err != nil {
			return Broadcast{}, storeErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Broadcast{}, storeErr(err)
	}
	return broadcast, nil
}

// InsertMessage appends a single message to a session's history.
func (s *Store) InsertMessage(ctx context.Context, sessionID, sender, content, broadcastID string) (Message, error) {
	message := Message{
		ID:          ids.New(),
		SessionID:   sessionID,
		Sender:      sender,
		Content:     content,
		BroadcastID: broadcastID,
		CreatedAt:   s.clock.Now(),
	}
	var broadcastArg any
	if broadcastID != "" {
		broadcastArg = broadcastID
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO messages (id, session_id, sender, content, broadcast_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		message.ID, message.SessionID, message.Sender, message.Content, broadcastArg, ids.FormatTimestamp(message.CreatedAt))
	if err != nil {
		return Message{}, storeErr(err)
	}
	return message, nil
}

// CreateTask creates a task row under project.
func (s *Store) CreateTask(ctx context.Context, projectID, title string) (Task, error) {
	task := Task{ID: ids.New(), ProjectID: projectID, Title: title, Status: TaskStatusTodo, CreatedAt: s.clock.Now()}
	_, err := s.db.ExecContext(ctx, `INSERT INTO tasks (id, project_id, title, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		task.ID, task.ProjectID, task.Title, task.Status, ids.FormatTimestamp(task.CreatedAt))
	if err != nil {
		return Task{}, storeErr(err)
	}
	return task, nil
}

// ListTasks lists a project's tasks, optionally filtered by status,
// ordered by created_at descending. Consumed by the out-of-core Kanban
// UI and by supervisors wanting task-completion context alongside the
// routed-event metrics.
func (s *Store) ListTasks(ctx context.Context, projectID, status string) ([]Task, error) {
	query := `SELECT id, project_id, title, status, assignee_agent_id, created_at FROM tasks WHERE project_id = ?`
	args := []any{projectID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		tasks = append(tasks, task)
	}
	return tasks, storeErr(rows.Err())
}

// UpdateTaskStatus transitions a task's status (todo/doing/done).
func (s *Store) UpdateTaskStatus(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE id = ?`, status, id)
	return storeErr(err)
}

// AssignTask sets (or, with an empty agentID, clears) a task's assignee.
func (s *Store) AssignTask(ctx context.Context, id, agentID string) error {
	var arg any
	if agentID != "" {
		arg = agentID
	}
	_, err := s.db.ExecContext(ctx, `UPDATE tasks SET assignee_agent_id = ? WHERE id = ?`, arg, id)
	return storeErr(err)
}

func scanTask(row rowScanner) (Task, error) {
	var task Task
	var assignee sql.NullString
	var createdAt string
	if err := row.Scan(&task.ID, &task.ProjectID, &task.Title, &task.Status, &assignee, &createdAt); err != nil {
		return Task{}, err
	}
	task.AssigneeAgentID = assignee.String
	task.CreatedAt, _ = time.Parse("2006-01-02T15:04:05.000Z", createdAt)
	return task, nil
}
