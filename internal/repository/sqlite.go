package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			agent_name TEXT,
			parent_agent_name TEXT NOT NULL,
			state TEXT NOT NULL,
			error TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			ready_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			job_id TEXT PRIMARY KEY,
			agent_name TEXT NOT NULL,
			session_id TEXT,
			status TEXT NOT NULL,
			prompt TEXT NOT NULL,
			final_text TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			checked_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_session ON jobs(session_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			job_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT,
			FOREIGN KEY (job_id) REFERENCES jobs(job_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_job ON events(job_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertSessionAgent records the provisioning state of a session.
func (s *SQLiteStore) UpsertSessionAgent(ctx context.Context, agent *domain.SessionAgent) error {
	var name, errStr sql.NullString
	if agent.Name != "" {
		name = sql.NullString{String: agent.Name, Valid: true}
	}
	if agent.Error != "" {
		errStr = sql.NullString{String: agent.Error, Valid: true}
	}
	var readyAt sql.NullTime
	if agent.ReadyAt != nil {
		readyAt = sql.NullTime{Time: *agent.ReadyAt, Valid: true}
	}
	createdAt := agent.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, agent_name, parent_agent_name, state, error, created_at, ready_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			agent_name = excluded.agent_name,
			parent_agent_name = excluded.parent_agent_name,
			state = excluded.state,
			error = excluded.error,
			ready_at = excluded.ready_at`,
		agent.SessionID, name, agent.ParentAgentName, agent.State, errStr, createdAt, readyAt)
	return err
}

// GetSessionAgent retrieves the provisioning record of a session.
func (s *SQLiteStore) GetSessionAgent(ctx context.Context, sessionID string) (*domain.SessionAgent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, agent_name, parent_agent_name, state, error, created_at, ready_at FROM sessions WHERE session_id = ?`,
		sessionID)
	agent, err := scanSessionAgent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return agent, err
}

// ListSessionAgents lists every recorded session.
func (s *SQLiteStore) ListSessionAgents(ctx context.Context) ([]domain.SessionAgent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, agent_name, parent_agent_name, state, error, created_at, ready_at FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []domain.SessionAgent
	for rows.Next() {
		agent, err := scanSessionAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *agent)
	}
	return agents, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSessionAgent(row scanner) (*domain.SessionAgent, error) {
	var agent domain.SessionAgent
	var name, errStr sql.NullString
	var readyAt sql.NullTime
	if err := row.Scan(&agent.SessionID, &name, &agent.ParentAgentName, &agent.State, &errStr, &agent.CreatedAt, &readyAt); err != nil {
		return nil, err
	}
	if name.Valid {
		agent.Name = name.String
	}
	if errStr.Valid {
		agent.Error = errStr.String
	}
	if readyAt.Valid {
		agent.ReadyAt = &readyAt.Time
	}
	return &agent, nil
}

// CreateJob creates a new job record.
func (s *SQLiteStore) CreateJob(ctx context.Context, job *domain.JobRecord) error {
	var sessionID sql.NullString
	if job.SessionID != "" {
		sessionID = sql.NullString{String: job.SessionID, Valid: true}
	}
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = job.CreatedAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (job_id, agent_name, session_id, status, prompt, final_text, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.JobID, job.AgentName, sessionID, job.Status, job.Prompt, job.FinalText, job.CreatedAt, job.UpdatedAt)
	return err
}

// GetJob retrieves a job record by ID.
func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*domain.JobRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT job_id, agent_name, session_id, status, prompt, final_text, created_at, updated_at FROM jobs WHERE job_id = ?`,
		jobID)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

// UpdateJob updates the status of a job. A terminal status is never
// replaced, and an empty finalText keeps the stored one.
func (s *SQLiteStore) UpdateJob(ctx context.Context, jobID string, status domain.JobStatus, finalText string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET
			status = CASE WHEN status IN ('completed', 'failed', 'cancelled') THEN status ELSE ? END,
			final_text = CASE WHEN ? = '' THEN final_text ELSE ? END,
			updated_at = ?
		 WHERE job_id = ?`,
		status, finalText, finalText, time.Now(), jobID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("job not found: %s", jobID)
	}
	return nil
}

// TouchJob records that a job was just checked against the platform.
func (s *SQLiteStore) TouchJob(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE jobs SET checked_at = ? WHERE job_id = ?`, time.Now().UnixNano(), jobID)
	return err
}

// ListJobs lists jobs, newest first. An empty sessionID lists every job.
func (s *SQLiteStore) ListJobs(ctx context.Context, sessionID string, limit int) ([]domain.JobRecord, error) {
	query := `SELECT job_id, agent_name, session_id, status, prompt, final_text, created_at, updated_at FROM jobs`
	var args []interface{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.JobRecord
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// ListActiveJobs lists jobs that have not reached a terminal status. Jobs
// never checked come first, then the ones checked longest ago, so repeated
// sweeps rotate through every active job.
func (s *SQLiteStore) ListActiveJobs(ctx context.Context, limit int) ([]domain.JobRecord, error) {
	query := `SELECT job_id, agent_name, session_id, status, prompt, final_text, created_at, updated_at FROM jobs
		WHERE status NOT IN ('completed', 'failed', 'cancelled')
		ORDER BY checked_at IS NOT NULL, checked_at ASC, created_at ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.JobRecord
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanJob(row scanner) (*domain.JobRecord, error) {
	var job domain.JobRecord
	var sessionID, finalText sql.NullString
	if err := row.Scan(&job.JobID, &job.AgentName, &sessionID, &job.Status, &job.Prompt, &finalText, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	if sessionID.Valid {
		job.SessionID = sessionID.String
	}
	if finalText.Valid {
		job.FinalText = finalText.String
	}
	return &job, nil
}

// CreateEvent creates a new event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	payload := ""
	if event.Payload != nil {
		payload = string(event.Payload)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (event_id, job_id, ts, type, payload) VALUES (?, ?, ?, ?, ?)`,
		event.EventID, event.JobID, event.Ts, event.Type, payload)
	return err
}

// GetEvents retrieves events for a job.
func (s *SQLiteStore) GetEvents(ctx context.Context, jobID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	query := `SELECT event_id, job_id, ts, type, payload FROM events WHERE job_id = ?`
	args := []interface{}{jobID}

	if afterTs > 0 {
		query += ` AND ts > ?`
		args = append(args, afterTs)
	}

	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += fmt.Sprintf(" AND type IN (%s)", strings.Join(placeholders, ","))
	}

	query += ` ORDER BY ts ASC, rowid ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		var payload sql.NullString
		if err := rows.Scan(&event.EventID, &event.JobID, &event.Ts, &event.Type, &payload); err != nil {
			return nil, err
		}
		if payload.Valid && payload.String != "" {
			event.Payload = json.RawMessage(payload.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
