// Package storage keeps the run ledger: one row per supervised session
// attempt.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type RunStatus string

const (
	StatusRunning RunStatus = "running"
	StatusStopped RunStatus = "stopped"
	StatusFailed  RunStatus = "failed"
	StatusAborted RunStatus = "aborted"
)

type Run struct {
	ID             string
	ConversationID string
	StartedAt      time.Time
	EndedAt        *time.Time // nil while running
	Status         RunStatus
	Reason         string
	TranscriptPath string
	Turns          int
}

type RunStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewRunStore opens (or creates) runs.db in dataDir.
func NewRunStore(dataDir string) (*RunStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "runs.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &RunStore{db: db, now: time.Now}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (s *RunStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		status TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		transcript_path TEXT NOT NULL DEFAULT '',
		turns INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Begin records a new running session and returns it.
func (s *RunStore) Begin(transcriptPath string) (Run, error) {
	run := Run{
		ID:             uuid.New().String(),
		StartedAt:      s.now().UTC(),
		Status:         StatusRunning,
		TranscriptPath: transcriptPath,
	}

	query := `
	INSERT INTO runs (id, started_at, status, transcript_path)
	VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.Exec(query, run.ID, run.StartedAt, string(run.Status), run.TranscriptPath); err != nil {
		return Run{}, fmt.Errorf("failed to record run start: %w", err)
	}
	return run, nil
}

// End closes run with its final status. ConversationID, Reason,
// TranscriptPath and Turns are taken from run.
func (s *RunStore) End(run Run) error {
	query := `
	UPDATE runs
	SET conversation_id = ?, ended_at = ?, status = ?, reason = ?, transcript_path = ?, turns = ?
	WHERE id = ?
	`

	res, err := s.db.Exec(query,
		run.ConversationID,
		s.now().UTC(),
		string(run.Status),
		run.Reason,
		run.TranscriptPath,
		run.Turns,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to record run end: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return nil
}

const runColumns = `id, conversation_id, started_at, ended_at, status, reason, transcript_path, turns`

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var run Run
	var status string
	var ended sql.NullTime
	err := row.Scan(
		&run.ID,
		&run.ConversationID,
		&run.StartedAt,
		&ended,
		&status,
		&run.Reason,
		&run.TranscriptPath,
		&run.Turns,
	)
	if err != nil {
		return Run{}, err
	}
	run.Status = RunStatus(status)
	if ended.Valid {
		t := ended.Time
		run.EndedAt = &t
	}
	return run, nil
}

// Load returns the run with id, or nil when there is none.
func (s *RunStore) Load(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns all of them.
func (s *RunStore) List(limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *RunStore) Close() error {
	return s.db.Close()
}
