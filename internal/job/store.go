package job

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Record is one row of job history.
type Record struct {
	ID         string     `json:"id"`
	Input      string     `json:"input"`
	Preset     string     `json:"preset"`
	Artifact   string     `json:"artifact,omitempty"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Store keeps job history in SQLite. Store failures are advisory: the
// runner logs them and the job proceeds.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id          TEXT PRIMARY KEY,
		input       TEXT NOT NULL,
		preset      TEXT,
		artifact    TEXT,
		status      TEXT NOT NULL,
		error       TEXT,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		finished_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_created ON jobs(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Create inserts a running job record and returns its ID.
func (s *Store) Create(ctx context.Context, req Request) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, input, preset, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, req.File, req.Preset, StatusRunning, time.Now(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Finish marks a job terminal.
func (s *Store) Finish(ctx context.Context, id, status, artifact, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status=?, artifact=?, error=?, finished_at=? WHERE id=?`,
		status, artifact, errMsg, time.Now(), id,
	)
	return err
}

// Recent returns the most recently created job records.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input, preset, artifact, status, error, created_at, finished_at
		 FROM jobs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var artifact, errMsg sql.NullString
		var finished sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.Input, &rec.Preset, &artifact, &rec.Status, &errMsg, &rec.CreatedAt, &finished); err != nil {
			return nil, err
		}
		rec.Artifact = artifact.String
		rec.Error = errMsg.String
		if finished.Valid {
			t := finished.Time
			rec.FinishedAt = &t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
