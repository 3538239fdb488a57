// Package history journals booking attempts in a local sqlite database.
// Each attempt spends one email alias whether or not it succeeded, so the
// journal is the operator's record of which aliases and seats were used.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const (
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

// Attempt is one journaled booking attempt.
type Attempt struct {
	ID         string
	Seat       string
	Start      string
	End        string
	EmailAlias string
	Status     string
	Error      string
	CreatedAt  time.Time
}

type DB struct {
	db *sql.DB
}

// NewDB opens (and if needed creates) the journal at path.
func NewDB(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %v", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to history database: %v", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	return &DB{db: db}, nil
}

func createTables(db *sql.DB) error {
	query := `CREATE TABLE IF NOT EXISTS attempts (
        id TEXT PRIMARY KEY,
        seat TEXT NOT NULL,
        start_time TEXT,
        end_time TEXT,
        email_alias TEXT NOT NULL,
        status TEXT NOT NULL,
        error TEXT,
        created_at DATETIME NOT NULL
    )`
	_, err := db.Exec(query)
	return err
}

func (d *DB) Close() error {
	return d.db.Close()
}

// RecordAttempt inserts one attempt. A missing id or timestamp is filled in.
func (d *DB) RecordAttempt(ctx context.Context, a Attempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO attempts (id, seat, start_time, end_time, email_alias, status, error, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Seat, a.Start, a.End, a.EmailAlias, a.Status, a.Error, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// ListAttempts returns the most recent attempts, newest first.
func (d *DB) ListAttempts(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, seat, start_time, end_time, email_alias, status, error, created_at
         FROM attempts ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.Seat, &a.Start, &a.End, &a.EmailAlias, &a.Status, &a.Error, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
