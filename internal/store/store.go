// Package store provides the SQLite storage layer for academic tasks.
//
// Tasks carry the courses, keywords and due date extracted from the text
// they were created from, plus the full parse record for later inspection.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "tasks.db"

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Status is a task lifecycle state.
type Status string

// Task states.
const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known state.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

var (
	// ErrNotFound is returned when no task has the requested id.
	ErrNotFound = errors.New("task not found")

	// ErrInvalidStatus is returned for a status outside pending, completed
	// and cancelled.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrNoChanges is returned by Update when the update sets nothing.
	ErrNoChanges = errors.New("no fields to update")

	// ErrTitleRequired is returned when a task has an empty title.
	ErrTitleRequired = errors.New("title is required")
)

// Task is a stored academic task.
type Task struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Courses      []string        `json:"courses"`
	Keywords     []string        `json:"keywords"`
	DueDate      *time.Time      `json:"due_date"`
	Status       Status          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	OriginalText string          `json:"original_text"`
	ParsedData   json.RawMessage `json:"parsed_data,omitempty"`
}

// TaskUpdate lists the fields to change. Nil fields are left alone.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *Status
	DueDate     *time.Time

	// ClearDueDate removes the due date. It wins over DueDate.
	ClearDueDate bool
}

func (u TaskUpdate) empty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil && u.DueDate == nil && !u.ClearDueDate
}

// Config holds configuration for NewStore.
type Config struct {
	DBPath string

	// Clock overrides time.Now for created_at and updated_at.
	Clock func() time.Time
}

// Store defines the task storage interface.
type Store interface {
	Create(ctx context.Context, t *Task) (int64, error)
	Get(ctx context.Context, id int64) (*Task, error)
	List(ctx context.Context, status Status) ([]*Task, error)
	Update(ctx context.Context, id int64, u TaskUpdate) error
	Delete(ctx context.Context, id int64) error
	Complete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	clock  func() time.Time
}

// NewStore creates a new SQLite-backed Store.
// Pass ":memory:" for in-memory databases (testing).
func NewStore(cfg Config) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	if cfg.DBPath != MemoryPath {
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating db directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every connection to ":memory:" is its own database.
	if cfg.DBPath == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{
		db:     db,
		dbPath: cfg.DBPath,
		clock:  cfg.Clock,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

func (s *SQLiteStore) now() string {
	return formatTime(s.clock())
}

// Timestamps are stored as UTC RFC 3339 text so lexical order is
// chronological.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
