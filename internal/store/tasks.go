package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const taskColumns = `id, title, description, courses, keywords, due_date, status,
	created_at, updated_at, original_text, parsed_data`

// Create inserts t and returns its id. ID, CreatedAt and UpdatedAt are
// filled in on t. An empty status becomes pending.
func (s *SQLiteStore) Create(ctx context.Context, t *Task) (int64, error) {
	if strings.TrimSpace(t.Title) == "" {
		return 0, ErrTitleRequired
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if !t.Status.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}

	courses, err := encodeList(t.Courses)
	if err != nil {
		return 0, fmt.Errorf("encoding courses: %w", err)
	}
	keywords, err := encodeList(t.Keywords)
	if err != nil {
		return 0, fmt.Errorf("encoding keywords: %w", err)
	}
	parsed := string(t.ParsedData)
	if parsed == "" {
		parsed = "{}"
	}

	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (title, description, courses, keywords, due_date, status,
			created_at, updated_at, original_text, parsed_data)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Title, t.Description, courses, keywords, nullableTime(t.DueDate), string(t.Status),
		now, now, t.OriginalText, parsed,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading task id: %w", err)
	}

	t.ID = id
	t.CreatedAt, _ = parseTime(now)
	t.UpdatedAt = t.CreatedAt
	return id, nil
}

// Get returns the task with id, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %d: %w", id, err)
	}
	return t, nil
}

// List returns tasks ordered by due date, earliest first, with undated
// tasks last. An empty status lists every task.
func (s *SQLiteStore) List(ctx context.Context, status Status) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	if status != "" {
		if !status.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
		}
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY due_date IS NULL, due_date ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update applies u to the task with id.
func (s *SQLiteStore) Update(ctx context.Context, id int64, u TaskUpdate) error {
	if u.empty() {
		return ErrNoChanges
	}

	var sets []string
	var args []any

	if u.Title != nil {
		if strings.TrimSpace(*u.Title) == "" {
			return ErrTitleRequired
		}
		sets = append(sets, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *u.Description)
	}
	if u.Status != nil {
		if !u.Status.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidStatus, *u.Status)
		}
		sets = append(sets, "status = ?")
		args = append(args, string(*u.Status))
	}
	switch {
	case u.ClearDueDate:
		sets = append(sets, "due_date = NULL")
	case u.DueDate != nil:
		sets = append(sets, "due_date = ?")
		args = append(args, formatTime(*u.DueDate))
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, s.now(), id)

	// #nosec G202 -- column names are fixed above; values are bound.
	query := `UPDATE tasks SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	return s.execOne(ctx, id, "updating", query, args...)
}

// Delete removes the task with id.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	return s.execOne(ctx, id, "deleting", `DELETE FROM tasks WHERE id = ?`, id)
}

// Complete marks the task with id as completed.
func (s *SQLiteStore) Complete(ctx context.Context, id int64) error {
	return s.execOne(ctx, id, "completing",
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		string(StatusCompleted), s.now(), id)
}

// execOne runs a statement that must touch exactly the row with id.
func (s *SQLiteStore) execOne(ctx context.Context, id int64, verb, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s task %d: %w", verb, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s task %d: %w", verb, id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	t := &Task{}
	var (
		courses, keywords, status string
		createdAt, updatedAt      string
		parsed                    string
		due                       sql.NullString
	)

	if err := row.Scan(&t.ID, &t.Title, &t.Description, &courses, &keywords, &due, &status,
		&createdAt, &updatedAt, &t.OriginalText, &parsed); err != nil {
		return nil, err
	}

	t.Status = Status(status)
	t.Courses = decodeList(courses)
	t.Keywords = decodeList(keywords)
	if parsed != "" && parsed != "{}" {
		t.ParsedData = json.RawMessage(parsed)
	}

	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}
	if due.Valid && due.String != "" {
		d, err := parseTime(due.String)
		if err != nil {
			return nil, fmt.Errorf("due_date: %w", err)
		}
		t.DueDate = &d
	}

	return t, nil
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	return string(b), err
}

// decodeList tolerates malformed rows by returning an empty list.
func decodeList(s string) []string {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
