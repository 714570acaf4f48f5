package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultRecentLimit bounds Recent when the caller passes no limit.
const DefaultRecentLimit = 20

const maxRecentLimit = 200

var (
	// ErrNotFound is returned when a session id does not exist.
	ErrNotFound = errors.New("store: session not found")
	// ErrEmptyTranscript rejects saving a blank combined transcript.
	ErrEmptyTranscript = errors.New("store: empty transcript")
)

// Session is one archived match.
type Session struct {
	ID        int64      `json:"id"`
	Text      string     `json:"text"`
	Grade     string     `json:"grade"`
	Feedback  string     `json:"feedback"`
	CreatedAt time.Time  `json:"createdAt"`
	GradedAt  *time.Time `json:"gradedAt,omitempty"`
}

// Graded reports whether the grade update has landed.
func (s Session) Graded() bool {
	return s.GradedAt != nil
}

// Store is the SQLite-backed session archive.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open creates or connects to the archive at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("store: database path required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps SQLite from reporting busy under concurrent saves.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSessionTranscript archives a combined transcript and returns its id.
func (s *Store) SaveSessionTranscript(ctx context.Context, text string) (int64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, ErrEmptyTranscript
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (text, created_at) VALUES (?, ?)",
		text, formatTime(s.now()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("session id: %w", err)
	}
	return id, nil
}

// UpdateSessionGrade attaches the grade and feedback summary to a session.
func (s *Store) UpdateSessionGrade(ctx context.Context, id int64, grade, feedback string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET grade = ?, feedback = ?, graded_at = ? WHERE id = ?",
		grade, feedback, formatTime(s.now()), id,
	)
	if err != nil {
		return fmt.Errorf("update session %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update session %d: %w", id, ErrNotFound)
	}
	return nil
}

// Session returns one archived session.
func (s *Store) Session(ctx context.Context, id int64) (Session, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, text, grade, feedback, created_at, graded_at FROM sessions WHERE id = ?", id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("session %d: %w", id, err)
	}
	return sess, nil
}

// Recent lists the newest sessions first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	limit = min(limit, maxRecentLimit)

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, text, grade, feedback, created_at, graded_at FROM sessions ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var (
		sess      Session
		createdAt string
		gradedAt  sql.NullString
	)
	if err := row.Scan(&sess.ID, &sess.Text, &sess.Grade, &sess.Feedback, &createdAt, &gradedAt); err != nil {
		return Session{}, err
	}
	sess.CreatedAt = parseTime(createdAt)
	if gradedAt.Valid && gradedAt.String != "" {
		t := parseTime(gradedAt.String)
		sess.GradedAt = &t
	}
	return sess, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
