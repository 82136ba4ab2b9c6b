// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/parley/internal/model"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// RecentWindow bounds how far back prompt assembly looks for entries.
const RecentWindow = 7 * 24 * time.Hour

// ErrSessionNotFound is returned when a session lookup matches nothing.
var ErrSessionNotFound = errors.New("session not found")

// =============================================================================
// TYPES
// =============================================================================

// Session groups the entries of one conversation.
type Session struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Entry is one stored message.
type Entry struct {
	ID        int64
	SessionID int64
	Role      model.Role
	Content   string
	Model     string
	CreatedAt time.Time
}

// Message converts a stored entry for prompt assembly.
func (e Entry) Message() model.Message {
	return model.Message{
		Role:      e.Role,
		Content:   e.Content,
		Model:     e.Model,
		Timestamp: e.CreatedAt,
	}
}

// =============================================================================
// STORE
// =============================================================================

// Store wraps the sqlite database. Safe for use from one process; the
// connection pool is capped at a single connection, which sqlite handles
// best.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the conversation database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set %s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entries (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES sessions(id),
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		model      TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_session_time
		ON entries(session_id, created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// =============================================================================
// SESSIONS
// =============================================================================

// CreateSession starts a new conversation. An empty name gets a short
// random one, so every session can be addressed later.
func (s *Store) CreateSession(ctx context.Context, name string) (Session, error) {
	if name == "" {
		name = randomName()
	}
	now := time.Now()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (name, created_at) VALUES (?, ?)",
		name, now.Unix())
	if err != nil {
		return Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Session{}, fmt.Errorf("failed to read session id: %w", err)
	}
	return Session{ID: id, Name: name, CreatedAt: now}, nil
}

// FindSession looks a session up by name.
func (s *Store) FindSession(ctx context.Context, name string) (Session, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM sessions WHERE name = ? ORDER BY id LIMIT 1",
		name)
	return scanSession(row)
}

// LastSession returns the most recently created session, or
// ErrSessionNotFound when the database is empty.
func (s *Store) LastSession(ctx context.Context) (Session, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM sessions ORDER BY created_at DESC, id DESC LIMIT 1")
	return scanSession(row)
}

// Sessions returns all sessions, newest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM sessions ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var createdAt int64
		if err := rows.Scan(&sess.ID, &sess.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sess.CreatedAt = time.Unix(createdAt, 0)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// RenameSession changes a session's name.
func (s *Store) RenameSession(ctx context.Context, id int64, newName string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET name = ? WHERE id = ?", newName, id)
	if err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func scanSession(row *sql.Row) (Session, error) {
	var sess Session
	var createdAt int64
	if err := row.Scan(&sess.ID, &sess.Name, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("failed to scan session: %w", err)
	}
	sess.CreatedAt = time.Unix(createdAt, 0)
	return sess, nil
}

func randomName() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// =============================================================================
// ENTRIES
// =============================================================================

// AppendEntry records one message in a session. modelName is empty for
// user messages.
func (s *Store) AppendEntry(ctx context.Context, sessionID int64, role model.Role, content, modelName string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO entries (session_id, role, content, model, created_at) VALUES (?, ?, ?, ?, ?)",
		sessionID, role.String(), content, modelName, time.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to append entry: %w", err)
	}
	return res.LastInsertId()
}

// RecentEntries returns a session's entries created at or after since,
// oldest first.
func (s *Store) RecentEntries(ctx context.Context, sessionID int64, since time.Time) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, model, created_at
		 FROM entries
		 WHERE session_id = ? AND created_at >= ?
		 ORDER BY created_at ASC, id ASC`,
		sessionID, since.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var role string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.SessionID, &role, &e.Content, &e.Model, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Role = model.Role(role)
		e.CreatedAt = time.Unix(0, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteEntry removes one entry by id. Deleting a missing entry is not
// an error.
func (s *Store) DeleteEntry(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil
}
