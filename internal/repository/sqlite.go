// Package repository holds durable session storage.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/gogo/navigator/internal/domain"
	"github.com/xiaot623/gogo/navigator/internal/session"
)

// SQLiteStore implements session.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ session.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens dsn and migrates the schema.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

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

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL,
			last_activity DATETIME NOT NULL,
			context TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			PRIMARY KEY (session_id, seq),
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_last_activity ON sessions(last_activity)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get loads a session and its history.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	var (
		sess    domain.Session
		rawCtx  sql.NullString
		created time.Time
		active  time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, created_at, last_activity, context FROM sessions WHERE session_id = ?`,
		id).Scan(&sess.SessionID, &created, &active, &rawCtx)
	if err == sql.ErrNoRows {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sess.CreatedAt, sess.LastActivity = created.UTC(), active.UTC()

	sess.Context = map[string]any{}
	if rawCtx.Valid && rawCtx.String != "" {
		if err := json.Unmarshal([]byte(rawCtx.String), &sess.Context); err != nil {
			return nil, fmt.Errorf("failed to decode session context: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM messages WHERE session_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sess.History = []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, err
		}
		sess.History = append(sess.History, msg)
	}
	return &sess, rows.Err()
}

// Save writes the session and replaces its stored history.
func (s *SQLiteStore) Save(ctx context.Context, sess *domain.Session) error {
	rawCtx, err := json.Marshal(sess.Context)
	if err != nil {
		return fmt.Errorf("failed to encode session context: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, created_at, last_activity, context) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET last_activity = excluded.last_activity, context = excluded.context`,
		sess.SessionID, sess.CreatedAt.UTC(), sess.LastActivity.UTC(), string(rawCtx)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sess.SessionID); err != nil {
		return err
	}
	for i, msg := range sess.History {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (session_id, seq, role, content) VALUES (?, ?, ?, ?)`,
			sess.SessionID, i, msg.Role, msg.Content); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Delete removes a session and its messages.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return session.ErrNotFound
	}
	return nil
}

// Sweep deletes sessions idle since before cutoff.
func (s *SQLiteStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE last_activity < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
