// Package storage provides the SQLite requirement session store.
// Clean Architecture: Adapter implementing ports.SessionStore.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
)

const sessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	phase TEXT NOT NULL,
	revision INTEGER NOT NULL,
	state TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at DESC);
`

// SessionStore persists requirement sessions in SQLite. The full session
// state is kept as JSON; identifying columns are duplicated for listing.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore opens the session database at dbPath.
func NewSessionStore(dbPath string) (*SessionStore, error) {
	db, err := openDB(dbPath, sessionSchema)
	if err != nil {
		return nil, err
	}
	return &SessionStore{db: db}, nil
}

// Save inserts or replaces a session.
func (s *SessionStore) Save(ctx context.Context, session *entities.RequirementSession) error {
	if session == nil || session.ID == "" {
		return errors.New("session must have an id")
	}
	state, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO sessions (id, title, phase, revision, state, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		phase = excluded.phase,
		revision = excluded.revision,
		state = excluded.state,
		updated_at = excluded.updated_at`,
		session.ID,
		session.Title,
		string(session.Phase),
		session.Revision,
		string(state),
		session.CreatedAt.UTC().Format(time.RFC3339Nano),
		session.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: save session: %v", entities.ErrStorage, err)
	}
	return nil
}

// Load returns a session or an error wrapping ErrSessionNotFound.
func (s *SessionStore) Load(ctx context.Context, id string) (*entities.RequirementSession, error) {
	var state string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM sessions WHERE id = ?`, id).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", entities.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load session: %v", entities.ErrStorage, err)
	}
	return decodeSession(state)
}

// List returns all sessions, newest first.
func (s *SessionStore) List(ctx context.Context) ([]*entities.RequirementSession, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", entities.ErrStorage, err)
	}
	defer rows.Close()

	var out []*entities.RequirementSession
	for rows.Next() {
		var state string
		if err := rows.Scan(&state); err != nil {
			return nil, fmt.Errorf("%w: scan session: %v", entities.ErrStorage, err)
		}
		session, err := decodeSession(state)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

// Delete removes a session; a missing one wraps ErrSessionNotFound.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete session: %v", entities.ErrStorage, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", entities.ErrSessionNotFound, id)
	}
	return nil
}

// Close closes the database.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

func decodeSession(state string) (*entities.RequirementSession, error) {
	var session entities.RequirementSession
	if err := json.Unmarshal([]byte(state), &session); err != nil {
		return nil, fmt.Errorf("%w: decode session: %v", entities.ErrStorage, err)
	}
	if session.History == nil {
		session.History = []entities.Message{}
	}
	return &session, nil
}
