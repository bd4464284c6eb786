package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound is returned by Get when no state exists for a session id.
var ErrNotFound = errors.New("session not found")

// Store holds per-session state. Implementations return copies so callers
// never alias stored state.
type Store interface {
	Get(ctx context.Context, id string) (*State, error)
	Put(ctx context.Context, st *State) error
	Delete(ctx context.Context, id string) error
}

// #region memory-store
// MemoryStore keeps state for the life of the process.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*State
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]*State{}}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return st.Clone(), nil
}

func (m *MemoryStore) Put(_ context.Context, st *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[st.SessionID] = st.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
// #endregion memory-store

// #region sqlite-store
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id  TEXT PRIMARY KEY,
	stage       TEXT NOT NULL,
	state_json  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
`

// SQLiteStore persists session state as JSON rows so a restart does not drop
// calls in progress.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore migrates the sessions table on db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate sessions: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*State, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT state_json FROM sessions WHERE session_id = ?`, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	st.Normalize()
	return &st, nil
}

func (s *SQLiteStore) Put(ctx context.Context, st *State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, stage, state_json, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			stage = excluded.stage,
			state_json = excluded.state_json,
			updated_at = excluded.updated_at`,
		st.SessionID, string(st.Stage), string(raw), st.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put session %s: %w", st.SessionID, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
// #endregion sqlite-store
