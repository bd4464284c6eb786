package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcript_turns (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	turn_id     TEXT NOT NULL UNIQUE,
	session_id  TEXT NOT NULL,
	role        TEXT NOT NULL,
	text        TEXT NOT NULL,
	stage       TEXT,
	meta_json   TEXT,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcript_session ON transcript_turns(session_id, seq);
`

// #region sqlite-log
// SQLiteLog persists turns next to the application records.
type SQLiteLog struct {
	db    *sql.DB
	limit int
}

// NewSQLiteLog migrates the transcript table on db.
func NewSQLiteLog(db *sql.DB, limit int) (*SQLiteLog, error) {
	if limit <= 0 {
		limit = DefaultCap
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate transcript: %w", err)
	}
	return &SQLiteLog{db: db, limit: limit}, nil
}

// Append inserts turns and trims each touched session back to the cap in the
// same transaction.
func (l *SQLiteLog) Append(ctx context.Context, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	touched := map[string]bool{}
	for _, t := range turns {
		stamp(&t)
		var meta string
		if t.Meta != nil {
			b, err := json.Marshal(t.Meta)
			if err != nil {
				return fmt.Errorf("marshal meta: %w", err)
			}
			meta = string(b)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transcript_turns (turn_id, session_id, role, text, stage, meta_json, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.SessionID, string(t.Role), t.Text,
			nullIfEmpty(t.Stage), nullIfEmpty(meta),
			t.At.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("append turn: %w", err)
		}
		touched[t.SessionID] = true
	}

	for id := range touched {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM transcript_turns
			 WHERE session_id = ? AND seq NOT IN (
				SELECT seq FROM transcript_turns WHERE session_id = ?
				ORDER BY seq DESC LIMIT ?)`,
			id, id, l.limit,
		)
		if err != nil {
			return fmt.Errorf("trim transcript %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// List returns a session's turns oldest first.
func (l *SQLiteLog) List(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT turn_id, session_id, role, text, stage, meta_json, created_at
		 FROM transcript_turns WHERE session_id = ? ORDER BY seq ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transcript: %w", err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var t Turn
		var role, created string
		var stage, meta sql.NullString
		if err := rows.Scan(&t.ID, &t.SessionID, &role, &t.Text, &stage, &meta, &created); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Role = Role(role)
		t.Stage = stage.String
		if meta.Valid {
			t.Meta = &Meta{}
			if err := json.Unmarshal([]byte(meta.String), t.Meta); err != nil {
				return nil, fmt.Errorf("unmarshal meta: %w", err)
			}
		}
		t.At, _ = time.Parse(time.RFC3339Nano, created)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (l *SQLiteLog) Clear(ctx context.Context, sessionID string) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM transcript_turns WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear transcript %s: %w", sessionID, err)
	}
	return nil
}
// #endregion sqlite-log

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
