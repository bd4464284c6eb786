// Package records persists application records in SQLite.
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/intake"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/session"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/validate"
)

// ErrNotFound is returned when no application matches.
var ErrNotFound = errors.New("application not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS applications (
	id                      TEXT PRIMARY KEY,
	session_id              TEXT NOT NULL UNIQUE,
	status                  TEXT NOT NULL,
	caller_number           TEXT,
	full_name               TEXT,
	phone                   TEXT,
	best_phone              TEXT,
	email                   TEXT,
	address                 TEXT,
	state                   TEXT,
	attorney_name           TEXT,
	attorney_phone          TEXT,
	law_firm                TEXT,
	law_firm_address        TEXT,
	injury_type             TEXT,
	injury_details          TEXT,
	incident_date           TEXT,
	funding_type            TEXT,
	funding_amount          TEXT,
	has_attorney            INTEGER,
	address_norm            TEXT,
	address_verified        INTEGER NOT NULL DEFAULT 0,
	address_skipped         INTEGER NOT NULL DEFAULT 0,
	state_eligible          TEXT,
	state_eligibility_note  TEXT,
	attorney_verified       INTEGER NOT NULL DEFAULT 0,
	created_at              TEXT NOT NULL,
	updated_at              TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_applications_caller ON applications(caller_number, updated_at);
`

// textFields are stored one column per field, named after the field.
var textFields = []intake.Field{
	intake.FullName, intake.Phone, intake.BestPhone, intake.Email, intake.Address, intake.State,
	intake.AttorneyName, intake.AttorneyPhone, intake.LawFirm, intake.LawFirmAddress,
	intake.InjuryType, intake.InjuryDetails, intake.IncidentDate,
	intake.FundingType, intake.FundingAmount,
}

var (
	dataColumns = func() []string {
		cols := []string{"status", "caller_number"}
		for _, f := range textFields {
			cols = append(cols, string(f))
		}
		return append(cols,
			"has_attorney", "address_norm", "address_verified", "address_skipped",
			"state_eligible", "state_eligibility_note", "attorney_verified", "updated_at")
	}()
	selectColumns = "id, session_id, created_at, " + strings.Join(dataColumns, ", ")
)

// timeLayout is fixed width so text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"
// #endregion schema

// #region store
// Store is the SQLite-backed application store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens dbPath (":memory:" works) and migrates it.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for the session and transcript stores.
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion store

// #region upsert
// Upsert writes the application for st.RecordKey and returns its id. The id
// and created_at of an existing row are preserved.
func (s *Store) Upsert(ctx context.Context, st *session.State) (string, error) {
	key := st.RecordKey
	if key == "" {
		key = st.SessionID
	}
	now := s.now().UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM applications WHERE session_id = ?`, key).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString()
	case err != nil:
		return "", fmt.Errorf("lookup application: %w", err)
	}

	vals := []any{id, key, now}
	vals = append(vals, rowValues(st, now)...)

	set := make([]string, len(dataColumns))
	for i, c := range dataColumns {
		set[i] = c + " = excluded." + c
	}
	q := fmt.Sprintf(
		`INSERT INTO applications (%s) VALUES (%s)
		 ON CONFLICT(session_id) DO UPDATE SET %s`,
		selectColumns,
		strings.TrimSuffix(strings.Repeat("?, ", len(vals)), ", "),
		strings.Join(set, ", "),
	)
	if _, err := tx.ExecContext(ctx, q, vals...); err != nil {
		return "", fmt.Errorf("upsert application: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// rowValues lines up with dataColumns.
func rowValues(st *session.State, now string) []any {
	status := StatusPending
	if st.Completed {
		status = StatusCompleted
	}
	caller := st.CallerNumber
	if n, ok := validate.NormalizeNumber(caller); ok {
		caller = n
	}
	vals := []any{string(status), nullIfEmpty(caller)}
	for _, f := range textFields {
		v, _ := st.Slots.Get(f)
		if f == intake.BestPhone && v == "" {
			v, _ = st.Slots.Get(intake.Phone)
		}
		vals = append(vals, nullIfEmpty(v))
	}
	var hasAttorney any
	if st.Slots.HasAttorney != nil {
		hasAttorney = boolInt(*st.Slots.HasAttorney)
	}
	a := st.Annotations
	return append(vals,
		hasAttorney, nullIfEmpty(a.AddressNorm), boolInt(a.AddressVerified), boolInt(a.AddressSkipped),
		nullIfEmpty(string(a.StateEligible)), nullIfEmpty(a.StateEligibilityNote),
		boolInt(a.AttorneyVerified), now)
}
// #endregion upsert

// #region queries
// Get returns the application with id.
func (s *Store) Get(ctx context.Context, id string) (*Application, error) {
	return s.queryOne(ctx, `WHERE id = ?`, id)
}

// GetBySession returns the application stored under a session id.
func (s *Store) GetBySession(ctx context.Context, sessionID string) (*Application, error) {
	return s.queryOne(ctx, `WHERE session_id = ?`, sessionID)
}

// LatestByCaller returns the most recently updated application for a caller
// number, or nil when there is none.
func (s *Store) LatestByCaller(ctx context.Context, number string) (*Application, error) {
	n, ok := validate.NormalizeNumber(number)
	if !ok {
		return nil, nil
	}
	app, err := s.queryOne(ctx, `WHERE caller_number = ? ORDER BY updated_at DESC, rowid DESC LIMIT 1`, n)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return app, err
}

// List returns applications most recently updated first, optionally filtered
// by caller number. limit <= 0 means 50.
func (s *Store) List(ctx context.Context, caller string, limit int) ([]Application, error) {
	if limit <= 0 {
		limit = 50
	}
	where, args := "", []any{}
	if caller != "" {
		n, ok := validate.NormalizeNumber(caller)
		if !ok {
			n = caller
		}
		where, args = `WHERE caller_number = ?`, append(args, n)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM applications `+where+
			` ORDER BY updated_at DESC, rowid DESC LIMIT ?`,
		append(args, limit)...,
	)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	apps := []Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

// Delete removes the application stored under a session id.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM applications WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	return nil
}

func (s *Store) queryOne(ctx context.Context, clause string, args ...any) (*Application, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM applications `+clause, args...)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return app, err
}
// #endregion queries

// #region scan
type scanner interface {
	Scan(dest ...any) error
}

func scanApplication(r scanner) (*Application, error) {
	var (
		app                      Application
		created, updated, status string
		caller                   sql.NullString
		text                     = make([]sql.NullString, len(textFields))
		hasAttorney              sql.NullInt64
		norm, elig, note         sql.NullString
		verified, skipped, atty  int
	)
	dest := []any{&app.ID, &app.SessionID, &created, &status, &caller}
	for i := range text {
		dest = append(dest, &text[i])
	}
	dest = append(dest, &hasAttorney, &norm, &verified, &skipped, &elig, &note, &atty, &updated)
	if err := r.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}

	app.Status = Status(status)
	app.CallerNumber = caller.String
	for i, f := range textFields {
		if text[i].Valid {
			app.Slots.Set(f, text[i].String)
		}
	}
	if hasAttorney.Valid {
		b := hasAttorney.Int64 != 0
		app.Slots.HasAttorney = &b
	}
	app.Annotations = intake.Annotations{
		AddressNorm:          norm.String,
		AddressVerified:      verified != 0,
		AddressSkipped:       skipped != 0,
		StateEligible:        intake.Eligibility(elig.String),
		StateEligibilityNote: note.String,
		AttorneyVerified:     atty != 0,
	}
	app.CreatedAt, _ = time.Parse(timeLayout, created)
	app.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return &app, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
// #endregion scan
