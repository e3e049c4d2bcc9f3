package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the detection tables. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS detection_sessions (
    id         UUID PRIMARY KEY,
    source     TEXT NOT NULL,
    started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    ended_at   TIMESTAMPTZ,
    rejected   INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS detection_verdicts (
    id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    session_id    UUID NOT NULL REFERENCES detection_sessions(id) ON DELETE CASCADE,
    at            TIMESTAMPTZ NOT NULL DEFAULT now(),
    class         INTEGER NOT NULL,
    label         TEXT NOT NULL,
    dom_freq      DOUBLE PRECISION NOT NULL,
    tremor_energy DOUBLE PRECISION NOT NULL,
    confidence    DOUBLE PRECISION NOT NULL,
    overridden    BOOLEAN NOT NULL DEFAULT false
);
CREATE INDEX IF NOT EXISTS idx_detection_verdicts_session ON detection_verdicts(session_id);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given
// database connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing
// queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// detection tables and indexes if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Ping verifies database connectivity, for readiness checks.
func (s *PostgresStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// CreateSession opens a new session row.
func (s *PostgresStore) CreateSession(ctx context.Context, source string) (*Session, error) {
	sess := &Session{ID: uuid.New(), Source: source}

	const query = `
		INSERT INTO detection_sessions (id, source)
		VALUES ($1, $2)
		RETURNING started_at`

	if err := s.db.QueryRow(ctx, query, sess.ID, sess.Source).Scan(&sess.StartedAt); err != nil {
		return nil, fmt.Errorf("store: create session: %w", err)
	}
	return sess, nil
}

// CloseSession stamps the end time and rejected-line count. Closing an
// unknown session is not an error.
func (s *PostgresStore) CloseSession(ctx context.Context, id uuid.UUID, rejected int) error {
	const query = `
		UPDATE detection_sessions
		SET ended_at = now(), rejected = $2
		WHERE id = $1`

	if _, err := s.db.Exec(ctx, query, id, rejected); err != nil {
		return fmt.Errorf("store: close session %s: %w", id, err)
	}
	return nil
}

// AppendVerdict records one verdict row and fills in its generated ID and
// timestamp.
func (s *PostgresStore) AppendVerdict(ctx context.Context, v *Verdict) error {
	const query = `
		INSERT INTO detection_verdicts (
			session_id, class, label, dom_freq, tremor_energy, confidence, overridden
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, at`

	err := s.db.QueryRow(ctx, query,
		v.SessionID, v.Class, v.Label, v.DomFreq, v.TremorEnergy, v.Confidence, v.Overridden,
	).Scan(&v.ID, &v.At)
	if err != nil {
		return fmt.Errorf("store: append verdict: %w", err)
	}
	return nil
}

// Verdicts returns a session's verdicts in insertion order.
func (s *PostgresStore) Verdicts(ctx context.Context, sessionID uuid.UUID) ([]Verdict, error) {
	const query = `
		SELECT id, session_id, at, class, label, dom_freq, tremor_energy, confidence, overridden
		FROM detection_verdicts
		WHERE session_id = $1
		ORDER BY id`

	rows, err := s.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: verdicts: %w", err)
	}
	defer rows.Close()

	var out []Verdict
	for rows.Next() {
		var v Verdict
		if err := rows.Scan(
			&v.ID, &v.SessionID, &v.At, &v.Class, &v.Label,
			&v.DomFreq, &v.TremorEnergy, &v.Confidence, &v.Overridden,
		); err != nil {
			return nil, fmt.Errorf("store: verdicts scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: verdicts: %w", err)
	}
	return out, nil
}
