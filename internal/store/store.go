// Package store persists detection sessions and their per-window verdicts
// for later clinical review. A Postgres implementation backs production;
// an in-memory implementation serves tests and DSN-less deployments.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is one live detection stream: a WebSocket connection or an MQTT
// subscription lifetime.
type Session struct {
	ID        uuid.UUID
	Source    string // "websocket" or "mqtt"
	StartedAt time.Time
	EndedAt   *time.Time
	// Rejected is the count of malformed sample lines dropped over the
	// session, recorded at close.
	Rejected int
}

// Verdict is one persisted per-window outcome.
type Verdict struct {
	ID           int64
	SessionID    uuid.UUID
	At           time.Time
	Class        int
	Label        string
	DomFreq      float64
	TremorEnergy float64
	Confidence   float64
	Overridden   bool
}

// Store records sessions and verdicts. Implementations must be safe for
// concurrent use.
type Store interface {
	// CreateSession opens a new session and returns it with ID and
	// StartedAt populated.
	CreateSession(ctx context.Context, source string) (*Session, error)

	// CloseSession stamps the session's end time and rejected-line count.
	// Closing an unknown session is not an error.
	CloseSession(ctx context.Context, id uuid.UUID, rejected int) error

	// AppendVerdict records one verdict for a session.
	AppendVerdict(ctx context.Context, v *Verdict) error

	// Verdicts returns a session's verdicts in insertion order.
	Verdicts(ctx context.Context, sessionID uuid.UUID) ([]Verdict, error)
}
