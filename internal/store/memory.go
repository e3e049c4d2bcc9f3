package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process [Store] for tests and deployments without a
// database.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	verdicts map[uuid.UUID][]Verdict
	nextID   int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*Session),
		verdicts: make(map[uuid.UUID][]Verdict),
	}
}

// CreateSession opens a new session.
func (s *MemoryStore) CreateSession(_ context.Context, source string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &Session{
		ID:        uuid.New(),
		Source:    source,
		StartedAt: time.Now().UTC(),
	}
	s.sessions[sess.ID] = sess
	cp := *sess
	return &cp, nil
}

// CloseSession stamps the end time and rejected count.
func (s *MemoryStore) CloseSession(_ context.Context, id uuid.UUID, rejected int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	sess.EndedAt = &now
	sess.Rejected = rejected
	return nil
}

// AppendVerdict records one verdict.
func (s *MemoryStore) AppendVerdict(_ context.Context, v *Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	rec := *v
	rec.ID = s.nextID
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	s.verdicts[rec.SessionID] = append(s.verdicts[rec.SessionID], rec)
	v.ID = rec.ID
	return nil
}

// Verdicts returns a session's verdicts in insertion order.
func (s *MemoryStore) Verdicts(_ context.Context, sessionID uuid.UUID) ([]Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.verdicts[sessionID]
	out := make([]Verdict, len(src))
	copy(out, src)
	return out, nil
}

// Sessions returns copies of all known sessions in no particular order.
func (s *MemoryStore) Sessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		cp := *sess
		out = append(out, &cp)
	}
	return out
}

// Session returns a copy of the session with the given ID, or nil when
// unknown. Used by tests and the readiness checker.
func (s *MemoryStore) Session(id uuid.UUID) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	cp := *sess
	return &cp
}
