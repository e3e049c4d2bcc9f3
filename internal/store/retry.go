package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	retryAttempts = 3
	retryBackoff  = 100 * time.Millisecond
)

// RetryStore wraps a Store and retries transient write failures. Verdict
// writes happen mid-stream, where a Postgres failover or connection blip
// would otherwise drop a window's outcome for good; a couple of short
// retries ride out the blip without stalling the sample path noticeably.
//
// Reads are not retried: Verdicts serves review queries where the caller
// can simply ask again.
type RetryStore struct {
	inner Store
	log   *slog.Logger

	attempts int
	backoff  time.Duration
}

var _ Store = (*RetryStore)(nil)

// NewRetryStore wraps inner with bounded write retries.
func NewRetryStore(inner Store, log *slog.Logger) *RetryStore {
	if log == nil {
		log = slog.Default()
	}
	return &RetryStore{
		inner:    inner,
		log:      log,
		attempts: retryAttempts,
		backoff:  retryBackoff,
	}
}

// CreateSession retries until the session row exists; without it every
// subsequent verdict write for the stream would fail too.
func (s *RetryStore) CreateSession(ctx context.Context, source string) (*Session, error) {
	var sess *Session
	err := s.retry(ctx, "create session", func() error {
		var err error
		sess, err = s.inner.CreateSession(ctx, source)
		return err
	})
	return sess, err
}

// CloseSession retries the end-of-stream stamp.
func (s *RetryStore) CloseSession(ctx context.Context, id uuid.UUID, rejected int) error {
	return s.retry(ctx, "close session", func() error {
		return s.inner.CloseSession(ctx, id, rejected)
	})
}

// AppendVerdict retries the per-window write.
func (s *RetryStore) AppendVerdict(ctx context.Context, v *Verdict) error {
	return s.retry(ctx, "append verdict", func() error {
		return s.inner.AppendVerdict(ctx, v)
	})
}

// Verdicts delegates without retrying.
func (s *RetryStore) Verdicts(ctx context.Context, sessionID uuid.UUID) ([]Verdict, error) {
	return s.inner.Verdicts(ctx, sessionID)
}

// retry runs op up to s.attempts times with a fixed backoff between
// tries. Context cancellation ends the loop immediately, so a closing
// stream never hangs on a dead database.
func (s *RetryStore) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if attempt == s.attempts {
			break
		}
		s.log.Warn("store write failed, retrying",
			"op", op, "attempt", attempt, "err", err)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(s.backoff):
		}
	}
	return err
}
