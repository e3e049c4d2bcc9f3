package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// defaultPollInterval is how often the watcher re-examines the config file.
// Config edits are operator actions, so seconds-level latency is plenty;
// the 50 Hz sample path never touches the watcher.
const defaultPollInterval = 5 * time.Second

// Watcher polls the service's YAML config for edits so that gate bands,
// emit stride, and log level can be adjusted while detection sessions are
// streaming. Polling rather than inotify keeps the watcher working on the
// NFS and container-volume mounts sensor gateways tend to run on, and
// keeps dependencies minimal.
//
// An edit that fails validation is logged and ignored; the last valid
// config stays in force so a half-saved file cannot widen a gate band to
// nonsense mid-session.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)

	mu       sync.Mutex
	current  *Config
	lastSeen fileState
	done     chan struct{}
	stopOnce sync.Once
}

// fileState is the snapshot the watcher compares against: content hash for
// real changes, mtime to skip hashing untouched files.
type fileState struct {
	sum   [sha256.Size]byte
	mtime time.Time
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval overrides the polling interval. Non-positive values keep
// the default.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads the config at path and starts polling it in a
// background goroutine. onChange runs with the previous and the freshly
// validated config whenever the file content changes; it may be nil.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: defaultPollInterval,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, state, err := w.snapshot()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	w.lastSeen = state

	go w.loop()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends the polling goroutine. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

func (w *Watcher) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

// sweep compares the file against the last seen state and, when the
// content genuinely changed and parses as a valid config, swaps the
// current config and fires the callback.
func (w *Watcher) sweep() {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config watcher: cannot stat file", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	mtime := w.lastSeen.mtime
	w.mu.Unlock()

	// Untouched mtime means untouched content; skip the read and hash.
	if info.ModTime().Equal(mtime) {
		return
	}

	cfg, state, err := w.snapshot()
	if err != nil {
		slog.Warn("config watcher: keeping previous config", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if state.sum == w.lastSeen.sum {
		// Touched but identical, e.g. a deploy rewriting the same file.
		w.lastSeen.mtime = state.mtime
		w.mu.Unlock()
		return
	}
	old := w.current
	w.current = cfg
	w.lastSeen = state
	w.mu.Unlock()

	slog.Info("config watcher: configuration reloaded", "path", w.path)

	// Fire outside the lock so the callback can safely call Current().
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
}

// snapshot reads, hashes, parses, and validates the config file in one
// pass. An invalid file returns an error and the caller keeps the old
// config.
func (w *Watcher) snapshot() (*Config, fileState, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fileState{}, err
	}
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, fileState{}, err
	}

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fileState{}, err
	}

	return cfg, fileState{sum: sha256.Sum256(data), mtime: info.ModTime()}, nil
}
