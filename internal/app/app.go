// Package app wires all tremord subsystems into a running service.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP (and the optional broker ingest) until the
// context is cancelled, and Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithStore, WithMotionClassifier, etc.). When an option is not provided,
// New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/oscillab/tremord/internal/config"
	"github.com/oscillab/tremord/internal/health"
	"github.com/oscillab/tremord/internal/ingest"
	"github.com/oscillab/tremord/internal/model"
	"github.com/oscillab/tremord/internal/observe"
	"github.com/oscillab/tremord/internal/pipeline"
	"github.com/oscillab/tremord/internal/server"
	"github.com/oscillab/tremord/internal/store"
)

// shutdownGrace bounds the HTTP server drain during shutdown.
const shutdownGrace = 10 * time.Second

// App owns all subsystem lifetimes for the tremord detection service.
type App struct {
	cfg   *config.Config
	log   *slog.Logger
	level *slog.LevelVar

	// Subsystems — initialised in New, torn down in Shutdown.
	store      store.Store
	dbPing     func(context.Context) error
	motionClf  model.Classifier
	voiceClf   model.Classifier
	motionPipe *pipeline.Motion
	voicePipe  *pipeline.Voice
	srv        *server.Server
	broker     *ingest.MQTT
	watcher    *config.Watcher
	httpSrv    *http.Server

	// closers are called in reverse order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a verdict store instead of creating one from config.
func WithStore(s store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMotionClassifier injects a motion classifier instead of loading the
// artifact named in the config.
func WithMotionClassifier(c model.Classifier) Option {
	return func(a *App) { a.motionClf = c }
}

// WithVoiceClassifier injects a voice classifier instead of loading the
// artifact named in the config.
func WithVoiceClassifier(c model.Classifier) Option {
	return func(a *App) { a.voiceClf = c }
}

// WithLogger injects the logger used by all subsystems. The level var, when
// non-nil, lets the config watcher hot-reload the log level.
func WithLogger(log *slog.Logger, level *slog.LevelVar) Option {
	return func(a *App) {
		a.log = log
		a.level = level
	}
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. Use Option functions
// to inject test doubles for any subsystem.
//
// New performs all initialisation synchronously: store connection and
// migration, model loading, pipeline construction, and route assembly.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = slog.Default()
	}

	// ── 1. Store ─────────────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	// ── 2. Models ────────────────────────────────────────────────────────
	if err := a.initModels(); err != nil {
		return nil, fmt.Errorf("app: init models: %w", err)
	}

	// ── 3. Pipelines + HTTP server ───────────────────────────────────────
	a.motionPipe = pipeline.NewMotion(a.motionClf, requestBand(cfg.Gate))
	a.voicePipe = pipeline.NewVoice(a.voiceClf)

	a.srv = server.New(a.log, a.motionPipe, a.voicePipe, server.LiveConfig{
		Classifier: a.motionClf,
		Band:       liveBand(cfg.Gate),
		EmitStride: cfg.Stream.EmitStride,
	}, a.store)

	a.httpSrv = &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: a.buildHandler(),
	}

	// ── 4. Broker ingest (optional) ──────────────────────────────────────
	if cfg.MQTT.BrokerURL != "" {
		a.broker = ingest.NewMQTT(ingest.Config{
			BrokerURL:  cfg.MQTT.BrokerURL,
			Topic:      cfg.MQTT.Topic,
			ClientID:   cfg.MQTT.ClientID,
			Username:   cfg.MQTT.Username,
			Password:   cfg.MQTT.Password,
			Band:       liveBand(cfg.Gate),
			EmitStride: cfg.Stream.EmitStride,
		}, a.motionClf, a.store, a.log)
	}

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initStore connects the PostgreSQL store and runs migrations, or falls back
// to the in-memory store when no DSN is configured.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil // injected
	}

	dsn := a.cfg.Storage.PostgresDSN
	if dsn == "" {
		a.log.Info("no postgres_dsn configured, verdicts held in memory only")
		a.store = store.NewMemoryStore()
		return nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}

	pg := store.NewPostgresStore(pool)
	if err := pg.Migrate(ctx); err != nil {
		pool.Close()
		return err
	}

	// Retries ride out connection blips so mid-stream verdict writes are
	// not lost to a failover. The readiness probe pings the pool directly.
	a.store = store.NewRetryStore(pg, a.log)
	a.dbPing = pg.Ping
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})
	return nil
}

// initModels loads the classifier artifacts named in the config. A missing
// artifact is not fatal: the corresponding endpoints answer 503 until a
// model is supplied. A corrupt artifact is fatal.
func (a *App) initModels() error {
	load := func(path, modality string) (model.Classifier, error) {
		if path == "" {
			a.log.Warn("no model path configured", "modality", modality)
			return nil, nil
		}
		clf, err := model.Load(path)
		if errors.Is(err, model.ErrNotFound) {
			a.log.Warn("model artifact not found, endpoint disabled",
				"modality", modality, "path", path)
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("load %s model %q: %w", modality, path, err)
		}
		a.log.Info("model loaded", "modality", modality, "path", path)
		return clf, nil
	}

	var err error
	if a.motionClf == nil {
		if a.motionClf, err = load(a.cfg.Models.MotionPath, "motion"); err != nil {
			return err
		}
	}
	if a.voiceClf == nil {
		if a.voiceClf, err = load(a.cfg.Models.VoicePath, "voice"); err != nil {
			return err
		}
	}
	return nil
}

// buildHandler assembles the full route table: API, health probes, and the
// Prometheus scrape endpoint, all wrapped in the observability middleware.
func (a *App) buildHandler() http.Handler {
	mux := http.NewServeMux()
	a.srv.Register(mux)

	checkers := []health.Checker{
		health.ModelCheck("motion", a.srv.MotionReady),
	}
	if a.dbPing != nil {
		checkers = append(checkers, health.Checker{Name: "database", Check: a.dbPing})
	}
	health.New(checkers...).Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(observe.DefaultMetrics())(mux)
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts the HTTP server and the broker ingest (when configured) and
// blocks until ctx is cancelled or a subsystem fails. The HTTP server is
// drained gracefully on cancellation.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("http server listening", "addr", a.httpSrv.Addr)
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.httpSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		return a.httpSrv.Shutdown(drainCtx)
	})

	if a.broker != nil {
		g.Go(func() error {
			err := a.broker.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("app: broker ingest: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ─── Config hot reload ───────────────────────────────────────────────────────

// WatchConfig starts a file watcher on path and applies hot-reloadable
// changes (log level, gate bands, emit stride) as the file is edited.
// Changes to model paths, listen address, broker, and storage require a
// restart and are logged as such.
func (a *App) WatchConfig(path string) error {
	w, err := config.NewWatcher(path, a.applyConfigChange)
	if err != nil {
		return fmt.Errorf("app: watch config: %w", err)
	}
	a.watcher = w
	a.closers = append(a.closers, func() error {
		w.Stop()
		return nil
	})
	return nil
}

// applyConfigChange is the watcher callback: it diffs old and new configs
// and applies the hot-reloadable subset. Settings are always taken from the
// full new config, never from the boot-time one, so values applied by an
// earlier reload survive later reloads that touch other settings.
func (a *App) applyConfigChange(old, new *config.Config) {
	d := config.Diff(old, new)
	if !d.Any() {
		a.log.Info("config file changed, but no hot-reloadable settings differ; restart to apply")
		return
	}

	if d.LogLevelChanged {
		if a.level != nil {
			a.level.Set(slogLevel(new.Server.LogLevel))
			a.log.Info("log level changed", "level", new.Server.LogLevel)
		} else {
			a.log.Warn("log level changed in config but no level var is wired")
		}
	}
	if d.GateChanged {
		a.motionPipe.SetBand(requestBand(new.Gate))
		a.log.Info("gate bands changed",
			"request", requestBand(new.Gate), "live", liveBand(new.Gate))
	}
	if d.GateChanged || d.StreamChanged {
		a.srv.UpdateLive(liveBand(new.Gate), new.Stream.EmitStride)
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.log.Info("shutting down", "closers", len(a.closers))

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				a.log.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				a.log.Warn("closer error", "index", i, "err", err)
			}
		}

		a.log.Info("shutdown complete")
	})
	return shutdownErr
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// requestBand resolves the configured request-path gate band, falling back
// to the built-in default when unset.
func requestBand(g config.GateConfig) pipeline.Band {
	if g.RequestLow == 0 && g.RequestHigh == 0 {
		return pipeline.RequestBand
	}
	return pipeline.Band{Low: g.RequestLow, High: g.RequestHigh}
}

// liveBand resolves the configured live-path gate band.
func liveBand(g config.GateConfig) pipeline.Band {
	if g.LiveLow == 0 && g.LiveHigh == 0 {
		return pipeline.LiveBand
	}
	return pipeline.Band{Low: g.LiveLow, High: g.LiveHigh}
}

// slogLevel converts a config log level to its slog equivalent.
func slogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
