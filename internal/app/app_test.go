package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oscillab/tremord/internal/config"
	"github.com/oscillab/tremord/internal/model"
	"github.com/oscillab/tremord/internal/pipeline"
	"github.com/oscillab/tremord/internal/store"
)

// stubClassifier answers every prediction with a fixed class.
type stubClassifier struct {
	class int
}

func (s stubClassifier) Predict([]float64) (model.Prediction, error) {
	return model.Prediction{Class: s.class}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ListenAddr: "127.0.0.1:0",
			LogLevel:   config.LogInfo,
		},
	}
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	opts = append([]Option{WithStore(store.NewMemoryStore())}, opts...)
	a, err := New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Shutdown(ctx)
	})
	return a
}

func TestNew_WithoutModels(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, testConfig())
	if a.srv.MotionReady() {
		t.Error("MotionReady = true with no model configured")
	}
	if a.srv.VoiceReady() {
		t.Error("VoiceReady = true with no model configured")
	}
}

func TestNew_MissingArtifactIsNotFatal(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Models.MotionPath = t.TempDir() + "/does-not-exist.json"
	a := newTestApp(t, cfg)
	if a.srv.MotionReady() {
		t.Error("MotionReady = true for missing artifact")
	}
}

func TestBuildHandler_Routes(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, testConfig(), WithMotionClassifier(stubClassifier{class: 1}))
	h := a.buildHandler()

	tests := []struct {
		path     string
		wantCode int
	}{
		{"/status", http.StatusOK},
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusOK},
		{"/metrics", http.StatusOK},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if rec.Code != tc.wantCode {
				t.Errorf("GET %s = %d, want %d", tc.path, rec.Code, tc.wantCode)
			}
		})
	}
}

func TestReadyz_FailsWithoutMotionModel(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, testConfig())
	h := a.buildHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /readyz = %d, want 503", rec.Code)
	}

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "fail" {
		t.Errorf("status = %q, want fail", body.Status)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, testConfig(), WithMotionClassifier(stubClassifier{class: 0}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	// Give the listener a moment to come up, then cancel.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestApplyConfigChange_LogLevel(t *testing.T) {
	t.Parallel()

	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	log := slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: level}))

	cfg := testConfig()
	a := newTestApp(t, cfg, WithLogger(log, level))

	newCfg := *cfg
	newCfg.Server.LogLevel = config.LogDebug
	a.applyConfigChange(cfg, &newCfg)

	if got := level.Level(); got != slog.LevelDebug {
		t.Errorf("level = %v, want debug", got)
	}
}

func TestApplyConfigChange_GateAndStride(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	a := newTestApp(t, cfg, WithMotionClassifier(stubClassifier{class: 1}))

	newCfg := *cfg
	newCfg.Gate = config.GateConfig{RequestLow: 2, RequestHigh: 9, LiveLow: 2.5, LiveHigh: 8.5}
	newCfg.Stream.EmitStride = 5
	a.applyConfigChange(cfg, &newCfg)

	band, stride := a.srv.LiveSettings()
	if band != (pipeline.Band{Low: 2.5, High: 8.5}) {
		t.Errorf("live band = %v, want [2.5, 8.5]", band)
	}
	if stride != 5 {
		t.Errorf("emit stride = %d, want 5", stride)
	}
}

func TestApplyConfigChange_SequentialReloads(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	a := newTestApp(t, cfg, WithMotionClassifier(stubClassifier{class: 1}))

	// First reload raises the emit stride only.
	second := *cfg
	second.Stream.EmitStride = 5
	a.applyConfigChange(cfg, &second)

	// Second reload moves the live band only; the stride from the first
	// reload must survive.
	third := second
	third.Gate = config.GateConfig{LiveLow: 2.5, LiveHigh: 8.5}
	a.applyConfigChange(&second, &third)

	band, stride := a.srv.LiveSettings()
	if stride != 5 {
		t.Errorf("emit stride = %d after gate-only reload, want 5 from earlier reload", stride)
	}
	if band != (pipeline.Band{Low: 2.5, High: 8.5}) {
		t.Errorf("live band = %v, want [2.5, 8.5]", band)
	}
}

func TestBandDefaults(t *testing.T) {
	t.Parallel()

	if got := requestBand(config.GateConfig{}); got != pipeline.RequestBand {
		t.Errorf("requestBand(zero) = %v, want default", got)
	}
	if got := liveBand(config.GateConfig{}); got != pipeline.LiveBand {
		t.Errorf("liveBand(zero) = %v, want default", got)
	}
	g := config.GateConfig{RequestLow: 2, RequestHigh: 9, LiveLow: 3, LiveHigh: 8}
	if got := requestBand(g); got != (pipeline.Band{Low: 2, High: 9}) {
		t.Errorf("requestBand = %v, want [2, 9]", got)
	}
	if got := liveBand(g); got != (pipeline.Band{Low: 3, High: 8}) {
		t.Errorf("liveBand = %v, want [3, 8]", got)
	}
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   config.LogLevel
		want slog.Level
	}{
		{config.LogDebug, slog.LevelDebug},
		{config.LogInfo, slog.LevelInfo},
		{config.LogWarn, slog.LevelWarn},
		{config.LogError, slog.LevelError},
		{config.LogLevel("bogus"), slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := slogLevel(tc.in); got != tc.want {
			t.Errorf("slogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

// testWriter routes log output through t.Log so failures carry context.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
