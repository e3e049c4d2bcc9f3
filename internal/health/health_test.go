package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oscillab/tremord/internal/health"
)

// passing returns a Checker that always succeeds.
func passing(name string) health.Checker {
	return health.Checker{Name: name, Check: func(context.Context) error { return nil }}
}

// failing returns a Checker that always fails with msg.
func failing(name, msg string) health.Checker {
	return health.Checker{Name: name, Check: func(context.Context) error { return errors.New(msg) }}
}

func decodeReport(t *testing.T, rec *httptest.ResponseRecorder) (status string, checks map[string]string) {
	t.Helper()
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body.Status, body.Checks
}

func TestHealthzAlwaysOK(t *testing.T) {
	t.Parallel()

	// Liveness ignores probe state entirely.
	h := health.New(failing("database", "connection refused"))

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Healthz = %d, want 200", rec.Code)
	}
	status, _ := decodeReport(t, rec)
	if status != "ok" {
		t.Errorf("status = %q, want ok", status)
	}
}

func TestReadyzAllProbesPass(t *testing.T) {
	t.Parallel()

	h := health.New(
		passing("motion_model"),
		passing("voice_model"),
		passing("database"),
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Readyz = %d, want 200", rec.Code)
	}
	status, checks := decodeReport(t, rec)
	if status != "ok" {
		t.Errorf("status = %q, want ok", status)
	}
	for _, name := range []string{"motion_model", "voice_model", "database"} {
		if checks[name] != "ok" {
			t.Errorf("checks[%q] = %q, want ok", name, checks[name])
		}
	}
}

func TestReadyzNamesTheFailingProbe(t *testing.T) {
	t.Parallel()

	h := health.New(
		passing("motion_model"),
		failing("database", "dial tcp: connection refused"),
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Readyz = %d, want 503", rec.Code)
	}
	status, checks := decodeReport(t, rec)
	if status != "fail" {
		t.Errorf("status = %q, want fail", status)
	}
	if checks["motion_model"] != "ok" {
		t.Errorf("checks[motion_model] = %q, want ok", checks["motion_model"])
	}
	if !strings.HasPrefix(checks["database"], "fail: ") ||
		!strings.Contains(checks["database"], "connection refused") {
		t.Errorf("checks[database] = %q, want fail with the dial error", checks["database"])
	}
}

func TestModelCheck(t *testing.T) {
	t.Parallel()

	loaded := false
	c := health.ModelCheck("motion", func() bool { return loaded })

	if c.Name != "motion_model" {
		t.Errorf("Name = %q, want motion_model", c.Name)
	}
	if err := c.Check(context.Background()); err == nil {
		t.Error("Check = nil with artifact unloaded, want error")
	}
	loaded = true
	if err := c.Check(context.Background()); err != nil {
		t.Errorf("Check = %v with artifact loaded, want nil", err)
	}
}

func TestReadyzProbeGetsDeadline(t *testing.T) {
	t.Parallel()

	h := health.New(health.Checker{
		Name: "database",
		Check: func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("probe context has no deadline")
			}
			return nil
		},
	})

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Readyz = %d, want 200; probe ran without a deadline", rec.Code)
	}
}

func TestRegisterRoutes(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	health.New(passing("motion_model")).Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}
