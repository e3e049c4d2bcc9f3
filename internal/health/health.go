// Package health implements the liveness and readiness probes for the
// detection service.
//
// Liveness (/healthz) only proves the process serves HTTP. Readiness
// (/readyz) additionally verifies that the service can produce verdicts:
// classifier artifacts are loaded and the verdict store answers a ping.
// Orchestrators should route detection traffic only to ready instances,
// since an instance without its motion model answers every inference
// request with 503.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// probeTimeout bounds each readiness probe. The store ping is the only
// probe that leaves the process, and a database that cannot answer within
// two seconds is not one we want verdict writes queued against.
const probeTimeout = 2 * time.Second

// Checker is one named readiness probe, e.g. "motion_model" or
// "database". Check returns nil when the dependency can serve.
type Checker struct {
	Name string

	// Check must respect ctx; it runs with a [probeTimeout] deadline.
	Check func(ctx context.Context) error
}

// ModelCheck builds a Checker for a classifier artifact. loaded reports
// whether the artifact for the given modality is currently in memory.
func ModelCheck(modality string, loaded func() bool) Checker {
	return Checker{
		Name: modality + "_model",
		Check: func(context.Context) error {
			if !loaded() {
				return errors.New(modality + " model not loaded")
			}
			return nil
		},
	}
}

// report is the JSON body of both probes: a top-level status plus the
// per-probe outcome map on /readyz.
type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the two probe endpoints. The checker list is fixed at
// construction, so Handler is safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New builds a Handler over the given probes. Probes run sequentially in
// the order given on every /readyz request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz answers 200 unconditionally.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report{Status: "ok"})
}

// Readyz runs every probe and answers 200 only when all pass, 503
// otherwise. The body names each probe with "ok" or "fail: <reason>" so
// an operator can tell a missing model from a dead database at a glance.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	rep := report{Status: "ok", Checks: make(map[string]string, len(h.checkers))}
	status := http.StatusOK

	for _, c := range h.checkers {
		if err := h.probe(r.Context(), c); err != nil {
			rep.Checks[c.Name] = "fail: " + err.Error()
			rep.Status = "fail"
			status = http.StatusServiceUnavailable
		} else {
			rep.Checks[c.Name] = "ok"
		}
	}

	writeJSON(w, status, rep)
}

func (h *Handler) probe(ctx context.Context, c Checker) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return c.Check(ctx)
}

// Register adds both probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
