// Package server exposes the detection pipelines over HTTP: request
// inference for motion windows and voice clips, a status endpoint, and a
// WebSocket live-streaming endpoint.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"sync"

	"github.com/oscillab/tremord/internal/motion"
	"github.com/oscillab/tremord/internal/observe"
	"github.com/oscillab/tremord/internal/pipeline"
	"github.com/oscillab/tremord/internal/store"
	"github.com/oscillab/tremord/internal/voice"
)

// Server holds the HTTP handlers and their pipeline dependencies.
type Server struct {
	log        *slog.Logger
	metrics    *observe.Metrics
	motionPipe *pipeline.Motion
	voicePipe  *pipeline.Voice
	store      store.Store

	// mu guards live, which the config hot-reload path may swap while
	// connections are being accepted.
	mu   sync.RWMutex
	live LiveConfig
}

// New builds a Server. Either pipeline may be unready (nil classifier);
// the corresponding endpoints then answer 503.
func New(log *slog.Logger, motionPipe *pipeline.Motion, voicePipe *pipeline.Voice, live LiveConfig, st store.Store) *Server {
	if log == nil {
		log = slog.Default()
	}
	if st == nil {
		st = store.NewMemoryStore()
	}
	return &Server{
		log:        log,
		metrics:    observe.DefaultMetrics(),
		motionPipe: motionPipe,
		voicePipe:  voicePipe,
		live:       live,
		store:      st,
	}
}

// Register adds all API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /api/v1/motion", s.handleMotion)
	mux.HandleFunc("POST /api/v1/voice", s.handleVoice)
	mux.HandleFunc("GET /api/v1/live", s.handleLive)
}

// MotionReady reports whether the motion classifier is loaded.
func (s *Server) MotionReady() bool { return s.motionPipe != nil && s.motionPipe.Ready() }

// VoiceReady reports whether the voice classifier is loaded.
func (s *Server) VoiceReady() bool { return s.voicePipe != nil && s.voicePipe.Ready() }

// UpdateLive swaps the live gate band and emit stride. Open connections
// keep their original settings; new connections pick up the change.
func (s *Server) UpdateLive(band pipeline.Band, emitStride int) {
	s.mu.Lock()
	s.live.Band = band
	s.live.EmitStride = emitStride
	s.mu.Unlock()
}

// LiveSettings reports the gate band and emit stride new live connections
// will use.
func (s *Server) LiveSettings() (pipeline.Band, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live.Band, s.live.EmitStride
}

func (s *Server) liveConfig() LiveConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}

// ─── Status ─────────────────────────────────────────────────────────────────

type statusResponse struct {
	Status            string `json:"status"`
	MotionModelLoaded bool   `json:"motion_model_loaded"`
	VoiceModelLoaded  bool   `json:"voice_model_loaded"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:            "ok",
		MotionModelLoaded: s.MotionReady(),
		VoiceModelLoaded:  s.VoiceReady(),
	})
}

// ─── Motion inference ───────────────────────────────────────────────────────

// motionSample is one sample object of a motion request. Accel fields are
// pointers so that a missing channel is distinguishable from zero.
type motionSample struct {
	AccelX *float64 `json:"accel_x"`
	AccelY *float64 `json:"accel_y"`
	AccelZ *float64 `json:"accel_z"`
	GyroX  float64  `json:"gyro_x"`
	GyroY  float64  `json:"gyro_y"`
	GyroZ  float64  `json:"gyro_z"`
	FSR    *float64 `json:"fsr"`
}

type motionFeatures struct {
	DomFreq      float64 `json:"dom_freq"`
	TremorEnergy float64 `json:"tremor_energy"`
}

type motionResponse struct {
	Class      int            `json:"class"`
	Label      string         `json:"label"`
	Confidence *float64       `json:"confidence,omitempty"`
	Features   motionFeatures `json:"features"`
}

func (s *Server) handleMotion(w http.ResponseWriter, r *http.Request) {
	if !s.MotionReady() {
		writeError(w, http.StatusServiceUnavailable, "motion model not loaded")
		return
	}

	var samples []motionSample
	if err := json.NewDecoder(r.Body).Decode(&samples); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if len(samples) == 0 {
		writeError(w, http.StatusBadRequest, "empty sample array")
		return
	}

	frame := make(motion.Frame, len(samples))
	for i, smp := range samples {
		if smp.AccelX == nil || smp.AccelY == nil || smp.AccelZ == nil {
			writeError(w, http.StatusBadRequest, "sample missing required accel channel")
			return
		}
		frame[i] = motion.Sample{
			AccelX: *smp.AccelX,
			AccelY: *smp.AccelY,
			AccelZ: *smp.AccelZ,
			GyroX:  smp.GyroX,
			GyroY:  smp.GyroY,
			GyroZ:  smp.GyroZ,
		}
		// An absent FSR channel is zero-filled, not rejected.
		if smp.FSR != nil {
			frame[i].FSR = *smp.FSR
		}
	}

	s.metrics.RecordWindow(r.Context(), "motion", "request")
	v, err := s.motionPipe.Analyze(r.Context(), frame)
	if err != nil {
		s.log.Error("motion analysis failed", "error", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	resp := motionResponse{
		Class: v.Class,
		Label: v.Label,
		Features: motionFeatures{
			DomFreq:      round(v.Features.DomFreq, 2),
			TremorEnergy: round(v.Features.TremorEnergy, 2),
		},
	}
	if v.HasConfidence {
		conf := round(v.Confidence*100, 1)
		resp.Confidence = &conf
	}
	writeJSON(w, http.StatusOK, resp)
}

// ─── Voice inference ────────────────────────────────────────────────────────

type voiceRequest struct {
	Audio []float64 `json:"audio"`
	Rate  float64   `json:"rate"`
}

type voiceFeatures struct {
	Jitter  float64 `json:"jitter"`
	Shimmer float64 `json:"shimmer"`
	HNR     float64 `json:"hnr"`
	MFCC    float64 `json:"mfcc"`
}

type voiceResponse struct {
	Class      int           `json:"class"`
	Label      string        `json:"label"`
	Confidence *float64      `json:"confidence,omitempty"`
	Features   voiceFeatures `json:"features"`
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if !s.VoiceReady() {
		writeError(w, http.StatusServiceUnavailable, "voice model not loaded")
		return
	}

	var req voiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if len(req.Audio) == 0 {
		writeError(w, http.StatusBadRequest, "empty audio array")
		return
	}
	if req.Rate <= 0 {
		writeError(w, http.StatusBadRequest, "rate must be positive")
		return
	}

	s.metrics.RecordWindow(r.Context(), "voice", "request")
	v, err := s.voicePipe.Analyze(r.Context(), req.Audio, req.Rate)
	if err != nil {
		if errors.Is(err, voice.ErrInsufficientSignal) {
			writeError(w, http.StatusUnprocessableEntity, "insufficient tonal content")
			return
		}
		s.log.Error("voice analysis failed", "error", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	resp := voiceResponse{
		Class: v.Class,
		Label: v.Label,
		Features: voiceFeatures{
			Jitter:  round(v.Features.JitterPct, 2),
			Shimmer: round(v.Features.ShimmerPct, 2),
			HNR:     round(v.Features.HNRdB, 1),
			MFCC:    round(v.Features.MFCCMean, 2),
		},
	}
	if v.HasConfidence {
		conf := round(v.Confidence*100, 1)
		resp.Confidence = &conf
	}
	writeJSON(w, http.StatusOK, resp)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

// round rounds v to the given number of decimal places.
func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
