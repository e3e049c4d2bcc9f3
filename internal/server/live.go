package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/oscillab/tremord/internal/model"
	"github.com/oscillab/tremord/internal/pipeline"
	"github.com/oscillab/tremord/internal/store"
)

// LiveConfig configures the WebSocket live endpoint.
type LiveConfig struct {
	// Classifier backs the per-connection detectors. Nil disables the
	// endpoint (503).
	Classifier model.Classifier

	// Band is the gate band applied to live verdicts. The zero value
	// means the built-in live band.
	Band pipeline.Band

	// EmitStride emits a verdict every n-th full window; values below 1
	// emit on every push.
	EmitStride int
}

// liveVerdict is the JSON frame written to the client per emitted verdict.
type liveVerdict struct {
	Class        int     `json:"class"`
	Label        string  `json:"label"`
	Confidence   float64 `json:"confidence"`
	DomFreq      float64 `json:"dom_freq"`
	TremorEnergy float64 `json:"tremor_energy"`
	Overridden   bool    `json:"overridden"`
}

// handleLive upgrades the request to a WebSocket and runs the streaming
// detector over incoming sample lines. Each text message may carry one or
// more newline-separated lines; a verdict frame is written per emission.
// The session and its verdicts are persisted.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	live := s.liveConfig()
	if live.Classifier == nil {
		writeError(w, http.StatusServiceUnavailable, "motion model not loaded")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	ctx := r.Context()
	sess, err := s.store.CreateSession(ctx, "websocket")
	if err != nil {
		s.log.Error("create session failed", "error", err)
		conn.Close(websocket.StatusInternalError, "session setup failed")
		return
	}

	s.metrics.ActiveStreams.Add(ctx, 1)
	det := pipeline.NewDetector(live.Classifier, live.EmitStride, s.log)
	if live.Band != (pipeline.Band{}) {
		det.SetBand(live.Band)
	}

	defer func() {
		s.metrics.ActiveStreams.Add(context.WithoutCancel(ctx), -1)
		// The request context is gone once the client disconnects; give
		// the close write its own deadline.
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.store.CloseSession(closeCtx, sess.ID, det.Rejected()); err != nil {
			s.log.Warn("close session failed", "session", sess.ID, "error", err)
		}
	}()

	s.log.Info("live stream opened", "session", sess.ID)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				conn.Close(websocket.StatusNormalClosure, "")
			} else {
				s.log.Warn("live stream read failed", "session", sess.ID, "error", err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			v, emitted, err := det.Feed(ctx, line)
			if err != nil {
				s.log.Error("live window analysis failed", "session", sess.ID, "error", err)
				conn.Close(websocket.StatusInternalError, "analysis failed")
				return
			}
			if !emitted {
				continue
			}

			if err := s.store.AppendVerdict(ctx, &store.Verdict{
				SessionID:    sess.ID,
				Class:        v.Class,
				Label:        v.Label,
				DomFreq:      v.Features.DomFreq,
				TremorEnergy: v.Features.TremorEnergy,
				Confidence:   v.Confidence,
				Overridden:   v.Overridden,
			}); err != nil {
				s.log.Warn("persist verdict failed", "session", sess.ID, "error", err)
			}

			if err := wsjson.Write(ctx, conn, liveVerdict{
				Class:        v.Class,
				Label:        v.Label,
				Confidence:   round(v.Confidence*100, 1),
				DomFreq:      round(v.Features.DomFreq, 2),
				TremorEnergy: round(v.Features.TremorEnergy, 2),
				Overridden:   v.Overridden,
			}); err != nil {
				s.log.Warn("live stream write failed", "session", sess.ID, "error", err)
				return
			}
		}
	}
}
