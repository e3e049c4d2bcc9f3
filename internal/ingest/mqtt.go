// Package ingest subscribes to an MQTT broker and drives the streaming
// detector with sample lines published by wrist sensors.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/oscillab/tremord/internal/model"
	"github.com/oscillab/tremord/internal/observe"
	"github.com/oscillab/tremord/internal/pipeline"
	"github.com/oscillab/tremord/internal/store"
)

// connectTimeout bounds the initial broker handshake.
const connectTimeout = 10 * time.Second

// Config configures the broker subscription.
type Config struct {
	BrokerURL string
	Topic     string
	ClientID  string
	Username  string
	Password  string

	// Band overrides the gate band; the zero value means the built-in
	// live band.
	Band pipeline.Band

	EmitStride int
}

// MQTT consumes sample lines from a broker topic and persists the verdicts
// the detector emits. Messages are delivered on paho's single handler
// goroutine, which satisfies the detector's single-consumer requirement.
type MQTT struct {
	cfg     Config
	clf     model.Classifier
	store   store.Store
	log     *slog.Logger
	metrics *observe.Metrics

	client mqtt.Client
	det    *pipeline.Detector
	sess   *store.Session
}

// NewMQTT builds a broker ingest. It does not connect; call Run.
func NewMQTT(cfg Config, clf model.Classifier, st store.Store, log *slog.Logger) *MQTT {
	if log == nil {
		log = slog.Default()
	}
	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("tremord-%d", time.Now().Unix())
	}
	return &MQTT{
		cfg:     cfg,
		clf:     clf,
		store:   st,
		log:     log,
		metrics: observe.DefaultMetrics(),
	}
}

// Run connects to the broker, subscribes, and consumes messages until ctx
// is cancelled. The subscription is re-established automatically after
// reconnects.
func (m *MQTT) Run(ctx context.Context) error {
	m.det = pipeline.NewDetector(m.clf, m.cfg.EmitStride, m.log)
	if m.cfg.Band != (pipeline.Band{}) {
		m.det.SetBand(m.cfg.Band)
	}

	sess, err := m.store.CreateSession(ctx, "mqtt")
	if err != nil {
		return fmt.Errorf("ingest: create session: %w", err)
	}
	m.sess = sess

	opts := mqtt.NewClientOptions()
	opts.AddBroker(m.cfg.BrokerURL)
	opts.SetClientID(m.cfg.ClientID)
	if m.cfg.Username != "" {
		opts.SetUsername(m.cfg.Username)
		opts.SetPassword(m.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(true)
	opts.OnConnect = func(client mqtt.Client) {
		m.log.Info("connected to broker", "broker", m.cfg.BrokerURL, "topic", m.cfg.Topic)
		token := client.Subscribe(m.cfg.Topic, 1, m.handleMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			m.log.Error("subscribe failed", "topic", m.cfg.Topic, "error", err)
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		m.log.Warn("broker connection lost", "error", err)
		// Samples were dropped during the gap; stale window contents would
		// produce a physically meaningless spectrum.
		m.det.Reset()
	}

	m.client = mqtt.NewClient(opts)
	token := m.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("ingest: connect to %s: timeout", m.cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("ingest: connect to %s: %w", m.cfg.BrokerURL, err)
	}

	m.metrics.ActiveStreams.Add(ctx, 1)
	<-ctx.Done()
	m.metrics.ActiveStreams.Add(context.WithoutCancel(ctx), -1)

	m.client.Disconnect(250)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := m.store.CloseSession(closeCtx, sess.ID, m.det.Rejected()); err != nil {
		m.log.Warn("close session failed", "session", sess.ID, "error", err)
	}
	return ctx.Err()
}

// handleMessage feeds each newline-separated sample line of the payload to
// the detector and persists emitted verdicts.
func (m *MQTT) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	ctx := context.Background()
	for _, line := range strings.Split(string(msg.Payload()), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		v, emitted, err := m.det.Feed(ctx, line)
		if err != nil {
			m.log.Error("broker window analysis failed", "error", err)
			continue
		}
		if !emitted {
			continue
		}

		m.log.Info("live verdict",
			"source", "mqtt",
			"label", v.Label,
			"dom_freq", v.Features.DomFreq,
			"overridden", v.Overridden,
		)
		if err := m.store.AppendVerdict(ctx, &store.Verdict{
			SessionID:    m.sess.ID,
			Class:        v.Class,
			Label:        v.Label,
			DomFreq:      v.Features.DomFreq,
			TremorEnergy: v.Features.TremorEnergy,
			Confidence:   v.Confidence,
			Overridden:   v.Overridden,
		}); err != nil {
			m.log.Warn("persist verdict failed", "error", err)
		}
	}
}
