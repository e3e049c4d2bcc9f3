package config_test

import (
	"strings"
	"testing"

	"github.com/oscillab/tremord/internal/config"
)

const validYAML = `
server:
  listen_addr: ":8080"
  log_level: info
models:
  motion_path: /var/lib/tremord/motion.json
  voice_path: /var/lib/tremord/voice.json
gate:
  request_low: 3.0
  request_high: 7.0
  live_low: 3.5
  live_high: 7.5
stream:
  emit_stride: 1
mqtt:
  broker_url: "tcp://localhost:1883"
  topic: sensors/wrist/lines
  client_id: tremord-1
storage:
  postgres_dsn: "postgres://localhost/tremord"
`

func TestLoadFromReaderValid(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Gate.LiveLow != 3.5 || cfg.Gate.LiveHigh != 7.5 {
		t.Errorf("live band = [%g, %g], want [3.5, 7.5]", cfg.Gate.LiveLow, cfg.Gate.LiveHigh)
	}
	if cfg.MQTT.Topic != "sensors/wrist/lines" {
		t.Errorf("mqtt.topic = %q", cfg.MQTT.Topic)
	}
}

func TestValidateFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr string // substring that must appear in the error
	}{
		{
			name:    "bad log level",
			yaml:    "server:\n  log_level: bananas\n",
			wantErr: "log_level",
		},
		{
			name:    "empty gate band",
			yaml:    "gate:\n  request_low: 7.0\n  request_high: 3.0\n",
			wantErr: "high must exceed low",
		},
		{
			name:    "negative gate edge",
			yaml:    "gate:\n  live_low: -1.0\n  live_high: 5.0\n",
			wantErr: "negative",
		},
		{
			name:    "negative emit stride",
			yaml:    "stream:\n  emit_stride: -2\n",
			wantErr: "emit_stride",
		},
		{
			name:    "mqtt broker without topic",
			yaml:    "mqtt:\n  broker_url: \"tcp://localhost:1883\"\n",
			wantErr: "mqtt.topic",
		},
		{
			name:    "mqtt broker without scheme",
			yaml:    "mqtt:\n  broker_url: \"localhost:1883\"\n  topic: t\n",
			wantErr: "scheme",
		},
		{
			name:    "tls missing key",
			yaml:    "server:\n  tls:\n    cert_file: /etc/cert.pem\n",
			wantErr: "key_file",
		},
		{
			name:    "unknown field rejected",
			yaml:    "servre:\n  listen_addr: \":8080\"\n",
			wantErr: "decode yaml",
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tc.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %v does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidateJoinsMultipleErrors(t *testing.T) {
	t.Parallel()

	yaml := `
server:
  log_level: loud
gate:
  request_low: 9.0
  request_high: 1.0
stream:
  emit_stride: -1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	for _, want := range []string{"log_level", "high must exceed low", "emit_stride"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error missing %q: %v", want, err)
		}
	}
}

func TestZeroGateBandMeansDefault(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader("server:\n  listen_addr: \":8080\"\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gate.RequestLow != 0 || cfg.Gate.RequestHigh != 0 {
		t.Errorf("unset gate band = [%g, %g], want zeros", cfg.Gate.RequestLow, cfg.Gate.RequestHigh)
	}
}

func TestLogLevelIsValid(t *testing.T) {
	t.Parallel()

	for _, l := range []config.LogLevel{config.LogDebug, config.LogInfo, config.LogWarn, config.LogError} {
		if !l.IsValid() {
			t.Errorf("%q should be valid", l)
		}
	}
	if config.LogLevel("verbose").IsValid() {
		t.Error("\"verbose\" should be invalid")
	}
}
