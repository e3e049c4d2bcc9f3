package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Gate bands
	errs = append(errs, validateBand("gate.request", cfg.Gate.RequestLow, cfg.Gate.RequestHigh)...)
	errs = append(errs, validateBand("gate.live", cfg.Gate.LiveLow, cfg.Gate.LiveHigh)...)

	// Stream
	if cfg.Stream.EmitStride < 0 {
		errs = append(errs, fmt.Errorf("stream.emit_stride %d must not be negative", cfg.Stream.EmitStride))
	}

	// MQTT
	if cfg.MQTT.BrokerURL != "" {
		if cfg.MQTT.Topic == "" {
			errs = append(errs, errors.New("mqtt.topic is required when mqtt.broker_url is set"))
		}
		if !strings.Contains(cfg.MQTT.BrokerURL, "://") {
			errs = append(errs, fmt.Errorf("mqtt.broker_url %q has no scheme (e.g., tcp://host:1883)", cfg.MQTT.BrokerURL))
		}
	}

	// Model availability warnings; a server without models still serves
	// health and status endpoints.
	if cfg.Models.MotionPath == "" {
		slog.Warn("models.motion_path is empty; motion endpoints will answer 503 until a model is supplied")
	}
	if cfg.Models.VoicePath == "" {
		slog.Warn("models.voice_path is empty; voice endpoint will answer 503 until a model is supplied")
	}
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; sessions and verdicts are kept in memory only")
	}

	return errors.Join(errs...)
}

// validateBand checks a gate band: both edges set together, low < high,
// both non-negative. A fully zero band means "use the default".
func validateBand(prefix string, low, high float64) []error {
	if low == 0 && high == 0 {
		return nil
	}
	var errs []error
	if low < 0 || high < 0 {
		errs = append(errs, fmt.Errorf("%s band edges must not be negative", prefix))
	}
	if high <= low {
		errs = append(errs, fmt.Errorf("%s band [%g, %g] is empty; high must exceed low", prefix, low, high))
	}
	return errs
}
