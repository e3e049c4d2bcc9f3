package config_test

import (
	"testing"

	"github.com/oscillab/tremord/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{ListenAddr: ":8080", LogLevel: config.LogInfo},
		Gate:   config.GateConfig{RequestLow: 3, RequestHigh: 7, LiveLow: 3.5, LiveHigh: 7.5},
		Stream: config.StreamConfig{EmitStride: 1},
	}
}

func TestDiffNoChanges(t *testing.T) {
	t.Parallel()

	d := config.Diff(baseConfig(), baseConfig())
	if d.Any() {
		t.Errorf("identical configs produced a diff: %+v", d)
	}
}

func TestDiffLogLevel(t *testing.T) {
	t.Parallel()

	new := baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(baseConfig(), new)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("diff = %+v, want log level change to debug", d)
	}
	if d.GateChanged || d.StreamChanged {
		t.Errorf("unrelated fields flagged: %+v", d)
	}
}

func TestDiffGateBand(t *testing.T) {
	t.Parallel()

	new := baseConfig()
	new.Gate.LiveHigh = 8.0

	d := config.Diff(baseConfig(), new)
	if !d.GateChanged {
		t.Fatal("gate band change not detected")
	}
	if d.NewGate.LiveHigh != 8.0 {
		t.Errorf("NewGate.LiveHigh = %g, want 8", d.NewGate.LiveHigh)
	}
}

func TestDiffStream(t *testing.T) {
	t.Parallel()

	new := baseConfig()
	new.Stream.EmitStride = 10

	d := config.Diff(baseConfig(), new)
	if !d.StreamChanged || d.NewStream.EmitStride != 10 {
		t.Errorf("diff = %+v, want stream change to stride 10", d)
	}

	// Listen address changes need a restart and are not part of the diff.
	new2 := baseConfig()
	new2.Server.ListenAddr = ":9090"
	if d := config.Diff(baseConfig(), new2); d.Any() {
		t.Errorf("listen address change should not appear in the diff: %+v", d)
	}
}
