package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; model paths,
// listen address, broker, and storage need a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// GateChanged is true when either gate band moved.
	GateChanged bool
	NewGate     GateConfig

	// StreamChanged is true when the emit stride changed.
	StreamChanged bool
	NewStream     StreamConfig
}

// Any reports whether the diff carries at least one change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.GateChanged || d.StreamChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Gate != new.Gate {
		d.GateChanged = true
		d.NewGate = new.Gate
	}
	if old.Stream != new.Stream {
		d.StreamChanged = true
		d.NewStream = new.Stream
	}
	return d
}
