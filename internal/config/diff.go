package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; provider and
// knowledge-base changes require a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// SymptomsChanged is true when the rule source, matching strategy, or
	// fuzzy correction setting changed. The classifier is rebuilt on apply.
	SymptomsChanged bool

	// ReconcilerChanged is true when a confidence threshold changed.
	ReconcilerChanged bool

	// UnknownLogChanged is true when the log path or cap changed.
	UnknownLogChanged bool
}

// Any reports whether the diff contains any hot-reloadable change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.SymptomsChanged || d.ReconcilerChanged || d.UnknownLogChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Symptoms != new.Symptoms {
		d.SymptomsChanged = true
	}
	if old.Reconciler != new.Reconciler {
		d.ReconcilerChanged = true
	}
	if old.UnknownLog != new.UnknownLog {
		d.UnknownLogChanged = true
	}

	return d
}
