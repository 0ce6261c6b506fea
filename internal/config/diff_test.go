package config_test

import (
	"testing"

	"github.com/verdantlabs/leafdoc/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()

	a := &config.Config{}
	b := &config.Config{}

	if d := config.Diff(a, b); d.Any() {
		t.Errorf("Diff(identical) = %+v, want no changes", d)
	}
}

func TestDiff_TracksHotReloadableFields(t *testing.T) {
	t.Parallel()

	old := &config.Config{}
	old.Server.LogLevel = config.LogInfo
	old.Symptoms.Strategy = "scoring"
	old.Reconciler.HighThreshold = 0.8

	next := &config.Config{}
	next.Server.LogLevel = config.LogDebug
	next.Symptoms.Strategy = "first-match"
	next.Reconciler.HighThreshold = 0.9

	d := config.Diff(old, next)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("LogLevelChanged = %v/%q, want true/debug", d.LogLevelChanged, d.NewLogLevel)
	}
	if !d.SymptomsChanged {
		t.Error("SymptomsChanged = false, want true")
	}
	if !d.ReconcilerChanged {
		t.Error("ReconcilerChanged = false, want true")
	}
	if d.UnknownLogChanged {
		t.Error("UnknownLogChanged = true, want false")
	}
}

func TestDiff_IgnoresProviderChanges(t *testing.T) {
	t.Parallel()

	old := &config.Config{}
	next := &config.Config{}
	next.Providers.Vision.Name = "torchserve"

	// Provider swaps need a restart; they must not show up as hot-reloadable.
	if d := config.Diff(old, next); d.Any() {
		t.Errorf("Diff(provider change) = %+v, want no hot-reloadable changes", d)
	}
}
