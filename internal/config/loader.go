package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/verdantlabs/leafdoc/internal/symptom"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"vision":     {"torchserve"},
	"stt":        {"whisper", "whisper-native", "openai"},
	"llm":        {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"embeddings": {"openai"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
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

	// Provider name validation — warn for unknown provider names.
	validateProviderEntry("vision", cfg.Providers.Vision, &errs)
	validateProviderEntry("stt", cfg.Providers.STT, &errs)
	validateProviderEntry("llm", cfg.Providers.LLM, &errs)
	validateProviderEntry("embeddings", cfg.Providers.Embeddings, &errs)

	// Knowledge
	if cfg.Knowledge.Path != "" && cfg.Knowledge.PostgresDSN != "" {
		errs = append(errs, errors.New("knowledge.path and knowledge.postgres_dsn are mutually exclusive"))
	}
	if cfg.Knowledge.EmbeddingDimensions < 0 {
		errs = append(errs, fmt.Errorf("knowledge.embedding_dimensions must not be negative, got %d", cfg.Knowledge.EmbeddingDimensions))
	}
	if cfg.Providers.Embeddings.Name != "" && cfg.Knowledge.PostgresDSN == "" {
		slog.Warn("embeddings provider configured without knowledge.postgres_dsn; the semantic symptom index will be disabled")
	}

	// Symptoms
	if cfg.Symptoms.Strategy != "" && !symptom.Strategy(cfg.Symptoms.Strategy).IsValid() {
		errs = append(errs, fmt.Errorf("symptoms.strategy %q is invalid; valid values: first-match, scoring", cfg.Symptoms.Strategy))
	}

	// Reconciler thresholds. Zero means "use the default", so only explicit
	// values are range-checked, plus the cross-field ordering when both are set.
	high, moderate := cfg.Reconciler.HighThreshold, cfg.Reconciler.ModerateThreshold
	if high != 0 && (high <= 0 || high > 1) {
		errs = append(errs, fmt.Errorf("reconciler.high_threshold must be in (0, 1], got %v", high))
	}
	if moderate != 0 && (moderate <= 0 || moderate > 1) {
		errs = append(errs, fmt.Errorf("reconciler.moderate_threshold must be in (0, 1], got %v", moderate))
	}
	if high != 0 && moderate != 0 && moderate > high {
		errs = append(errs, fmt.Errorf("reconciler.moderate_threshold (%v) must not exceed high_threshold (%v)", moderate, high))
	}

	// Unknown log
	if cfg.UnknownLog.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("unknown_log.max_entries must not be negative, got %d", cfg.UnknownLog.MaxEntries))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// validateProviderEntry checks one provider slot and its optional fallback.
// Nested fallbacks are a configuration error; unknown names only warn.
func validateProviderEntry(kind string, entry ProviderEntry, errs *[]error) {
	validateProviderName(kind, entry.Name)
	if entry.Fallback == nil {
		return
	}
	if entry.Name == "" {
		*errs = append(*errs, fmt.Errorf("providers.%s.fallback requires a primary provider name", kind))
	}
	if entry.Fallback.Fallback != nil {
		*errs = append(*errs, fmt.Errorf("providers.%s.fallback must not itself declare a fallback", kind))
	}
	validateProviderName(kind, entry.Fallback.Name)
}

// validateProviderName warns when a provider name is set but not recognised.
// Unknown names are not fatal: a deployment may register custom providers.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	if valid, ok := ValidProviderNames[kind]; ok && !slices.Contains(valid, name) {
		slog.Warn("unrecognised provider name; known names listed",
			"kind", kind, "name", name, "known", ValidProviderNames[kind])
	}
}
