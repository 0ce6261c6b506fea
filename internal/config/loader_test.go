package config_test

import (
	"strings"
	"testing"

	"github.com/verdantlabs/leafdoc/internal/config"
)

const validYAML = `
server:
  listen_addr: ":8080"
  log_level: info
providers:
  vision:
    name: torchserve
    base_url: "http://localhost:8081"
    model: plant-disease-v2
  stt:
    name: whisper
    base_url: "http://localhost:9000"
  llm:
    name: groq
    api_key: "gsk-test"
    model: llama-3.3-70b-versatile
knowledge:
  postgres_dsn: "postgres://leafdoc@localhost:5432/leafdoc?sslmode=disable"
  seed_builtin: true
symptoms:
  strategy: scoring
  fuzzy_correction: true
reconciler:
  high_threshold: 0.8
  moderate_threshold: 0.4
unknown_log:
  path: "/var/lib/leafdoc/unknown_cases.json"
  max_entries: 100
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Providers.Vision.Name != "torchserve" {
		t.Errorf("Vision.Name = %q, want torchserve", cfg.Providers.Vision.Name)
	}
	if !cfg.Symptoms.FuzzyCorrection {
		t.Error("FuzzyCorrection = false, want true")
	}
	if cfg.Reconciler.ModerateThreshold != 0.4 {
		t.Errorf("ModerateThreshold = %v, want 0.4", cfg.Reconciler.ModerateThreshold)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	yaml := `
server:
  listen_addr: ":8080"
  max_connections: 50
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Error("LoadFromReader(unknown field): want error, got nil")
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Server.LogLevel = "verbose"
	cfg.Symptoms.Strategy = "regex"
	cfg.Reconciler.HighThreshold = 0.3
	cfg.Reconciler.ModerateThreshold = 0.5
	cfg.UnknownLog.MaxEntries = -1

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("Validate: want error, got nil")
	}
	for _, want := range []string{
		"server.log_level",
		"symptoms.strategy",
		"moderate_threshold",
		"unknown_log.max_entries",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate error missing %q: %v", want, err)
		}
	}
}

func TestValidate_MutuallyExclusiveKnowledgeSources(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Knowledge.Path = "diseases.yaml"
	cfg.Knowledge.PostgresDSN = "postgres://localhost/leafdoc"

	err := config.Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Errorf("Validate: err = %v, want mutual-exclusion failure", err)
	}
}

func TestValidate_TLSRequiresBothFiles(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Server.TLS = &config.TLSConfig{CertFile: "cert.pem"}

	if err := config.Validate(cfg); err == nil {
		t.Error("Validate(TLS without key): want error, got nil")
	}
}

func TestValidate_FallbackRules(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Providers.STT.Fallback = &config.ProviderEntry{Name: "openai"}

	err := config.Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "requires a primary") {
		t.Errorf("Validate(fallback without primary): err = %v", err)
	}

	cfg = &config.Config{}
	cfg.Providers.STT.Name = "whisper"
	cfg.Providers.STT.Fallback = &config.ProviderEntry{
		Name:     "openai",
		Fallback: &config.ProviderEntry{Name: "whisper-native"},
	}

	err = config.Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "must not itself declare") {
		t.Errorf("Validate(nested fallback): err = %v", err)
	}

	cfg = &config.Config{}
	cfg.Providers.STT.Name = "whisper"
	cfg.Providers.STT.Fallback = &config.ProviderEntry{Name: "openai", APIKey: "sk-test"}

	if err := config.Validate(cfg); err != nil {
		t.Errorf("Validate(valid fallback): %v", err)
	}
}

func TestValidate_EmptyConfigIsValid(t *testing.T) {
	t.Parallel()

	// Every field has a workable default; an empty file must load.
	if err := config.Validate(&config.Config{}); err != nil {
		t.Errorf("Validate(empty): %v", err)
	}
}
