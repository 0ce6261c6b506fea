package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/verdantlabs/leafdoc/internal/config"
	"github.com/verdantlabs/leafdoc/internal/knowledge"
	"github.com/verdantlabs/leafdoc/internal/resilience"
	"github.com/verdantlabs/leafdoc/internal/server"
	"github.com/verdantlabs/leafdoc/pkg/provider/embeddings"
	oaembed "github.com/verdantlabs/leafdoc/pkg/provider/embeddings/openai"
	"github.com/verdantlabs/leafdoc/pkg/provider/llm"
	"github.com/verdantlabs/leafdoc/pkg/provider/llm/anyllm"
	"github.com/verdantlabs/leafdoc/pkg/provider/stt"
	oaistt "github.com/verdantlabs/leafdoc/pkg/provider/stt/openai"
	"github.com/verdantlabs/leafdoc/pkg/provider/stt/whisper"
	"github.com/verdantlabs/leafdoc/pkg/provider/vision"
	"github.com/verdantlabs/leafdoc/pkg/provider/vision/torchserve"
)

// Providers holds one interface value per provider slot. Nil means the
// corresponding channel is not configured.
type Providers struct {
	Vision     vision.Provider
	STT        stt.Provider
	LLM        llm.Provider
	Embeddings embeddings.Provider
}

// fallbackConfig is the circuit breaker tuning applied to every provider
// slot. A backend that fails five times in a row is bypassed for 30 seconds.
var fallbackConfig = resilience.FallbackConfig{
	CircuitBreaker: resilience.CircuitBreakerConfig{
		MaxFailures:  5,
		ResetTimeout: 30 * time.Second,
	},
}

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Vision ────────────────────────────────────────────────────────────────

	reg.RegisterVision("torchserve", func(entry config.ProviderEntry) (vision.Provider, error) {
		var opts []torchserve.Option
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, torchserve.WithTimeout(d))
		}
		return torchserve.New(entry.BaseURL, entry.Model, opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.NativeOption
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []oaistt.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(entry.BaseURL))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, oaistt.WithLanguage(lang))
		}
		return oaistt.New(entry.APIKey, entry.Model, opts...)
	})

	// ── LLM ───────────────────────────────────────────────────────────────────
	// The hosted vendors all share the same pattern: optional APIKey +
	// optional BaseURL.
	for _, providerName := range []string{
		"openai", "anthropic", "gemini",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// ── Embeddings ────────────────────────────────────────────────────────────

	reg.RegisterEmbeddings("openai", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		return oaembed.New(entry.APIKey, entry.Model, opts...)
	})
}

// buildProviders instantiates every configured provider slot. Vision, STT and
// LLM providers are wrapped in a circuit breaker; when the config declares a
// fallback entry, it joins the failover chain. The returned close function
// releases providers that hold resources (the native whisper model).
func buildProviders(cfg *config.Config, reg *config.Registry) (*Providers, func(), error) {
	p := &Providers{}
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Warn("provider close error", "err", err)
			}
		}
	}

	trackCloser := func(provider any) {
		if c, ok := provider.(interface{ Close() error }); ok {
			closers = append(closers, c.Close)
		}
	}

	if entry := cfg.Providers.Vision; entry.Name != "" {
		primary, err := reg.CreateVision(entry)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("vision provider %q: %w", entry.Name, err)
		}
		trackCloser(primary)
		fb := resilience.NewVisionFallback(primary, entry.Name, fallbackConfig)
		if entry.Fallback != nil {
			secondary, err := reg.CreateVision(*entry.Fallback)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("vision fallback %q: %w", entry.Fallback.Name, err)
			}
			trackCloser(secondary)
			fb.AddFallback(entry.Fallback.Name, secondary)
		}
		p.Vision = fb
	}

	if entry := cfg.Providers.STT; entry.Name != "" {
		primary, err := reg.CreateSTT(entry)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("stt provider %q: %w", entry.Name, err)
		}
		trackCloser(primary)
		fb := resilience.NewSTTFallback(primary, entry.Name, fallbackConfig)
		if entry.Fallback != nil {
			secondary, err := reg.CreateSTT(*entry.Fallback)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("stt fallback %q: %w", entry.Fallback.Name, err)
			}
			trackCloser(secondary)
			fb.AddFallback(entry.Fallback.Name, secondary)
		}
		p.STT = fb
	}

	if entry := cfg.Providers.LLM; entry.Name != "" {
		primary, err := reg.CreateLLM(entry)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("llm provider %q: %w", entry.Name, err)
		}
		fb := resilience.NewLLMFallback(primary, entry.Name, fallbackConfig)
		if entry.Fallback != nil {
			secondary, err := reg.CreateLLM(*entry.Fallback)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("llm fallback %q: %w", entry.Fallback.Name, err)
			}
			fb.AddFallback(entry.Fallback.Name, secondary)
		}
		p.LLM = fb
	}

	if entry := cfg.Providers.Embeddings; entry.Name != "" {
		emb, err := reg.CreateEmbeddings(entry)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("embeddings provider %q: %w", entry.Name, err)
		}
		p.Embeddings = emb
	}

	return p, closeAll, nil
}

// syncSemanticIndex embeds every record's symptom description and upserts it
// into the pgvector index. Per-record failures are logged and skipped.
func syncSemanticIndex(ctx context.Context, cfg *config.Config, db knowledge.DB, store server.KnowledgeBase, emb embeddings.Provider) error {
	idx := knowledge.NewSemanticIndex(db, cfg.Knowledge.EmbeddingDimensions)
	if err := idx.Migrate(ctx); err != nil {
		return err
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		return err
	}

	indexed := 0
	for _, key := range keys {
		rec, err := store.Lookup(ctx, key)
		if err != nil || rec.Symptoms == "" {
			continue
		}
		vec, err := emb.Embed(ctx, rec.Symptoms)
		if err != nil {
			slog.Warn("embedding failed, record skipped", "key", key, "err", err)
			continue
		}
		if err := idx.Index(ctx, key, rec.Symptoms, vec); err != nil {
			slog.Warn("indexing failed, record skipped", "key", key, "err", err)
			continue
		}
		indexed++
	}

	slog.Info("semantic index synced", "indexed", indexed, "total", len(keys))
	return nil
}

// optString extracts a string value from a provider Options map.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

// optDuration extracts a duration string (e.g. "10s") from a provider
// Options map. Returns 0 when absent or unparseable.
func optDuration(opts map[string]any, key string) time.Duration {
	s := optString(opts, key)
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		slog.Warn("ignoring unparseable duration option", "key", key, "value", s)
		return 0
	}
	return d
}
