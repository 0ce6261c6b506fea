// Command leafdoc serves the plant leaf disease diagnosis API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verdantlabs/leafdoc/internal/chatbot"
	"github.com/verdantlabs/leafdoc/internal/config"
	"github.com/verdantlabs/leafdoc/internal/diagnose"
	"github.com/verdantlabs/leafdoc/internal/health"
	"github.com/verdantlabs/leafdoc/internal/knowledge"
	"github.com/verdantlabs/leafdoc/internal/observe"
	"github.com/verdantlabs/leafdoc/internal/server"
	"github.com/verdantlabs/leafdoc/internal/symptom"
	"github.com/verdantlabs/leafdoc/internal/unknownlog"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "leafdoc: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "leafdoc: %v\n", err)
		}
		return 1
	}

	// The level is shared with the config watcher so log_level changes apply
	// without a restart.
	var level slog.LevelVar
	level.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level}))
	slog.SetDefault(logger)

	slog.Info("leafdoc starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "leafdoc",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, closeProviders, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	defer closeProviders()

	// ── Knowledge base ────────────────────────────────────────────────────────
	var pool *pgxpool.Pool
	if cfg.Knowledge.PostgresDSN != "" {
		pool, err = pgxpool.New(ctx, cfg.Knowledge.PostgresDSN)
		if err != nil {
			slog.Error("failed to create postgres pool", "err", err)
			return 1
		}
		defer pool.Close()
	}

	store, err := buildKnowledgeStore(ctx, cfg, pool)
	if err != nil {
		slog.Error("failed to build knowledge base", "err", err)
		return 1
	}

	if providers.Embeddings != nil && pool != nil {
		if err := syncSemanticIndex(ctx, cfg, pool, store, providers.Embeddings); err != nil {
			// The keyword passes still work without the index.
			slog.Warn("semantic index sync failed", "err", err)
		}
	}

	// ── Diagnosis pipeline ────────────────────────────────────────────────────
	classifier, err := buildClassifier(cfg.Symptoms)
	if err != nil {
		slog.Error("failed to build symptom classifier", "err", err)
		return 1
	}
	hot := &hotClassifier{}
	hot.ptr.Store(classifier)

	var recOpts []diagnose.ReconcilerOption
	if cfg.Reconciler.HighThreshold != 0 {
		recOpts = append(recOpts, diagnose.WithHighThreshold(cfg.Reconciler.HighThreshold))
	}
	if cfg.Reconciler.ModerateThreshold != 0 {
		recOpts = append(recOpts, diagnose.WithModerateThreshold(cfg.Reconciler.ModerateThreshold))
	}
	reconciler, err := diagnose.NewReconciler(recOpts...)
	if err != nil {
		slog.Error("failed to build reconciler", "err", err)
		return 1
	}

	unknownPath := cfg.UnknownLog.Path
	if unknownPath == "" {
		unknownPath = "unknown_cases.json"
	}
	unknowns := unknownlog.NewFileStore(unknownPath,
		unknownlog.WithMaxEntries(cfg.UnknownLog.MaxEntries),
		unknownlog.WithLogger(logger),
	)

	svcOpts := []diagnose.ServiceOption{
		diagnose.WithUnknownLogger(unknowns),
		diagnose.WithMetrics(metrics),
	}
	if providers.Vision != nil {
		svcOpts = append(svcOpts, diagnose.WithVision(providers.Vision))
	}
	if providers.STT != nil {
		svcOpts = append(svcOpts, diagnose.WithSTT(providers.STT))
	}
	svc, err := diagnose.NewService(hot, reconciler, store, logger, svcOpts...)
	if err != nil {
		slog.Error("failed to build diagnosis service", "err", err)
		return 1
	}

	// ── Chat assistant ────────────────────────────────────────────────────────
	botOpts := []chatbot.Option{chatbot.WithMetrics(metrics)}
	if providers.LLM != nil {
		botOpts = append(botOpts, chatbot.WithLLM(providers.LLM))
	}
	bot, err := chatbot.New(store, hot, logger, botOpts...)
	if err != nil {
		slog.Error("failed to build chat assistant", "err", err)
		return 1
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		applyConfigChange(&level, hot, config.Diff(old, new), new)
	})
	if err != nil {
		slog.Warn("config hot reload disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	var checks []health.Checker
	if pool != nil {
		checks = append(checks, health.Checker{Name: "knowledge-db", Check: pool.Ping})
	}

	srv, err := server.New(cfg.Server, svc, bot, store, unknowns, logger,
		server.WithHealthCheckers(checks...),
		server.WithMetrics(metrics),
	)
	if err != nil {
		slog.Error("failed to build http server", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// hotClassifier is an atomically swappable classifier, so a rules or strategy
// change in the config file takes effect without restarting the pipeline.
type hotClassifier struct {
	ptr atomic.Pointer[symptom.Classifier]
}

func (h *hotClassifier) Classify(text string) string {
	return h.ptr.Load().Classify(text)
}

// applyConfigChange applies the hot-reloadable parts of a config diff.
// Reconciler thresholds and the unknown-case log are fixed at startup.
func applyConfigChange(level *slog.LevelVar, hot *hotClassifier, d config.ConfigDiff, cfg *config.Config) {
	if !d.Any() {
		return
	}
	if d.LogLevelChanged {
		level.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.SymptomsChanged {
		c, err := buildClassifier(cfg.Symptoms)
		if err != nil {
			slog.Error("keeping previous symptom rules", "err", err)
		} else {
			hot.ptr.Store(c)
			slog.Info("symptom classifier reloaded",
				"rules_path", cfg.Symptoms.RulesPath,
				"strategy", cfg.Symptoms.Strategy,
			)
		}
	}
	if d.ReconcilerChanged {
		slog.Warn("reconciler threshold changes require a restart")
	}
	if d.UnknownLogChanged {
		slog.Warn("unknown-log changes require a restart")
	}
}

// buildClassifier constructs a classifier from the symptoms config section.
func buildClassifier(cfg config.SymptomsConfig) (*symptom.Classifier, error) {
	var (
		rules *symptom.RuleSet
		err   error
	)
	if cfg.RulesPath != "" {
		rules, err = symptom.LoadRulesFile(cfg.RulesPath)
	} else {
		rules, err = symptom.NewRuleSet(symptom.DefaultRules())
	}
	if err != nil {
		return nil, err
	}

	var opts []symptom.ClassifierOption
	if cfg.Strategy != "" {
		opts = append(opts, symptom.WithStrategy(symptom.Strategy(cfg.Strategy)))
	}
	if cfg.FuzzyCorrection {
		opts = append(opts, symptom.WithCorrector(symptom.NewCorrector()))
	}
	return symptom.NewClassifier(rules, opts...), nil
}

// buildKnowledgeStore selects the configured knowledge base backend.
func buildKnowledgeStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (server.KnowledgeBase, error) {
	switch {
	case pool != nil:
		store := knowledge.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		if cfg.Knowledge.SeedBuiltin {
			if err := store.Seed(ctx, knowledge.DefaultRecords()); err != nil {
				return nil, err
			}
			slog.Info("seeded built-in treatment records")
		}
		return store, nil

	case cfg.Knowledge.Path != "":
		return knowledge.LoadFile(cfg.Knowledge.Path)

	default:
		return knowledge.NewMemStore(knowledge.DefaultRecords())
	}
}

// slogLevel maps the config log level to its slog equivalent.
func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
