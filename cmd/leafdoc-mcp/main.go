// Command leafdoc-mcp serves the disease knowledge base as MCP tools over
// stdio, for use as a subprocess of an MCP-capable agent host. It shares the
// leafdoc config file; only the knowledge, symptoms and embeddings sections
// are consulted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verdantlabs/leafdoc/internal/config"
	"github.com/verdantlabs/leafdoc/internal/knowledge"
	"github.com/verdantlabs/leafdoc/internal/mcptool"
	"github.com/verdantlabs/leafdoc/internal/symptom"
	oaembed "github.com/verdantlabs/leafdoc/pkg/provider/embeddings/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "leafdoc-mcp: %v\n", err)
		return 1
	}

	// stdout carries the MCP protocol, so all logging goes to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kb, pool, err := openKnowledgeBase(ctx, cfg)
	if err != nil {
		slog.Error("failed to open knowledge base", "err", err)
		return 1
	}
	if pool != nil {
		defer pool.Close()
	}

	classifier, err := newClassifier(cfg.Symptoms)
	if err != nil {
		slog.Error("failed to build symptom classifier", "err", err)
		return 1
	}

	var opts []mcptool.Option
	if cfg.Providers.Embeddings.Name == "openai" && pool != nil {
		entry := cfg.Providers.Embeddings
		var embOpts []oaembed.Option
		if entry.BaseURL != "" {
			embOpts = append(embOpts, oaembed.WithBaseURL(entry.BaseURL))
		}
		emb, err := oaembed.New(entry.APIKey, entry.Model, embOpts...)
		if err != nil {
			slog.Error("failed to build embeddings provider", "err", err)
			return 1
		}
		idx := knowledge.NewSemanticIndex(pool, cfg.Knowledge.EmbeddingDimensions)
		opts = append(opts, mcptool.WithSemanticSearch(emb, idx))
	}

	srv, err := mcptool.New(kb, classifier, logger, opts...)
	if err != nil {
		slog.Error("failed to build mcp server", "err", err)
		return 1
	}

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("mcp server error", "err", err)
		return 1
	}
	return 0
}

// openKnowledgeBase selects the configured backend. The returned pool is
// non-nil only for the postgres backend.
func openKnowledgeBase(ctx context.Context, cfg *config.Config) (mcptool.KnowledgeBase, *pgxpool.Pool, error) {
	switch {
	case cfg.Knowledge.PostgresDSN != "":
		pool, err := pgxpool.New(ctx, cfg.Knowledge.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		store := knowledge.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool, nil

	case cfg.Knowledge.Path != "":
		store, err := knowledge.LoadFile(cfg.Knowledge.Path)
		return store, nil, err

	default:
		store, err := knowledge.NewMemStore(knowledge.DefaultRecords())
		return store, nil, err
	}
}

// newClassifier constructs a classifier from the symptoms config section.
func newClassifier(cfg config.SymptomsConfig) (*symptom.Classifier, error) {
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
