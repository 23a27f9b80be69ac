package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cparmet/finite-news/internal/ai"
	"github.com/cparmet/finite-news/internal/api"
	"github.com/cparmet/finite-news/internal/config"
	"github.com/cparmet/finite-news/internal/digest"
	"github.com/cparmet/finite-news/internal/harvest"
	"github.com/cparmet/finite-news/internal/issue"
	"github.com/cparmet/finite-news/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	dataDir := flag.String("data-dir", "./data", "path to data directory")
	dryRun := flag.Bool("dry-run", false, "produce issues without committing cache snapshots")
	serve := flag.Bool("serve", false, "serve produced issues over HTTP after the run")
	outDir := flag.String("out", "", "directory to write rendered issues to")
	flag.Parse()

	// Load configuration (auto-creates default if missing).
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Ensure data directory exists.
	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}

	// Open database with WAL mode and pragmas.
	db, err := storage.OpenDatabase(filepath.Join(*dataDir, "finite-news.db"))
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run schema migrations.
	if err := storage.RunMigrations(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := storage.NewStore(db)

	// Scoring clients are optional: without an API key the dedup and
	// advisory stages degrade gracefully inside the engine.
	var (
		advisor  digest.Advisor
		embedder digest.Embedder
	)
	if cfg.AI.APIKey != "" {
		advisor, embedder, err = ai.NewScoring(ai.Config{
			Provider:       cfg.AI.Provider,
			APIKey:         cfg.AI.APIKey,
			Model:          cfg.AI.Model,
			EmbeddingModel: cfg.AI.EmbeddingModel,
		})
		if err != nil {
			slog.Error("failed to create scoring clients", "error", err)
			os.Exit(1)
		}
		slog.Info("scoring provider configured", "provider", cfg.AI.Provider, "model", cfg.AI.Model)
	} else {
		slog.Warn("no scoring API key configured, semantic dedup and advisory filter are disabled")
	}
	if !cfg.Editorial.AdvisoryEnabled {
		advisor = nil
	}

	engine := &digest.Engine{
		Embedder:            embedder,
		Advisor:             advisor,
		SimilarityThreshold: cfg.Editorial.SimilarityThreshold,
		OneHeadlineKeywords: cfg.Editorial.OneHeadlineKeywords,
		AdvisoryInstruction: cfg.Editorial.AdvisoryInstruction,
	}

	runner := issue.NewRunner(cfg, store, harvest.NewFetcher(), engine)
	runner.DryRun = *dryRun
	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			slog.Error("failed to create output directory", "error", err)
			os.Exit(1)
		}
		runner.OutputDir = *outDir
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Editorial.RequestTimeoutSeconds)*time.Second*time.Duration(max(len(cfg.Sources), 1)))
	defer cancel()

	if err := runner.RunAll(ctx); err != nil {
		slog.Error("run finished with errors", "error", err)
		if !*serve {
			os.Exit(1)
		}
	}

	if !*serve {
		return
	}

	addr := fmt.Sprintf("localhost:%d", cfg.Server.Port)
	slog.Info("serving issue previews", "addr", "http://"+addr)
	if err := http.ListenAndServe(addr, api.NewRouter(runner)); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
