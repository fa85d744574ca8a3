package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"financial_analyzer/pkg/api"
	"financial_analyzer/pkg/core/agent"
	"financial_analyzer/pkg/core/analysis"
	"financial_analyzer/pkg/core/commentary"
	"financial_analyzer/pkg/core/config"
	"financial_analyzer/pkg/core/export"
	"financial_analyzer/pkg/core/extraction"
	"financial_analyzer/pkg/core/logging"
	"financial_analyzer/pkg/core/prompt"
	"financial_analyzer/pkg/core/scheduler"
	"financial_analyzer/pkg/core/store"

	"github.com/phuslu/log"
)

func main() {
	cfg, err := config.Load("config/app.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Storage: Postgres when configured, otherwise in-memory with a file cache
	var (
		repo  store.Repository
		cache *store.ExtractionCache
	)
	if cfg.DatabaseURL != "" {
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		repo = store.NewPostgresRepo(pool)
		cache = store.NewExtractionCache(pool, "")
		log.Info().Str("component", "store").Msg("using postgres")
	} else {
		repo = store.NewMemoryRepo()
		cache = store.NewExtractionCache(nil, cfg.Extraction.CacheDir)
		log.Warn().Str("component", "store").Str("cache_dir", cfg.Extraction.CacheDir).Msg("DATABASE_URL not set, analyses are kept in memory")
	}

	// 2. Prompts: embedded defaults, overridable from the resources directory
	prompts := prompt.Get()
	if err := prompts.LoadFromDirectory(cfg.ResourcesPath); err != nil {
		log.Warn().Err(err).Str("path", cfg.ResourcesPath).Msg("prompt overrides not loaded, using embedded prompts")
	}
	log.Info().Int("prompts", prompts.Count()).Msg("prompt library ready")

	// 3. Services
	agents := agent.NewManager(cfg.Agents)
	engine := analysis.NewEngine(repo)
	extractor := extraction.NewExtractor(agents, prompts, cache, extraction.Options{
		MaxPages: cfg.Extraction.MaxPages,
		Timeout:  cfg.Extraction.Timeout,
	})
	commentaries := commentary.NewService(repo, engine, agents, prompts)
	exports := export.NewService(repo, engine, export.Options{FontPath: cfg.Export.FontPath})

	// 4. Background jobs
	if cfg.Scheduler.Enabled {
		jobs := scheduler.New(repo, engine, cache, scheduler.Schedules{
			Recalculate: cfg.Scheduler.RecalcSchedule,
			Prune:       cfg.Scheduler.PruneSchedule,
			RetainFor:   cfg.Extraction.CacheRetainFor,
		})
		if err := jobs.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start scheduler")
		}
		defer jobs.Stop()
	}

	// 5. HTTP
	router := api.NewRouter(api.Deps{
		Repo:        repo,
		Engine:      engine,
		Extractor:   extractor,
		Commentary:  commentaries,
		Export:      exports,
		Agents:      agents,
		MaxUploadMB: cfg.Extraction.MaxUploadMB,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("provider", agents.GetActiveProvider()).Msg("API server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
