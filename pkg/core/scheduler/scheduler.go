// Package scheduler runs the periodic maintenance jobs: recalculating
// analyses whose inputs changed and pruning the extraction cache.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"financial_analyzer/pkg/core/analysis"
	"financial_analyzer/pkg/core/store"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"
)

// Schedules are six-field cron expressions (with seconds).
type Schedules struct {
	Recalculate string
	Prune       string
	RetainFor   time.Duration
}

// Stats summarizes one recalculation run.
type Stats struct {
	Recalculated int
	Failed       int
	Duration     time.Duration
}

type Scheduler struct {
	repo   store.Repository
	engine *analysis.Engine
	cache  *store.ExtractionCache
	cron   *cron.Cron
	sched  Schedules
}

func New(repo store.Repository, engine *analysis.Engine, cache *store.ExtractionCache, sched Schedules) *Scheduler {
	if sched.Recalculate == "" {
		sched.Recalculate = "0 */10 * * * *"
	}
	if sched.Prune == "" {
		sched.Prune = "0 30 3 * * *"
	}
	if sched.RetainFor <= 0 {
		sched.RetainFor = 30 * 24 * time.Hour
	}
	return &Scheduler{
		repo:   repo,
		engine: engine,
		cache:  cache,
		cron:   cron.New(cron.WithSeconds()),
		sched:  sched,
	}
}

// Start registers both jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.sched.Recalculate, s.runRecalculate); err != nil {
		return fmt.Errorf("invalid recalculate schedule %q: %w", s.sched.Recalculate, err)
	}
	if s.cache != nil {
		if _, err := s.cron.AddFunc(s.sched.Prune, s.runPrune); err != nil {
			return fmt.Errorf("invalid prune schedule %q: %w", s.sched.Prune, err)
		}
	}
	s.cron.Start()
	log.Info().Str("component", "scheduler").Str("recalculate", s.sched.Recalculate).Str("prune", s.sched.Prune).Msg("scheduler started")
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Str("component", "scheduler").Msg("scheduler stopped")
}

// RecalculateStale recalculates every analysis whose periods changed after
// its metrics were last computed. One failing analysis does not stop the rest.
func (s *Scheduler) RecalculateStale(ctx context.Context) (Stats, error) {
	start := time.Now()
	var stats Stats

	ids, err := s.repo.ListStaleAnalyses(ctx)
	if err != nil {
		return stats, err
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if _, err := s.engine.Recalculate(ctx, id); err != nil {
			stats.Failed++
			log.Error().Err(err).Str("component", "scheduler").Str("analysis_id", id).Msg("recalculation failed")
			continue
		}
		stats.Recalculated++
	}
	stats.Duration = time.Since(start)
	return stats, nil
}

func (s *Scheduler) runRecalculate() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	stats, err := s.RecalculateStale(ctx)
	if err != nil {
		log.Error().Err(err).Str("component", "scheduler").Msg("scheduled recalculation failed")
		return
	}
	if stats.Recalculated+stats.Failed > 0 {
		log.Info().Str("component", "scheduler").
			Int("recalculated", stats.Recalculated).
			Int("failed", stats.Failed).
			Dur("duration", stats.Duration).
			Msg("scheduled recalculation completed")
	}
}

func (s *Scheduler) runPrune() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := s.cache.Prune(ctx, s.sched.RetainFor)
	if err != nil {
		log.Error().Err(err).Str("component", "scheduler").Msg("cache prune failed")
		return
	}
	log.Info().Str("component", "scheduler").Int("removed", n).Msg("extraction cache pruned")
}
