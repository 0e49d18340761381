// Package scheduler runs every configured search on a cron schedule and
// pushes new listings to their conversations.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"rental-bot/bot"
	"rental-bot/models"
	"rental-bot/utils"
)

// SearchLister lists every conversation's configured search.
type SearchLister interface {
	ListSearches(ctx context.Context) ([]models.ConfiguredSearch, error)
}

// Runner executes one push-only search.
type Runner interface {
	RunScheduled(ctx context.Context, s models.ConfiguredSearch) (bot.Outcome, error)
}

// Options tune a Scheduler.
type Options struct {
	Spec           string
	MaxConcurrency int
	RateLimitMs    int
	RunTimeout     time.Duration
}

// CycleStats summarises one pass over all searches.
type CycleStats struct {
	Searches int
	Failed   int
	Notified int
}

// Scheduler wraps robfig/cron and fans each tick out over a WorkerPool.
type Scheduler struct {
	cron     *cron.Cron
	searches SearchLister
	runner   Runner
	opts     Options
	logger   *utils.Logger
	running  atomic.Bool
}

func New(searches SearchLister, runner Runner, opts Options, logger *utils.Logger) *Scheduler {
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 3 * time.Minute
	}
	return &Scheduler{
		cron:     cron.New(),
		searches: searches,
		runner:   runner,
		opts:     opts,
		logger:   logger,
	}
}

// Start registers the cycle under the configured spec and starts the cron
// loop. ctx bounds every cycle started afterwards.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.opts.Spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("scheduler: add %q: %w", s.opts.Spec, err)
	}
	s.cron.Start()
	s.logger.Info("[scheduler] Cron started, spec: %s", s.opts.Spec)
	return nil
}

// Stop halts the cron loop and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("[scheduler] Cron stopped")
}

// tick skips a cycle while the previous one is still running.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("[scheduler] Previous cycle still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("[scheduler] Cycle failed: %v", err)
	}
}

// RunOnce loads all searches and runs each through the runner with bounded
// concurrency. Individual search failures are counted, not returned.
func (s *Scheduler) RunOnce(ctx context.Context) (CycleStats, error) {
	var stats CycleStats

	searches, err := s.searches.ListSearches(ctx)
	if err != nil {
		return stats, fmt.Errorf("scheduler: list searches: %w", err)
	}
	stats.Searches = len(searches)
	if len(searches) == 0 {
		s.logger.Info("[scheduler] No configured searches, nothing to do")
		return stats, nil
	}

	s.logger.Info("[scheduler] Cycle started for %d search(es)", len(searches))
	start := time.Now()

	var failed, notified atomic.Int64
	pool := utils.NewWorkerPool(s.opts.MaxConcurrency, s.opts.RateLimitMs)
	for _, search := range searches {
		search := search
		ok := ctx.Err() == nil && pool.Submit(ctx, func() {
			runCtx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
			defer cancel()

			out, err := s.runner.RunScheduled(runCtx, search)
			if err != nil {
				failed.Add(1)
				s.logger.Warn("[scheduler] Search %d for %s failed: %v", search.ID, search.ConversationID, err)
				return
			}
			notified.Add(int64(out.Notified))
		})
		if !ok {
			s.logger.Warn("[scheduler] Cycle cancelled before all searches were submitted")
			break
		}
	}
	pool.Wait()

	stats.Failed = int(failed.Load())
	stats.Notified = int(notified.Load())
	s.logger.Info("[scheduler] Cycle complete in %s: %d searches, %d failed, %d listings notified",
		time.Since(start).Round(time.Millisecond), stats.Searches, stats.Failed, stats.Notified)
	return stats, nil
}
