package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/user/movie-bot-go/internal/config"
	"github.com/user/movie-bot-go/internal/server"
)

// defaultInitialDelay is the pause before the first sweep
const defaultInitialDelay = 5 * time.Second

// SessionPruner drops expired conversational state
type SessionPruner interface {
	Prune(now time.Time) int
}

// Counter reports catalog totals for the gauges
type Counter interface {
	CountUsers(ctx context.Context) (int64, error)
	CountItems(ctx context.Context) (int64, error)
}

// Scheduler runs periodic maintenance: session expiry and gauge refresh
type Scheduler struct {
	sessions     SessionPruner
	counter      Counter
	interval     time.Duration
	initialDelay time.Duration
	running      atomic.Bool
	mu           sync.Mutex // prevents overlapping sweeps
	stopCh       chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewScheduler creates a new scheduler instance
func NewScheduler(sessions SessionPruner, counter Counter, cfg *config.SessionConfig) *Scheduler {
	return &Scheduler{
		sessions:     sessions,
		counter:      counter,
		interval:     cfg.SweepInterval,
		initialDelay: defaultInitialDelay,
		stopCh:       make(chan struct{}),
	}
}

// Start begins the scheduler with initial delay and periodic execution
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		log.Info().Msg("Scheduler is disabled")
		return
	}

	s.wg.Add(1)
	go s.run(ctx)
}

// run is the main scheduler loop
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	log.Info().Dur("delay", s.initialDelay).Msg("Scheduler starting with initial delay")

	select {
	case <-time.After(s.initialDelay):
		s.executeSweep(ctx)
	case <-s.stopCh:
		log.Info().Msg("Scheduler stopped during initial delay")
		return
	case <-ctx.Done():
		log.Info().Msg("Scheduler context cancelled during initial delay")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.interval).Msg("Scheduler started periodic execution")

	for {
		select {
		case <-ticker.C:
			s.executeSweep(ctx)
		case <-s.stopCh:
			log.Info().Msg("Scheduler stopped")
			return
		case <-ctx.Done():
			log.Info().Msg("Scheduler context cancelled")
			return
		}
	}
}

// executeSweep runs a single sweep, skipping the trigger if one is in progress
func (s *Scheduler) executeSweep(ctx context.Context) {
	if !s.TryRun(ctx) {
		log.Warn().Msg("Maintenance sweep already running, skipping this trigger")
	}
}

// RunOnce prunes expired sessions and refreshes the user and item gauges
func (s *Scheduler) RunOnce(ctx context.Context) error {
	pruned := s.sessions.Prune(time.Now())

	users, err := s.counter.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	items, err := s.counter.CountItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to count items: %w", err)
	}
	server.UpdateCounts(users, items)

	log.Info().
		Int("prunedSessions", pruned).
		Int64("users", users).
		Int64("items", items).
		Msg("Maintenance sweep finished")
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	log.Info().Msg("Scheduler stopped")
}

// IsRunning returns true if a sweep is currently running
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// TryRun attempts to run a sweep immediately.
// Returns false if a sweep is already running.
func (s *Scheduler) TryRun(ctx context.Context) bool {
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()

	s.running.Store(true)
	defer s.running.Store(false)

	startTime := time.Now()
	if err := s.RunOnce(ctx); err != nil {
		log.Error().Err(err).Msg("Maintenance sweep failed")
	}
	log.Debug().Dur("duration", time.Since(startTime)).Msg("Maintenance sweep completed")

	return true
}
