package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	appstock "github.com/erp/stockcore/internal/application/stock"
	"github.com/erp/stockcore/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSchedulerNotRunning is returned when triggering a sweep on a stopped scheduler
var ErrSchedulerNotRunning = errors.New("scheduler is not running")

// ExpirySweepSchedulerConfig holds configuration for the expiry sweep scheduler
type ExpirySweepSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// Interval is how often the sweep runs
	Interval time.Duration

	// SweepTimeout is the maximum time for one sweep pass
	SweepTimeout time.Duration
}

// DefaultExpirySweepSchedulerConfig returns default configuration
func DefaultExpirySweepSchedulerConfig() ExpirySweepSchedulerConfig {
	return ExpirySweepSchedulerConfig{
		Enabled:      true,
		Interval:     5 * time.Minute,
		SweepTimeout: time.Minute,
	}
}

// ExpirySweepScheduler periodically expires overdue reservations and releases
// the stock they hold. A fulfil racing the sweep wins: reservations that
// reach a terminal state between scan and expiry are skipped, not failed.
type ExpirySweepScheduler struct {
	service   *appstock.ReservationExpiryService
	logger    *zap.Logger
	config    ExpirySweepSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewExpirySweepScheduler creates a new expiry sweep scheduler
func NewExpirySweepScheduler(
	service *appstock.ReservationExpiryService,
	logger *zap.Logger,
	config ExpirySweepSchedulerConfig,
) *ExpirySweepScheduler {
	return &ExpirySweepScheduler{
		service: service,
		logger:  logger,
		config:  config,
	}
}

// Start starts the sweep loop
func (s *ExpirySweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("reservation expiry sweep is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runSweepLoop(ctx)

	s.logger.Info("reservation expiry sweep started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("timeout", s.config.SweepTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *ExpirySweepScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("reservation expiry sweep stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("reservation expiry sweep stop timed out")
		return ctx.Err()
	}
}

// TriggerNow runs a single sweep pass outside the regular schedule
func (s *ExpirySweepScheduler) TriggerNow(ctx context.Context) (*appstock.ExpirySweepStats, error) {
	s.mu.Lock()
	running := s.isRunning
	s.mu.Unlock()
	if !running {
		return nil, ErrSchedulerNotRunning
	}
	return s.runSweep(ctx)
}

// runSweepLoop runs the sweep at the configured interval
func (s *ExpirySweepScheduler) runSweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.runSweep(ctx); err != nil {
				s.logger.Error("reservation expiry sweep failed", zap.Error(err))
			}
		}
	}
}

// runSweep executes one sweep pass with a timeout. Each pass carries a sweep
// ID through the context so every entry it logs can be correlated.
func (s *ExpirySweepScheduler) runSweep(ctx context.Context) (*appstock.ExpirySweepStats, error) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)
	defer cancel()

	sweepCtx, _ = logger.WithRequestID(sweepCtx, s.logger, uuid.New().String())
	log := logger.WithLogger(sweepCtx, s.logger)

	stats, err := s.service.ExpireOverdueReservations(sweepCtx)
	if err != nil {
		return nil, err
	}

	if stats.TotalOverdue > 0 {
		log.Info("reservation expiry sweep completed",
			zap.Int("total_overdue", stats.TotalOverdue),
			zap.Int("expired", stats.Expired),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed),
		)
	}

	return stats, nil
}
