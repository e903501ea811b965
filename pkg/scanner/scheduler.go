package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
)

// SmallestWindow is the shortest threshold window. A schedule must sweep
// more often than this or an entity could pass through its final window
// unscanned.
const SmallestWindow = 7 * 24 * time.Hour

// Sweeper runs one sweep.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (*model.SweepSummary, error)
}

// Scheduler sweeps at a fixed interval.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// ValidateInterval reports whether interval is usable for scheduling.
func ValidateInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("scan interval must be positive, got %s", interval)
	}
	if interval >= SmallestWindow {
		return fmt.Errorf("scan interval %s must be shorter than %s", interval, SmallestWindow)
	}
	return nil
}

// NewScheduler creates a scheduler for sweeper.
func NewScheduler(sweeper Sweeper, interval time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if err := ValidateInterval(interval); err != nil {
		return nil, err
	}
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
// A failed sweep is logged and the schedule continues.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.runOnce(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.sweeper.Sweep(ctx, s.now()); err != nil {
		s.logger.Error("sweep failed", "error", err)
	}
}
