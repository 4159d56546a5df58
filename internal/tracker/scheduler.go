package tracker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultInterval      = time.Hour
	DefaultRetryInterval = 5 * time.Minute
)

// SleepFunc blocks for d or until ctx is done, returning ctx.Err() in the
// latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type SchedulerConfig struct {
	Interval      time.Duration
	RetryInterval time.Duration
	Sleep         SleepFunc
}

// Scheduler runs work immediately and then forever: Interval after a
// successful cycle, RetryInterval after a failed or panicking one.
type Scheduler struct {
	work   func(context.Context) error
	cfg    SchedulerConfig
	logger *zap.Logger
}

func NewScheduler(work func(context.Context) error, cfg SchedulerConfig, logger *zap.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.Sleep == nil {
		cfg.Sleep = Sleep
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{work: work, cfg: cfg, logger: logger}
}

// Run blocks until ctx is cancelled. A cycle in flight is allowed to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		wait := s.cfg.Interval
		if err := s.runOnce(ctx); err != nil {
			wait = s.cfg.RetryInterval
			s.logger.Error("update cycle failed",
				zap.String("error_kind", ErrorKind(err)),
				zap.Duration("retry_in", wait),
				zap.Error(err),
			)
		} else {
			s.logger.Info("next update scheduled", zap.Duration("in", wait))
		}

		if err := s.cfg.Sleep(ctx, wait); err != nil {
			s.logger.Info("scheduler stopped", zap.Error(err))
			return nil
		}
	}
}

// Start runs the scheduler in a goroutine. The returned channel closes when
// Run returns.
func (s *Scheduler) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	return done
}

func (s *Scheduler) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in update cycle: %v", r)
		}
	}()
	return s.work(ctx)
}
