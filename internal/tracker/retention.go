package tracker

import (
	"context"
	"fmt"
	"time"

	"volumetracker/internal/market"
	"volumetracker/pkg/storage"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Retention prunes hourly series older than a fixed number of days. The daily
// series is never pruned.
type Retention struct {
	store  storage.Store
	days   int
	clock  Clock
	logger *zap.Logger

	cron *gocron.Scheduler
}

func NewRetention(store storage.Store, days int, clock Clock, logger *zap.Logger) *Retention {
	if clock == nil {
		clock = SystemClock(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retention{store: store, days: days, clock: clock, logger: logger}
}

// Prune deletes hourly series for days before today minus the retention
// window. It is a no-op when the window is not positive.
func (r *Retention) Prune(ctx context.Context) (int, error) {
	if r.days <= 0 {
		return 0, nil
	}

	cutoff := r.clock.Now().AddDate(0, 0, -r.days).Format(market.DateLayout)
	removed, err := r.store.DeleteHourlyBefore(ctx, cutoff)
	if err != nil {
		return removed, fmt.Errorf("%w: prune hourly before %s: %w", ErrPersistence, cutoff, err)
	}
	return removed, nil
}

// Start schedules Prune once a day at the "15:04" wall time at, in loc.
func (r *Retention) Start(loc *time.Location, at string) error {
	if loc == nil {
		loc = time.Local
	}

	r.cron = gocron.NewScheduler(loc)
	_, err := r.cron.Every(1).Day().At(at).Do(func() {
		removed, err := r.Prune(context.Background())
		if err != nil {
			r.logger.Error("retention prune failed", zap.Error(err))
			return
		}
		r.logger.Info("retention prune done", zap.Int("removed_days", removed), zap.Int("keep_days", r.days))
	})
	if err != nil {
		return fmt.Errorf("schedule retention at %q: %w", at, err)
	}

	r.cron.StartAsync()
	return nil
}

func (r *Retention) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}
