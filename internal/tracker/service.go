package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"volumetracker/internal/market"
	"volumetracker/pkg/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultDailyDays is how many trailing daily records readers get by default.
const DefaultDailyDays = 30

type Options struct {
	CloseHour  int
	Clock      Clock
	Publishers []Publisher
}

// Tracker owns the aggregators and the read side. One instance is shared by
// the scheduler loop and the HTTP handlers.
type Tracker struct {
	store      storage.Store
	hourly     *HourlyAggregator
	daily      *DailyAggregator
	clock      Clock
	publishers []Publisher
	state      *State
	logger     *zap.Logger

	cycleMu sync.Mutex
}

func New(store storage.Store, source SnapshotSource, opts Options, logger *zap.Logger) *Tracker {
	if opts.Clock == nil {
		opts.Clock = SystemClock(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Tracker{
		store:      store,
		hourly:     NewHourlyAggregator(source, store),
		daily:      NewDailyAggregator(source, store, opts.Clock, opts.CloseHour),
		clock:      opts.Clock,
		publishers: opts.Publishers,
		state:      NewState(),
		logger:     logger,
	}
}

// AddPublisher registers p for subsequent cycles. Call before the scheduler starts.
func (t *Tracker) AddPublisher(p Publisher) {
	t.publishers = append(t.publishers, p)
}

// RunCycle runs one fetch-and-aggregate cycle: hourly upsert, daily close
// check, then publication of the combined view. Both aggregators always run;
// their failures are joined into the returned error. Overlapping calls fail
// with ErrCycleInProgress.
func (t *Tracker) RunCycle(ctx context.Context) error {
	if !t.cycleMu.TryLock() {
		return ErrCycleInProgress
	}
	defer t.cycleMu.Unlock()

	cycleID := uuid.NewString()
	log := t.logger.With(zap.String("cycle_id", cycleID))

	hourly, hourlyErr := t.hourly.Update(ctx)
	if hourlyErr != nil {
		log.Warn("hourly update failed", zap.String("error_kind", ErrorKind(hourlyErr)), zap.Error(hourlyErr))
	} else {
		log.Debug("hourly updated", zap.Int("records", len(hourly)))
	}

	daily, dailyErr := t.daily.Update(ctx)
	if dailyErr != nil {
		log.Warn("daily update failed", zap.String("error_kind", ErrorKind(dailyErr)), zap.Error(dailyErr))
	} else {
		log.Debug("daily checked", zap.Int("records", len(daily)))
	}

	publishErr := t.publish(ctx, log)

	err := errors.Join(hourlyErr, dailyErr, publishErr)
	now := t.clock.Now()
	if err != nil {
		t.state.RecordFailure(cycleID, now, err)
		return err
	}

	t.state.RecordSuccess(cycleID, now, len(hourly), len(daily))
	log.Info("data updated",
		zap.String("at", now.Format(market.TimestampLayout)),
		zap.Int("hourly", len(hourly)),
		zap.Int("daily", len(daily)),
	)
	return nil
}

// publish hands the current persisted view to every publisher, even after a
// failed aggregation, so consumers keep the last good data.
func (t *Tracker) publish(ctx context.Context, log *zap.Logger) error {
	if len(t.publishers) == 0 {
		return nil
	}

	view, err := t.View(ctx, 0)
	if err != nil {
		return err
	}

	var errs []error
	for _, p := range t.publishers {
		if err := p.Publish(ctx, view); err != nil {
			log.Warn("publish failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HourlyData re-reads today's hourly series from the store.
func (t *Tracker) HourlyData(ctx context.Context) ([]market.HourlyRecord, error) {
	day := t.clock.Now().Format(market.DateLayout)
	records, err := t.store.LoadHourly(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("%w: load hourly %s: %w", ErrPersistence, day, err)
	}
	return records, nil
}

// DailyData re-reads the daily series and returns its trailing days entries,
// or all of them when fewer exist or days <= 0.
func (t *Tracker) DailyData(ctx context.Context, days int) ([]market.DailyRecord, error) {
	records, err := t.store.LoadDaily(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load daily: %w", ErrPersistence, err)
	}
	return tail(records, days), nil
}

// View builds the combined shape from persisted state; days bounds the daily
// part as in DailyData.
func (t *Tracker) View(ctx context.Context, days int) (market.View, error) {
	hourly, err := t.HourlyData(ctx)
	if err != nil {
		return market.View{}, err
	}
	daily, err := t.DailyData(ctx, days)
	if err != nil {
		return market.View{}, err
	}

	return market.View{
		HourlyData: hourly,
		DailyData:  daily,
		LastUpdate: t.clock.Now().Format(market.TimestampLayout),
	}, nil
}

// Status reports the outcome of recent cycles.
func (t *Tracker) Status() Status {
	return t.state.Snapshot()
}

func tail[T any](s []T, n int) []T {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
