package tracker

import (
	"context"
	"fmt"

	"volumetracker/internal/market"
	"volumetracker/pkg/storage"
)

// DefaultCloseHour is the local hour from which the day's closing record may
// be taken (A-share close is 15:00).
const DefaultCloseHour = 15

// DailyAggregator appends one record per calendar date, taken on the first
// poll at or after the close hour. Appended records are never rewritten.
type DailyAggregator struct {
	source    SnapshotSource
	store     storage.Store
	clock     Clock
	closeHour int
}

func NewDailyAggregator(source SnapshotSource, store storage.Store, clock Clock, closeHour int) *DailyAggregator {
	return &DailyAggregator{source: source, store: store, clock: clock, closeHour: closeHour}
}

// Update returns the daily series, appending today's record when none exists
// yet and the close hour has been reached. No fetch happens when today is
// already recorded or the close hour is still ahead. On fetch failure the
// unchanged series is returned along with the error.
func (d *DailyAggregator) Update(ctx context.Context) ([]market.DailyRecord, error) {
	now := d.clock.Now()
	today := now.Format(market.DateLayout)

	records, err := d.store.LoadDaily(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load daily: %w", ErrPersistence, err)
	}

	if hasDate(records, today) {
		return records, nil
	}
	if now.Hour() < d.closeHour {
		return records, nil
	}

	snap, err := d.source.Fetch(ctx)
	if err != nil {
		return records, err
	}

	// full slice expression so a failed save can't leak the new record into records
	updated := append(records[:len(records):len(records)], market.NewDailyRecord(today, snap))
	if err := d.store.SaveDaily(ctx, updated); err != nil {
		return records, fmt.Errorf("%w: save daily: %w", ErrPersistence, err)
	}
	return updated, nil
}

func hasDate(records []market.DailyRecord, date string) bool {
	for _, r := range records {
		if r.Date == date {
			return true
		}
	}
	return false
}
