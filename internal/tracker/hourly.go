package tracker

import (
	"context"
	"fmt"

	"volumetracker/internal/market"
	"volumetracker/pkg/storage"
)

// HourlyAggregator folds snapshots into the current day's hourly series,
// keeping at most one record per hour label.
type HourlyAggregator struct {
	source SnapshotSource
	store  storage.Store
}

func NewHourlyAggregator(source SnapshotSource, store storage.Store) *HourlyAggregator {
	return &HourlyAggregator{source: source, store: store}
}

// Update fetches a snapshot and upserts it into the series of the day it was
// taken, under the hour it was taken, then persists the whole series. A
// failed fetch returns before anything is read or written.
func (h *HourlyAggregator) Update(ctx context.Context) ([]market.HourlyRecord, error) {
	snap, err := h.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	rec := market.NewHourlyRecord(snap)
	day := snap.Timestamp.Format(market.DateLayout)

	records, err := h.store.LoadHourly(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("%w: load hourly %s: %w", ErrPersistence, day, err)
	}

	records = upsertHour(records, rec)

	if err := h.store.SaveHourly(ctx, day, records); err != nil {
		return nil, fmt.Errorf("%w: save hourly %s: %w", ErrPersistence, day, err)
	}
	return records, nil
}

// upsertHour replaces the record carrying rec's hour label in place, or
// appends rec when the hour is new. A day has at most 24 entries.
func upsertHour(records []market.HourlyRecord, rec market.HourlyRecord) []market.HourlyRecord {
	for i := range records {
		if records[i].Hour == rec.Hour {
			records[i] = rec
			return records
		}
	}
	return append(records, rec)
}
