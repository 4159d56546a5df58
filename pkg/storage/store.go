package storage

import (
	"context"
	"errors"

	"volumetracker/internal/market"
)

// Kind names a record series.
type Kind string

const (
	KindHourly Kind = "hourly"
	KindDaily  Kind = "daily"

	// DailyKey is the single period key of the daily series.
	DailyKey = "all"
)

// ErrCorrupt is returned when a stored artifact exists but cannot be decoded.
var ErrCorrupt = errors.New("stored artifact is corrupt")

// Store persists ordered record sequences keyed by (kind, period key). Hourly
// sequences are keyed by calendar date ("2006-01-02"), the daily sequence by
// DailyKey.
//
// Loading a key that was never saved yields an empty sequence and no error.
// Save replaces the whole sequence and must never expose a partial write to
// concurrent readers.
type Store interface {
	LoadHourly(ctx context.Context, day string) ([]market.HourlyRecord, error)
	SaveHourly(ctx context.Context, day string, records []market.HourlyRecord) error
	LoadDaily(ctx context.Context) ([]market.DailyRecord, error)
	SaveDaily(ctx context.Context, records []market.DailyRecord) error

	// DeleteHourlyBefore removes hourly sequences for days strictly before day
	// and reports how many were removed.
	DeleteHourlyBefore(ctx context.Context, day string) (int, error)

	Close() error
}
