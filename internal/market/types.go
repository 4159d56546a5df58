package market

import (
	"fmt"
	"time"
)

const (
	TimestampLayout = "2006-01-02 15:04:05"
	DateLayout      = "2006-01-02"
)

// HourLabel returns the hourly bucket label for t, e.g. "09:00".
func HourLabel(t time.Time) string {
	return fmt.Sprintf("%02d:00", t.Hour())
}

// Reading is one instrument's quote inside a Snapshot. Turnover is already in
// units of 1e8 (亿元).
type Reading struct {
	Code      string
	Price     float64
	ChangePct float64
	Turnover  float64
}

// Snapshot is one point-in-time reading of both tracked indices.
type Snapshot struct {
	Timestamp   time.Time
	SH          Reading
	SZ          Reading
	TotalVolume float64 // SH.Turnover + SZ.Turnover
}

// HourlyRecord is a Snapshot bucketed by wall-clock hour.
type HourlyRecord struct {
	Timestamp   string  `json:"timestamp"` // "2006-01-02 15:04:05"
	Hour        string  `json:"hour"`      // "15:00"
	SHIndex     float64 `json:"sh_index"`
	SHChangePct float64 `json:"sh_change_pct"`
	SHVolume    float64 `json:"sh_volume"`
	SZIndex     float64 `json:"sz_index"`
	SZChangePct float64 `json:"sz_change_pct"`
	SZVolume    float64 `json:"sz_volume"`
	TotalVolume float64 `json:"total_volume"`
}

// DailyRecord is the closing reading for one calendar date. Turnover per
// instrument is not retained.
type DailyRecord struct {
	Date        string  `json:"date"` // "2006-01-02"
	TotalVolume float64 `json:"total_volume"`
	SHIndex     float64 `json:"sh_index"`
	SHChangePct float64 `json:"sh_change_pct"`
	SZIndex     float64 `json:"sz_index"`
	SZChangePct float64 `json:"sz_change_pct"`
}

// View is the combined shape served to readers and written to the current
// data artifact.
type View struct {
	HourlyData []HourlyRecord `json:"hourly_data"`
	DailyData  []DailyRecord  `json:"daily_data"`
	LastUpdate string         `json:"last_update"`
}

// NewHourlyRecord labels s with the hour it was taken in.
func NewHourlyRecord(s Snapshot) HourlyRecord {
	return HourlyRecord{
		Timestamp:   s.Timestamp.Format(TimestampLayout),
		Hour:        HourLabel(s.Timestamp),
		SHIndex:     s.SH.Price,
		SHChangePct: s.SH.ChangePct,
		SHVolume:    s.SH.Turnover,
		SZIndex:     s.SZ.Price,
		SZChangePct: s.SZ.ChangePct,
		SZVolume:    s.SZ.Turnover,
		TotalVolume: s.TotalVolume,
	}
}

// NewDailyRecord builds the closing record for date from s.
func NewDailyRecord(date string, s Snapshot) DailyRecord {
	return DailyRecord{
		Date:        date,
		TotalVolume: s.TotalVolume,
		SHIndex:     s.SH.Price,
		SHChangePct: s.SH.ChangePct,
		SZIndex:     s.SZ.Price,
		SZChangePct: s.SZ.ChangePct,
	}
}
