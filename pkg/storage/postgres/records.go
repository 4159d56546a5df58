package postgres

import (
	"time"

	"volumetracker/internal/market"
)

// HourlyRow is one hour bucket of a day's hourly series. Position keeps the
// insertion order of the series; (day, hour) is unique.
type HourlyRow struct {
	ID uint `gorm:"primaryKey"`

	Day      string `gorm:"type:char(10);not null;index:idx_hourly_day_hour,unique;index:idx_hourly_day_position"`
	Hour     string `gorm:"type:char(5);not null;index:idx_hourly_day_hour,unique"`
	Position int    `gorm:"not null;index:idx_hourly_day_position"`

	Timestamp   string  `gorm:"type:varchar(19);not null"`
	SHIndex     float64 `gorm:"type:numeric;not null"`
	SHChangePct float64 `gorm:"type:numeric;not null"`
	SHVolume    float64 `gorm:"type:numeric;not null"`
	SZIndex     float64 `gorm:"type:numeric;not null"`
	SZChangePct float64 `gorm:"type:numeric;not null"`
	SZVolume    float64 `gorm:"type:numeric;not null"`
	TotalVolume float64 `gorm:"type:numeric;not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (HourlyRow) TableName() string {
	return "hourly_record"
}

// DailyRow is one date of the daily series; date is unique.
type DailyRow struct {
	ID uint `gorm:"primaryKey"`

	Date     string `gorm:"type:char(10);not null;uniqueIndex:idx_daily_date"`
	Position int    `gorm:"not null;index:idx_daily_position"`

	TotalVolume float64 `gorm:"type:numeric;not null"`
	SHIndex     float64 `gorm:"type:numeric;not null"`
	SHChangePct float64 `gorm:"type:numeric;not null"`
	SZIndex     float64 `gorm:"type:numeric;not null"`
	SZChangePct float64 `gorm:"type:numeric;not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

func (DailyRow) TableName() string {
	return "daily_record"
}

func toHourlyRows(day string, records []market.HourlyRecord) []HourlyRow {
	rows := make([]HourlyRow, len(records))
	for i, r := range records {
		rows[i] = HourlyRow{
			Day:         day,
			Hour:        r.Hour,
			Position:    i,
			Timestamp:   r.Timestamp,
			SHIndex:     r.SHIndex,
			SHChangePct: r.SHChangePct,
			SHVolume:    r.SHVolume,
			SZIndex:     r.SZIndex,
			SZChangePct: r.SZChangePct,
			SZVolume:    r.SZVolume,
			TotalVolume: r.TotalVolume,
		}
	}
	return rows
}

func fromHourlyRows(rows []HourlyRow) []market.HourlyRecord {
	records := make([]market.HourlyRecord, len(rows))
	for i, r := range rows {
		records[i] = market.HourlyRecord{
			Timestamp:   r.Timestamp,
			Hour:        r.Hour,
			SHIndex:     r.SHIndex,
			SHChangePct: r.SHChangePct,
			SHVolume:    r.SHVolume,
			SZIndex:     r.SZIndex,
			SZChangePct: r.SZChangePct,
			SZVolume:    r.SZVolume,
			TotalVolume: r.TotalVolume,
		}
	}
	return records
}

func toDailyRows(records []market.DailyRecord) []DailyRow {
	rows := make([]DailyRow, len(records))
	for i, r := range records {
		rows[i] = DailyRow{
			Date:        r.Date,
			Position:    i,
			TotalVolume: r.TotalVolume,
			SHIndex:     r.SHIndex,
			SHChangePct: r.SHChangePct,
			SZIndex:     r.SZIndex,
			SZChangePct: r.SZChangePct,
		}
	}
	return rows
}

func fromDailyRows(rows []DailyRow) []market.DailyRecord {
	records := make([]market.DailyRecord, len(rows))
	for i, r := range rows {
		records[i] = market.DailyRecord{
			Date:        r.Date,
			TotalVolume: r.TotalVolume,
			SHIndex:     r.SHIndex,
			SHChangePct: r.SHChangePct,
			SZIndex:     r.SZIndex,
			SZChangePct: r.SZChangePct,
		}
	}
	return records
}
