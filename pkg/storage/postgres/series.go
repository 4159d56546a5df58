package postgres

import (
	"context"
	"fmt"

	"volumetracker/internal/market"

	"gorm.io/gorm"
)

func (p *PostgresClient) LoadHourly(ctx context.Context, day string) ([]market.HourlyRecord, error) {
	var rows []HourlyRow
	err := p.DB.WithContext(ctx).
		Where("day = ?", day).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load hourly %s: %w", day, err)
	}
	return fromHourlyRows(rows), nil
}

// SaveHourly replaces the day's series inside one transaction, so readers see
// either the previous rows or the new ones.
func (p *PostgresClient) SaveHourly(ctx context.Context, day string, records []market.HourlyRecord) error {
	rows := toHourlyRows(day, records)

	return p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("day = ?", day).Delete(&HourlyRow{}).Error; err != nil {
			return fmt.Errorf("clear hourly %s: %w", day, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert hourly %s: %w", day, err)
		}
		return nil
	})
}

func (p *PostgresClient) LoadDaily(ctx context.Context) ([]market.DailyRecord, error) {
	var rows []DailyRow
	if err := p.DB.WithContext(ctx).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load daily: %w", err)
	}
	return fromDailyRows(rows), nil
}

func (p *PostgresClient) SaveDaily(ctx context.Context, records []market.DailyRecord) error {
	rows := toDailyRows(records)

	return p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&DailyRow{}).Error; err != nil {
			return fmt.Errorf("clear daily: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert daily: %w", err)
		}
		return nil
	})
}

func (p *PostgresClient) DeleteHourlyBefore(ctx context.Context, day string) (int, error) {
	var days []string

	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&HourlyRow{}).
			Where("day < ?", day).
			Distinct("day").
			Pluck("day", &days).Error; err != nil {
			return fmt.Errorf("list hourly days: %w", err)
		}
		if len(days) == 0 {
			return nil
		}
		if err := tx.Where("day < ?", day).Delete(&HourlyRow{}).Error; err != nil {
			return fmt.Errorf("delete hourly before %s: %w", day, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(days), nil
}
