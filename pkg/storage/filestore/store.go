package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"volumetracker/internal/market"
	"volumetracker/pkg/storage"
)

const (
	hourlyPrefix = "hourly_data_"
	hourlySuffix = ".json"
	dailyFile    = "daily_data.json"
)

// Store keeps one JSON file per hourly day plus a single daily file:
//
//	data/hourly_data_2024-03-15.json
//	data/daily_data.json
type Store struct {
	dir string
}

var _ storage.Store = (*Store)(nil)

// New creates dir if needed and returns a Store rooted at it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) HourlyPath(day string) string {
	return filepath.Join(s.dir, hourlyPrefix+day+hourlySuffix)
}

func (s *Store) DailyPath() string {
	return filepath.Join(s.dir, dailyFile)
}

func (s *Store) LoadHourly(_ context.Context, day string) ([]market.HourlyRecord, error) {
	records := []market.HourlyRecord{}
	if err := readJSON(s.HourlyPath(day), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) SaveHourly(_ context.Context, day string, records []market.HourlyRecord) error {
	return WriteJSON(s.HourlyPath(day), nonNil(records))
}

func (s *Store) LoadDaily(_ context.Context) ([]market.DailyRecord, error) {
	records := []market.DailyRecord{}
	if err := readJSON(s.DailyPath(), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) SaveDaily(_ context.Context, records []market.DailyRecord) error {
	return WriteJSON(s.DailyPath(), nonNil(records))
}

// HourlyDays lists the days that have an hourly file, oldest first.
func (s *Store) HourlyDays() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, hourlyPrefix+"*"+hourlySuffix))
	if err != nil {
		return nil, err
	}

	days := make([]string, 0, len(matches))
	for _, m := range matches {
		name := filepath.Base(m)
		days = append(days, strings.TrimSuffix(strings.TrimPrefix(name, hourlyPrefix), hourlySuffix))
	}
	sort.Strings(days)
	return days, nil
}

func (s *Store) DeleteHourlyBefore(_ context.Context, day string) (int, error) {
	days, err := s.HourlyDays()
	if err != nil {
		return 0, fmt.Errorf("list hourly files: %w", err)
	}

	removed := 0
	for _, d := range days {
		// ISO dates sort lexically
		if d >= day {
			break
		}
		if err := os.Remove(s.HourlyPath(d)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("remove %s: %w", d, err)
		}
		removed++
	}
	return removed, nil
}

func (s *Store) Close() error { return nil }

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", storage.ErrCorrupt, filepath.Base(path), err)
	}
	return nil
}

// WriteJSON atomically replaces path with the indented JSON encoding of v:
// the data goes to a temp file in the same directory which is then renamed
// over the target, so readers see either the old or the new content.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
