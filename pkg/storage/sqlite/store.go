package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"volumetracker/internal/market"
	"volumetracker/pkg/storage"

	_ "github.com/mattn/go-sqlite3"
)

// Store keeps each series as one JSON payload row keyed by (kind, period_key).
// A save is a single upsert statement, so readers never see half a series.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS series (
    kind TEXT NOT NULL,
    period_key TEXT NOT NULL,
    payload TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (kind, period_key)
);`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *Store) LoadHourly(ctx context.Context, day string) ([]market.HourlyRecord, error) {
	records := []market.HourlyRecord{}
	if err := s.load(ctx, storage.KindHourly, day, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) SaveHourly(ctx context.Context, day string, records []market.HourlyRecord) error {
	if records == nil {
		records = []market.HourlyRecord{}
	}
	return s.save(ctx, storage.KindHourly, day, records)
}

func (s *Store) LoadDaily(ctx context.Context) ([]market.DailyRecord, error) {
	records := []market.DailyRecord{}
	if err := s.load(ctx, storage.KindDaily, storage.DailyKey, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) SaveDaily(ctx context.Context, records []market.DailyRecord) error {
	if records == nil {
		records = []market.DailyRecord{}
	}
	return s.save(ctx, storage.KindDaily, storage.DailyKey, records)
}

func (s *Store) DeleteHourlyBefore(ctx context.Context, day string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM series WHERE kind = ? AND period_key < ?`, string(storage.KindHourly), day)
	if err != nil {
		return 0, fmt.Errorf("delete hourly before %s: %w", day, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Store) load(ctx context.Context, kind storage.Kind, key string, v any) error {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM series WHERE kind = ? AND period_key = ?`, string(kind), key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s/%s: %w", kind, key, err)
	}

	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("%w: %s/%s: %v", storage.ErrCorrupt, kind, key, err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, kind storage.Kind, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", kind, key, err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO series (kind, period_key, payload, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(kind, period_key) DO UPDATE SET
    payload = excluded.payload,
    updated_at = CURRENT_TIMESTAMP`,
		string(kind), key, string(payload))
	if err != nil {
		return fmt.Errorf("save %s/%s: %w", kind, key, err)
	}
	return nil
}
