package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"volumetracker/internal/market"
	"volumetracker/pkg/storage"
)

var shanghai = time.FixedZone("CST", 8*3600)

func at(day string, hour, minute int) time.Time {
	d, err := time.ParseInLocation(market.DateLayout, day, shanghai)
	if err != nil {
		panic(err)
	}
	return d.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// manualClock is a settable Clock.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *manualClock { return &manualClock{now: t} }

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// fakeSource returns a snapshot built from the configured values, or err.
type fakeSource struct {
	mu    sync.Mutex
	clock Clock
	sh    market.Reading
	sz    market.Reading
	err   error
	calls int
}

func newSource(clock Clock, shPrice, shTurnover, szPrice, szTurnover float64) *fakeSource {
	return &fakeSource{
		clock: clock,
		sh:    market.Reading{Code: "sh000001", Price: shPrice, ChangePct: 0.5, Turnover: shTurnover},
		sz:    market.Reading{Code: "sz399001", Price: szPrice, ChangePct: -0.3, Turnover: szTurnover},
	}
}

func (f *fakeSource) set(shTurnover, szTurnover float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sh.Turnover = shTurnover
	f.sz.Turnover = szTurnover
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSource) Fetch(ctx context.Context) (market.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return market.Snapshot{}, f.err
	}
	return market.Snapshot{
		Timestamp:   f.clock.Now(),
		SH:          f.sh,
		SZ:          f.sz,
		TotalVolume: f.sh.Turnover + f.sz.Turnover,
	}, nil
}

// memStore is an in-memory storage.Store that counts calls and can be told
// to fail saves.
type memStore struct {
	mu      sync.Mutex
	hourly  map[string][]market.HourlyRecord
	daily   []market.DailyRecord
	saveErr error
	loadErr error
	loads   int
	saves   int
}

var _ storage.Store = (*memStore)(nil)

var errDisk = errors.New("disk full")

func newMemStore() *memStore {
	return &memStore{hourly: make(map[string][]market.HourlyRecord)}
}

func (m *memStore) LoadHourly(_ context.Context, day string) ([]market.HourlyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]market.HourlyRecord{}, m.hourly[day]...), nil
}

func (m *memStore) SaveHourly(_ context.Context, day string, records []market.HourlyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.hourly[day] = append([]market.HourlyRecord{}, records...)
	return nil
}

func (m *memStore) LoadDaily(context.Context) ([]market.DailyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]market.DailyRecord{}, m.daily...), nil
}

func (m *memStore) SaveDaily(_ context.Context, records []market.DailyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.daily = append([]market.DailyRecord{}, records...)
	return nil
}

func (m *memStore) DeleteHourlyBefore(_ context.Context, day string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for d := range m.hourly {
		if d < day {
			delete(m.hourly, d)
			n++
		}
	}
	return n, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
