package tracker

import (
	"context"
	"testing"

	"volumetracker/internal/market"

	"go.uber.org/zap/zaptest"
)

// go test -v --run TestRetentionPrune
func TestRetentionPrune(t *testing.T) {
	clock := newClock(at("2024-03-15", 1, 0))
	store := newMemStore()
	for _, day := range []string{"2024-03-01", "2024-03-07", "2024-03-08", "2024-03-15"} {
		store.hourly[day] = []market.HourlyRecord{{Hour: "10:00"}}
	}
	store.daily = []market.DailyRecord{{Date: "2024-03-01"}}

	r := NewRetention(store, 7, clock, zaptest.NewLogger(t))
	removed, err := r.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if _, ok := store.hourly["2024-03-08"]; !ok {
		t.Error("2024-03-08 pruned, want kept")
	}
	if len(store.daily) != 1 {
		t.Error("daily series pruned")
	}
}

func TestRetentionDisabled(t *testing.T) {
	clock := newClock(at("2024-03-15", 1, 0))
	store := newMemStore()
	store.hourly["2000-01-01"] = []market.HourlyRecord{{Hour: "10:00"}}

	removed, err := NewRetention(store, 0, clock, nil).Prune(context.Background())
	if err != nil || removed != 0 {
		t.Fatalf("Prune = %d, %v; want 0, nil", removed, err)
	}
	if len(store.hourly) != 1 {
		t.Error("disabled retention removed data")
	}
}

func TestRetentionStartRejectsBadTime(t *testing.T) {
	r := NewRetention(newMemStore(), 7, nil, zaptest.NewLogger(t))
	defer r.Stop()

	if err := r.Start(shanghai, "25:99"); err == nil {
		t.Fatal("expected error for invalid time, got nil")
	}
}
