package mongo

import (
	"context"
	"os"
	"reflect"
	"testing"
	"time"

	"volumetracker/config"
	"volumetracker/internal/market"
	"volumetracker/pkg/storage"
)

func TestDocID(t *testing.T) {
	if got := docID(storage.KindHourly, "2024-03-15"); got != "hourly:2024-03-15" {
		t.Errorf("docID = %q, want hourly:2024-03-15", got)
	}
}

func TestConnectRequiresURI(t *testing.T) {
	if _, err := Connect(context.Background(), config.MongoConfig{}); err == nil {
		t.Fatal("expected error for empty uri, got nil")
	}
}

// go test -v --run TestMongoRoundTrip
// Requires VOLUMETRACKER_TEST_MONGO_URI, e.g. mongodb://localhost:27017.
func TestMongoRoundTrip(t *testing.T) {
	uri := os.Getenv("VOLUMETRACKER_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("VOLUMETRACKER_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s, err := Connect(ctx, config.MongoConfig{
		URI:        uri,
		Database:   "volumetracker_test",
		Collection: "series_" + time.Now().Format("150405"),
		Timeout:    5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer func() {
		_ = s.collection.Drop(context.Background())
		s.Close()
	}()

	empty, err := s.LoadDaily(ctx)
	if err != nil {
		t.Fatalf("LoadDaily empty: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("LoadDaily empty = %d records, want 0", len(empty))
	}

	hourly := []market.HourlyRecord{{Timestamp: "2024-03-15 10:00:01", Hour: "10:00", SHIndex: 3000.1, TotalVolume: 8500.2}}
	if err := s.SaveHourly(ctx, "2024-03-15", hourly); err != nil {
		t.Fatalf("SaveHourly: %v", err)
	}
	got, err := s.LoadHourly(ctx, "2024-03-15")
	if err != nil {
		t.Fatalf("LoadHourly: %v", err)
	}
	if !reflect.DeepEqual(got, hourly) {
		t.Errorf("LoadHourly = %+v, want %+v", got, hourly)
	}

	removed, err := s.DeleteHourlyBefore(ctx, "2024-03-16")
	if err != nil {
		t.Fatalf("DeleteHourlyBefore: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
}
