package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"volumetracker/config"
	"volumetracker/internal/market"
	"volumetracker/internal/tracker"
	"volumetracker/pkg/storage/filestore"

	"go.uber.org/zap/zaptest"
)

func sinaServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[
			{"symbol":"sh000001","name":"上证指数","trade":"3000.10","changepercent":"0.50","amount":"400000000000"},
			{"symbol":"sz399001","name":"深证成指","trade":"9800.50","changepercent":"-0.30","amount":"450000000000"}
		]`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Provider: config.ProviderConfig{
			BaseURL:  baseURL,
			Timeout:  2 * time.Second,
			SHCode:   "sh000001",
			SZCode:   "sz399001",
			PageSize: 80,
		},
		Tracker: config.TrackerConfig{
			Interval:        time.Hour,
			RetryInterval:   5 * time.Minute,
			CloseHour:       15,
			Timezone:        "Local",
			CurrentDataFile: filepath.Join(dir, "static", "current_data.json"),
			RetentionAt:     "02:00",
		},
		Storage: config.StorageConfig{
			Driver:  "file",
			DataDir: filepath.Join(dir, "data"),
			Path:    filepath.Join(dir, "tracker.db"),
		},
		Server: config.ServerConfig{Addr: "127.0.0.1:0", Mode: "test", ShutdownTimeout: 2 * time.Second},
		Log:    config.LogConfig{Environment: "dev"},
	}
}

// go test -v --run TestRunOnceEndToEnd
func TestRunOnceEndToEnd(t *testing.T) {
	cfg := testConfig(t, sinaServer(t).URL)
	log := zaptest.NewLogger(t)

	a, err := New(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if err := a.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	hourly, err := a.Tracker.HourlyData(context.Background())
	if err != nil {
		t.Fatalf("HourlyData: %v", err)
	}
	if len(hourly) != 1 {
		t.Fatalf("hourly = %+v, want 1 entry", hourly)
	}
	if hourly[0].SHVolume != 4000 || hourly[0].SZVolume != 4500 || hourly[0].TotalVolume != 8500 {
		t.Errorf("volumes = %v/%v/%v, want 4000/4500/8500", hourly[0].SHVolume, hourly[0].SZVolume, hourly[0].TotalVolume)
	}

	data, err := os.ReadFile(cfg.Tracker.CurrentDataFile)
	if err != nil {
		t.Fatalf("read current data: %v", err)
	}
	var view market.View
	if err := json.Unmarshal(data, &view); err != nil {
		t.Fatalf("decode current data: %v", err)
	}
	if len(view.HourlyData) != 1 {
		t.Errorf("published hourly = %d, want 1", len(view.HourlyData))
	}
}

func TestRunOnceProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	a, err := New(context.Background(), testConfig(t, srv.URL), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	err = a.RunOnce(context.Background())
	if got := tracker.ErrorKind(err); got != "provider_unavailable" {
		t.Errorf("ErrorKind = %q, want provider_unavailable (err %v)", got, err)
	}
}

func TestOpenStoreDrivers(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	log := zaptest.NewLogger(t)

	for _, driver := range []string{"file", "sqlite"} {
		cfg.Storage.Driver = driver
		s, err := OpenStore(context.Background(), cfg, log)
		if err != nil {
			t.Fatalf("%s: OpenStore: %v", driver, err)
		}
		if driver == "file" {
			if _, ok := s.(*filestore.Store); !ok {
				t.Errorf("file driver returned %T", s)
			}
		}
		if err := s.Close(); err != nil {
			t.Errorf("%s: Close: %v", driver, err)
		}
	}

	cfg.Storage.Driver = "redis"
	if _, err := OpenStore(context.Background(), cfg, log); err == nil {
		t.Error("expected error for unknown driver, got nil")
	}

	cfg.Storage.Driver = "mongo"
	cfg.Mongo.URI = ""
	if _, err := OpenStore(context.Background(), cfg, log); err == nil {
		t.Error("expected error for mongo without uri, got nil")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := testConfig(t, sinaServer(t).URL)
	a, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Serve(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
