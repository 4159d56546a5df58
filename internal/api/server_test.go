package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"volumetracker/config"
	"volumetracker/internal/market"
	"volumetracker/internal/tracker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

type stubReader struct {
	hourly   []market.HourlyRecord
	daily    []market.DailyRecord
	err      error
	lastDays int
}

func (r *stubReader) HourlyData(context.Context) ([]market.HourlyRecord, error) {
	return r.hourly, r.err
}

func (r *stubReader) DailyData(_ context.Context, days int) ([]market.DailyRecord, error) {
	r.lastDays = days
	if r.err != nil {
		return nil, r.err
	}
	if days > 0 && len(r.daily) > days {
		return r.daily[len(r.daily)-days:], nil
	}
	return r.daily, nil
}

func (r *stubReader) View(ctx context.Context, days int) (market.View, error) {
	daily, err := r.DailyData(ctx, days)
	if err != nil {
		return market.View{}, err
	}
	return market.View{HourlyData: r.hourly, DailyData: daily, LastUpdate: "2024-03-15 16:00:00"}, nil
}

func (r *stubReader) Status() tracker.Status {
	return tracker.Status{LastCycleID: "abc", HourlyCount: len(r.hourly), DailyCount: len(r.daily)}
}

func newTestServer(t *testing.T, reader Reader) http.Handler {
	t.Helper()
	return NewServer(config.ServerConfig{Mode: gin.TestMode}, reader, nil, zaptest.NewLogger(t)).Handler()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func sampleReader() *stubReader {
	r := &stubReader{
		hourly: []market.HourlyRecord{{Timestamp: "2024-03-15 10:00:03", Hour: "10:00", SHIndex: 3000.1, TotalVolume: 8500.2}},
	}
	for i := 1; i <= 40; i++ {
		r.daily = append(r.daily, market.DailyRecord{Date: fmt.Sprintf("2024-01-%02d", i%28+1), TotalVolume: float64(i)})
	}
	return r
}

// go test -v --run TestGetData
func TestGetData(t *testing.T) {
	reader := sampleReader()
	rec := get(t, newTestServer(t, reader), "/api/data")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"hourly_data", "daily_data", "last_update"} {
		if _, ok := body[key]; !ok {
			t.Errorf("missing key %q in %s", key, rec.Body)
		}
	}

	var view market.View
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if len(view.DailyData) != tracker.DefaultDailyDays {
		t.Errorf("daily entries = %d, want %d", len(view.DailyData), tracker.DefaultDailyDays)
	}
	if view.HourlyData[0].Hour != "10:00" {
		t.Errorf("hour = %q", view.HourlyData[0].Hour)
	}
}

func TestGetDailyDays(t *testing.T) {
	tests := []struct {
		query    string
		wantCode int
		wantLen  int
	}{
		{query: "", wantCode: http.StatusOK, wantLen: 30},
		{query: "?days=5", wantCode: http.StatusOK, wantLen: 5},
		{query: "?days=100", wantCode: http.StatusOK, wantLen: 40},
		{query: "?days=0", wantCode: http.StatusBadRequest},
		{query: "?days=-3", wantCode: http.StatusBadRequest},
		{query: "?days=abc", wantCode: http.StatusBadRequest},
	}

	h := newTestServer(t, sampleReader())
	for _, tt := range tests {
		rec := get(t, h, "/api/daily"+tt.query)
		if rec.Code != tt.wantCode {
			t.Errorf("%q: status = %d, want %d", tt.query, rec.Code, tt.wantCode)
			continue
		}
		if tt.wantCode != http.StatusOK {
			continue
		}
		var records []market.DailyRecord
		if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
			t.Fatalf("%q: decode: %v", tt.query, err)
		}
		if len(records) != tt.wantLen {
			t.Errorf("%q: len = %d, want %d", tt.query, len(records), tt.wantLen)
		}
	}
}

func TestGetHourly(t *testing.T) {
	rec := get(t, newTestServer(t, sampleReader()), "/api/hourly")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var records []market.HourlyRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].TotalVolume != 8500.2 {
		t.Errorf("records = %+v", records)
	}
}

func TestEmptyHourlyIsArray(t *testing.T) {
	rec := get(t, newTestServer(t, &stubReader{hourly: []market.HourlyRecord{}}), "/api/hourly")
	if got := rec.Body.String(); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestReadErrorIs500(t *testing.T) {
	reader := &stubReader{err: fmt.Errorf("%w: load daily: bad json", tracker.ErrPersistence)}
	h := newTestServer(t, reader)

	for _, path := range []string{"/api/data", "/api/daily", "/api/hourly"} {
		rec := get(t, h, path)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s: status = %d, want 500", path, rec.Code)
			continue
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if body["error_kind"] != "persistence" {
			t.Errorf("%s: error_kind = %q", path, body["error_kind"])
		}
	}
}

func TestStatusAndHealth(t *testing.T) {
	h := newTestServer(t, sampleReader())

	rec := get(t, h, "/health")
	if rec.Code != http.StatusOK {
		t.Errorf("/health status = %d", rec.Code)
	}

	rec = get(t, h, "/api/status")
	var st tracker.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.LastCycleID != "abc" || st.DailyCount != 40 {
		t.Errorf("status = %+v", st)
	}
}

func TestCORSPreflight(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/data", nil)
	newTestServer(t, sampleReader()).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q", got)
	}
}
