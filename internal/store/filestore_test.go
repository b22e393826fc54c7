package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cmorrow/weathercache/internal/forecast"
)

func testRecord(name string) *forecast.CachedForecast {
	return &forecast.CachedForecast{
		LocationName: name,
		FetchedAt:    time.Now().UTC().Truncate(time.Second),
		Grid:         forecast.GridReference{Office: "GSP", GridX: 40, GridY: 68},
		Periods: []forecast.ForecastPeriod{
			{Name: "Tonight", Temperature: 65, TemperatureUnit: "F", ShortForecast: "Mostly Clear"},
		},
		Hourly: []forecast.HourlyEntry{
			{Temperature: 67, TemperatureUnit: "F"},
		},
		RawGrid: json.RawMessage(`{"properties":{"gridId":"GSP"}}`),
	}
}

func TestReadAbsent(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = s.Read("home")
	if !errors.Is(err, forecast.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := testRecord("home")
	if err := s.Write("home", want); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := s.Read("home")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got.LocationName != "home" || !got.FetchedAt.Equal(want.FetchedAt) {
		t.Fatalf("record mismatch: %+v", got)
	}
	if got.Grid != want.Grid {
		t.Fatalf("grid mismatch: %+v", got.Grid)
	}
	if len(got.Periods) != 1 || got.Periods[0].Name != "Tonight" {
		t.Fatalf("periods mismatch: %+v", got.Periods)
	}
	if len(got.RawGrid) == 0 {
		t.Fatal("raw grid metadata dropped")
	}
}

func TestWriteReplacesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := testRecord("home")
	if err := s.Write("home", first); err != nil {
		t.Fatalf("first write: %v", err)
	}

	second := testRecord("home")
	second.FetchedAt = first.FetchedAt.Add(time.Hour)
	second.Periods[0].Name = "Tuesday"
	if err := s.Write("home", second); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := s.Read("home")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got.Periods[0].Name != "Tuesday" {
		t.Fatalf("old record survived: %+v", got.Periods)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected exactly one file, got %v", names)
	}
}

func TestReadCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Simulates a record written without the atomic rename discipline.
	if err := os.WriteFile(filepath.Join(dir, "home_forecast.json"), []byte(`{"locationName":"home","periods":[{"na`), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, err = s.Read("home")
	if !errors.Is(err, forecast.ErrCacheIO) {
		t.Fatalf("expected ErrCacheIO for truncated record, got %v", err)
	}
}

func TestPathTraversalStaysInsideDataDir(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "cache")
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.Write("../escape", testRecord("escape")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := s.Read("../escape"); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	outside, err := os.ReadDir(parent)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(outside) != 1 || outside[0].Name() != "cache" {
		names := make([]string, 0, len(outside))
		for _, e := range outside {
			names = append(names, e.Name())
		}
		t.Fatalf("record escaped the data dir: %v", names)
	}
}

func TestIsStale(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !s.IsStale(nil, time.Hour) {
		t.Fatal("nil record must be stale")
	}

	fresh := testRecord("home")
	if s.IsStale(fresh, time.Hour) {
		t.Fatal("fresh record reported stale")
	}

	old := testRecord("home")
	old.FetchedAt = time.Now().UTC().Add(-2 * time.Hour)
	if !s.IsStale(old, time.Hour) {
		t.Fatal("old record reported fresh")
	}
}
