package nws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmorrow/weathercache/internal/forecast"
)

var testLocation = forecast.Location{Name: "home", Lat: 35.48, Lon: -82.99}

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.Client(), srv.URL, "weathercache-test/1.0"), srv
}

func TestResolveGrid(t *testing.T) {
	var gotUA, gotPath string
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotPath = r.URL.Path
		w.Write([]byte(`{"properties":{"gridId":"GSP","gridX":40,"gridY":68,"forecast":"https://example/forecast"}}`))
	})
	defer srv.Close()

	grid, err := client.ResolveGrid(context.Background(), testLocation)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := forecast.GridReference{Office: "GSP", GridX: 40, GridY: 68}
	if grid != want {
		t.Fatalf("expected %+v, got %+v", want, grid)
	}
	if gotPath != "/points/35.4800,-82.9900" {
		t.Fatalf("unexpected points path: %s", gotPath)
	}
	if gotUA != "weathercache-test/1.0" {
		t.Fatalf("user agent not sent: %q", gotUA)
	}
}

func TestResolveGridMissingFields(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"properties":{"forecast":"https://example/forecast"}}`))
	})
	defer srv.Close()

	_, err := client.ResolveGrid(context.Background(), testLocation)
	if !errors.Is(err, forecast.ErrUpstreamShape) {
		t.Fatalf("expected shape error, got %v", err)
	}
}

func TestServerErrorMapsToUnavailable(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()

	_, err := client.ResolveGrid(context.Background(), testLocation)
	if !errors.Is(err, forecast.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream unavailable, got %v", err)
	}
}

func TestNotFoundIsDistinguished(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer srv.Close()

	grid := forecast.GridReference{Office: "GSP", GridX: 40, GridY: 68}
	_, err := client.FetchForecast(context.Background(), grid)
	if !errors.Is(err, forecast.ErrUpstreamNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if errors.Is(err, forecast.ErrUpstreamUnavailable) {
		t.Fatal("not-found must not look transient")
	}
}

func TestFetchForecastPaths(t *testing.T) {
	paths := make(map[string]bool)
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		paths[r.URL.Path] = true
		w.Write([]byte(`{"properties":{"periods":[]}}`))
	})
	defer srv.Close()

	grid := forecast.GridReference{Office: "GSP", GridX: 40, GridY: 68}
	ctx := context.Background()

	if _, err := client.FetchForecast(ctx, grid); err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if _, err := client.FetchHourly(ctx, grid); err != nil {
		t.Fatalf("hourly: %v", err)
	}
	raw, err := client.FetchGridRaw(ctx, grid)
	if err != nil {
		t.Fatalf("grid raw: %v", err)
	}
	if !json.Valid(raw) {
		t.Fatal("grid raw payload is not valid JSON")
	}

	for _, want := range []string{
		"/gridpoints/GSP/40,68/forecast",
		"/gridpoints/GSP/40,68/forecast/hourly",
		"/gridpoints/GSP/40,68",
	} {
		if !paths[want] {
			t.Fatalf("expected request to %s, saw %v", want, paths)
		}
	}
}

func TestContextCancellation(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ResolveGrid(ctx, testLocation)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
