// Package nws is a client for the National Weather Service API
// (api.weather.gov). Fetching a forecast is a two-step protocol: a points
// lookup maps coordinates to a forecast office grid cell, and the grid cell
// addresses the forecast, hourly and raw gridpoint resources.
package nws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/cmorrow/weathercache/internal/forecast"
)

const DefaultBaseURL = "https://api.weather.gov"

// Client fetches raw payloads from the NWS API. Each call makes exactly one
// attempt; retry policy belongs to the caller. The circuit breaker only
// short-circuits calls while the upstream is failing.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
}

// NewClient creates a Client. baseURL falls back to the public API host.
func NewClient(httpClient *http.Client, baseURL, userAgent string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "nws",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: httpClient,
		circuit:    cb,
	}
}

// ResolveGrid maps a location's coordinates to its grid reference via the
// points resource.
func (c *Client) ResolveGrid(ctx context.Context, loc forecast.Location) (forecast.GridReference, error) {
	u := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, loc.Lat, loc.Lon)

	body, err := c.get(ctx, u)
	if err != nil {
		return forecast.GridReference{}, err
	}

	var payload struct {
		Properties struct {
			GridID string `json:"gridId"`
			GridX  *int   `json:"gridX"`
			GridY  *int   `json:"gridY"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return forecast.GridReference{}, fmt.Errorf("%w: points response: %v", forecast.ErrUpstreamShape, err)
	}
	if payload.Properties.GridID == "" || payload.Properties.GridX == nil || payload.Properties.GridY == nil {
		return forecast.GridReference{}, fmt.Errorf("%w: points response missing gridId/gridX/gridY", forecast.ErrUpstreamShape)
	}

	return forecast.GridReference{
		Office: payload.Properties.GridID,
		GridX:  *payload.Properties.GridX,
		GridY:  *payload.Properties.GridY,
	}, nil
}

// FetchForecast returns the raw 12-hour forecast document for a grid cell.
func (c *Client) FetchForecast(ctx context.Context, grid forecast.GridReference) (json.RawMessage, error) {
	return c.get(ctx, c.gridURL(grid)+"/forecast")
}

// FetchHourly returns the raw hourly forecast document for a grid cell.
func (c *Client) FetchHourly(ctx context.Context, grid forecast.GridReference) (json.RawMessage, error) {
	return c.get(ctx, c.gridURL(grid)+"/forecast/hourly")
}

// FetchGridRaw returns the raw gridpoint document (numeric data layers).
// Kept opaque; it is cached alongside the forecast for downstream consumers.
func (c *Client) FetchGridRaw(ctx context.Context, grid forecast.GridReference) (json.RawMessage, error) {
	return c.get(ctx, c.gridURL(grid))
}

func (c *Client) gridURL(grid forecast.GridReference) string {
	return fmt.Sprintf("%s/gridpoints/%s/%d,%d", c.baseURL, grid.Office, grid.GridX, grid.GridY)
}

// get performs a single GET through the circuit breaker and maps the failure
// taxonomy: 404 -> ErrUpstreamNotFound, other non-2xx and transport errors ->
// ErrUpstreamUnavailable.
func (c *Client) get(ctx context.Context, url string) (json.RawMessage, error) {
	result, err := c.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/geo+json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", forecast.ErrUpstreamUnavailable, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", forecast.ErrUpstreamNotFound, url)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: status %d from %s", forecast.ErrUpstreamUnavailable, resp.StatusCode, url)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: reading body: %v", forecast.ErrUpstreamUnavailable, err)
		}
		return json.RawMessage(body), nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open: %v", forecast.ErrUpstreamUnavailable, err)
		}
		return nil, err
	}

	body, ok := result.(json.RawMessage)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return body, nil
}
