package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry resolves configured location names. Implemented by the registry
// package.
type Registry interface {
	Resolve(name string) (Location, error)
	Names() []string
	Default() string
}

// Client fetches raw payloads from the upstream forecast API. Implementations
// make exactly one attempt per call; retry policy lives in the Service.
type Client interface {
	ResolveGrid(ctx context.Context, loc Location) (GridReference, error)
	FetchForecast(ctx context.Context, grid GridReference) (json.RawMessage, error)
	FetchHourly(ctx context.Context, grid GridReference) (json.RawMessage, error)
	FetchGridRaw(ctx context.Context, grid GridReference) (json.RawMessage, error)
}

// Store is the contract the cache store must satisfy.
type Store interface {
	Read(name string) (*CachedForecast, error)
	Write(name string, rec *CachedForecast) error
	IsStale(rec *CachedForecast, maxAge time.Duration) bool
}

// BackoffConfig controls the retry policy applied to transient upstream
// failures during a refresh.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var defaultBackoff = BackoffConfig{
	MaxRetries:      3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

// Service coordinates the registry, upstream client and cache store. Each
// Get/Refresh call is self-contained; concurrent calls for different
// locations need no coordination because records are written independently.
type Service struct {
	registry Registry
	client   Client
	store    Store
	backoff  BackoffConfig
}

// NewService creates a Service with the default retry policy.
func NewService(reg Registry, client Client, store Store) *Service {
	return &Service{
		registry: reg,
		client:   client,
		store:    store,
		backoff:  defaultBackoff,
	}
}

// Get returns the cached record for a location, refreshing it first when it
// is absent or older than maxAge. If the refresh fails but a prior record
// exists, the stale record is returned: staleness is preferable to
// unavailability on the read path.
func (s *Service) Get(ctx context.Context, name string, maxAge time.Duration) (*CachedForecast, error) {
	rec, err := s.store.Read(name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		// Unreadable cache is treated as absent; the refresh below rewrites it.
		log.Printf("cache read failed for %s, refreshing: %v", name, err)
		rec = nil
	}

	if rec != nil && !s.store.IsStale(rec, maxAge) {
		return rec, nil
	}

	fresh, err := s.Refresh(ctx, name)
	if err != nil {
		if rec != nil {
			log.Printf("refresh failed for %s, serving stale record: %v", name, err)
			return rec, nil
		}
		return nil, err
	}
	return fresh, nil
}

// Refresh fetches, validates and atomically replaces the cached record for a
// location. A failed fetch or validation never touches an existing record.
func (s *Service) Refresh(ctx context.Context, name string) (*CachedForecast, error) {
	loc, err := s.registry.Resolve(name)
	if err != nil {
		return nil, err
	}

	// Reuse the grid reference from the prior record when present; grid
	// mappings are stable enough that re-resolving every refresh is wasted
	// traffic.
	var grid GridReference
	reusedGrid := false
	if prior, err := s.store.Read(name); err == nil && prior.Grid.Valid() {
		grid = prior.Grid
		reusedGrid = true
	}

	if !reusedGrid {
		grid, err = s.resolveGrid(ctx, loc)
		if err != nil {
			return nil, err
		}
	}

	rawForecast, err := s.fetch(ctx, s.client.FetchForecast, grid)
	if errors.Is(err, ErrUpstreamNotFound) && reusedGrid {
		// The cached grid mapping has shifted; re-resolve once and retry.
		log.Printf("grid %s/%d,%d no longer valid for %s, re-resolving", grid.Office, grid.GridX, grid.GridY, name)
		grid, err = s.resolveGrid(ctx, loc)
		if err != nil {
			return nil, err
		}
		rawForecast, err = s.fetch(ctx, s.client.FetchForecast, grid)
	}
	if err != nil {
		return nil, err
	}

	rawHourly, err := s.fetch(ctx, s.client.FetchHourly, grid)
	if err != nil {
		return nil, err
	}

	rawGrid, err := s.fetch(ctx, s.client.FetchGridRaw, grid)
	if err != nil {
		return nil, err
	}

	periods, hourly, err := Normalize(rawForecast, rawHourly)
	if err != nil {
		return nil, err
	}

	rec := &CachedForecast{
		LocationName: name,
		FetchedAt:    time.Now().UTC(),
		Grid:         grid,
		Periods:      periods,
		Hourly:       hourly,
		RawGrid:      rawGrid,
	}

	if err := s.store.Write(name, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// RefreshResult is the outcome of refreshing a single location.
type RefreshResult struct {
	Location string
	Err      error
}

// RefreshAll refreshes every registered location concurrently. One location's
// failure never aborts the others; partial success is a normal outcome.
// Results are ordered by location name.
func (s *Service) RefreshAll(ctx context.Context) []RefreshResult {
	names := s.registry.Names()
	jobID := uuid.NewString()
	log.Printf("refresh job %s: refreshing %d locations", jobID, len(names))

	results := make([]RefreshResult, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		i, name := i, name
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.Refresh(ctx, name)
			if err != nil {
				log.Printf("refresh job %s: %s failed: %v", jobID, name, err)
			}
			results[i] = RefreshResult{Location: name, Err: err}
		}()
	}
	wg.Wait()

	log.Printf("refresh job %s: done", jobID)
	return results
}

// DefaultLocation exposes the registry's default location name for the
// unkeyed compatibility endpoints.
func (s *Service) DefaultLocation() string {
	return s.registry.Default()
}

// Locations exposes the registered location names.
func (s *Service) Locations() []string {
	return s.registry.Names()
}

func (s *Service) resolveGrid(ctx context.Context, loc Location) (GridReference, error) {
	var grid GridReference
	err := s.retry(ctx, func() error {
		var err error
		grid, err = s.client.ResolveGrid(ctx, loc)
		return err
	})
	return grid, err
}

func (s *Service) fetch(ctx context.Context, op func(context.Context, GridReference) (json.RawMessage, error), grid GridReference) (json.RawMessage, error) {
	var raw json.RawMessage
	err := s.retry(ctx, func() error {
		var err error
		raw, err = op(ctx, grid)
		return err
	})
	return raw, err
}

// retry runs attempt with exponential backoff. Only transient upstream
// failures are retried; not-found, shape and validation errors propagate
// immediately.
func (s *Service) retry(ctx context.Context, attempt func() error) error {
	var lastErr error
	for i := 0; ; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := attempt()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrUpstreamUnavailable) {
			return err
		}

		lastErr = err
		if i >= s.backoff.MaxRetries {
			return lastErr
		}

		delay := s.backoff.InitialInterval * time.Duration(math.Pow(2, float64(i)))
		if s.backoff.MaxInterval > 0 && delay > s.backoff.MaxInterval {
			delay = s.backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
