package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cmorrow/weathercache/internal/forecast"
)

// FileStore persists one JSON record per location under a data directory.
// Writes go to a temporary file in the same directory and are renamed into
// place, so a concurrent reader sees either the old complete record or the
// new one, never a mixture.
type FileStore struct {
	dir string
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating data dir %s: %v", forecast.ErrCacheIO, dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Read returns the record for a location, or forecast.ErrNotFound when no
// record exists yet.
func (s *FileStore) Read(name string) (*forecast.CachedForecast, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, forecast.ErrNotFound
		}
		return nil, fmt.Errorf("%w: reading %s: %v", forecast.ErrCacheIO, name, err)
	}

	var rec forecast.CachedForecast
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", forecast.ErrCacheIO, name, err)
	}
	return &rec, nil
}

// Write replaces the record for a location atomically.
func (s *FileStore) Write(name string, rec *forecast.CachedForecast) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %v", forecast.ErrCacheIO, name, err)
	}

	tmp, err := os.CreateTemp(s.dir, s.fileKey(name)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file for %s: %v", forecast.ErrCacheIO, name, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: writing %s: %v", forecast.ErrCacheIO, name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: closing %s: %v", forecast.ErrCacheIO, name, err)
	}

	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: renaming %s: %v", forecast.ErrCacheIO, name, err)
	}
	return nil
}

// IsStale reports whether a record's age exceeds maxAge. A nil record is
// always stale.
func (s *FileStore) IsStale(rec *forecast.CachedForecast, maxAge time.Duration) bool {
	if rec == nil {
		return true
	}
	return time.Since(rec.FetchedAt) > maxAge
}

// fileKey derives the on-disk file name from the location key. Base strips
// any path components so a hostile key cannot escape the data dir.
func (s *FileStore) fileKey(name string) string {
	return filepath.Base(name) + "_forecast.json"
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, s.fileKey(name))
}
