package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/avdunn/tunesync/internal/models"
)

// CacheEntry wraps a cached value with the time it was built so staleness
// can be judged against a TTL.
type CacheEntry[T any] struct {
	Value   T         `json:"value"`
	BuiltAt time.Time `json:"built_at"`
}

// IsStale reports whether the entry is older than ttl.
func (e CacheEntry[T]) IsStale(ttl time.Duration) bool {
	return time.Since(e.BuiltAt) > ttl
}

// snapshot is the on-disk form of an index. Only the track list is
// persisted; keys are rebuilt on load so the key derivation used for
// lookups always matches the one used for indexing.
type snapshot struct {
	Service string               `json:"service"`
	Tracks  []models.RemoteTrack `json:"tracks"`
}

// Save writes the index to path as a JSON snapshot. Save should only be
// called after a complete library traversal; a partial index written to
// disk would silently shrink match coverage on later runs.
func Save(idx *Index, service, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	entry := CacheEntry[snapshot]{
		Value:   snapshot{Service: service, Tracks: idx.Tracks()},
		BuiltAt: time.Now().UTC(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode index snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write index snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load reads a snapshot from path and rebuilds the key map. It returns the
// entry's build time so callers can apply their TTL. A missing file is
// reported via fs.ErrNotExist; a snapshot built for a different service is
// treated the same way, since its ids are meaningless here.
func Load(path, service string) (*Index, time.Time, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, err
	}

	var entry CacheEntry[snapshot]
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to decode index snapshot: %w", err)
	}

	if entry.Value.Service != service {
		return nil, time.Time{}, fmt.Errorf("%w: snapshot built for service %q", fs.ErrNotExist, entry.Value.Service)
	}

	idx := New()
	for _, track := range entry.Value.Tracks {
		idx.Add(track)
	}
	return idx, entry.BuiltAt, nil
}

// IsNotExist reports whether err means no usable snapshot exists at the
// cache path.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
