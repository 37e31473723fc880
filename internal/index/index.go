// Package index builds and caches the lookup index over a remote service's
// track library. The index maps normalized track keys to candidate tracks so
// the matcher can resolve most playlist entries without network round trips.
package index

import (
	"context"
	"fmt"

	"github.com/avdunn/tunesync/internal/models"
	"github.com/avdunn/tunesync/internal/services"
	"github.com/avdunn/tunesync/internal/shared"
	"github.com/charmbracelet/log"
)

// Index maps normalized keys to remote track candidates. Candidates under a
// key preserve library insertion order, which makes tie-breaking
// deterministic across runs.
type Index struct {
	keys   map[string][]models.RemoteTrack
	tracks []models.RemoteTrack
}

// New returns an empty index.
func New() *Index {
	return &Index{keys: make(map[string][]models.RemoteTrack)}
}

// Add registers a remote track under every key its metadata produces.
// Tracks without an id or title produce no usable keys and are dropped.
func (idx *Index) Add(track models.RemoteTrack) {
	if track.ID == "" || track.Title == "" {
		return
	}

	keys := shared.TrackKeys(track.Artist, track.Title, track.Album)
	if len(keys) == 0 {
		return
	}

	idx.tracks = append(idx.tracks, track)
	for _, key := range keys {
		idx.keys[key] = append(idx.keys[key], track)
	}
}

// Lookup returns the candidates registered under key, in insertion order.
func (idx *Index) Lookup(key string) []models.RemoteTrack {
	return idx.keys[key]
}

// Size reports the number of indexed tracks.
func (idx *Index) Size() int {
	return len(idx.tracks)
}

// Tracks returns the indexed tracks in library order. The slice is shared
// with the index and must not be mutated.
func (idx *Index) Tracks() []models.RemoteTrack {
	return idx.tracks
}

// Build traverses the service's full library and indexes every track. When
// traversal fails partway the partially built index is returned alongside
// the error so callers can decide whether stale-but-larger cached data is
// preferable.
func Build(ctx context.Context, svc services.Service, logger *log.Logger) (*Index, error) {
	idx := New()

	logger.Info("building library index", "service", svc.Name())

	err := svc.LibraryTracks(ctx, func(track models.RemoteTrack) error {
		idx.Add(track)
		if idx.Size()%500 == 0 {
			logger.Debug("indexing library", "tracks", idx.Size())
		}
		return nil
	})
	if err != nil {
		return idx, fmt.Errorf("%w: %v", shared.ErrIndexBuild, err)
	}

	logger.Info("library index built", "tracks", idx.Size(), "keys", len(idx.keys))
	return idx, nil
}
