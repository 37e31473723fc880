package playlist

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/avdunn/tunesync/internal/models"
	"github.com/bogem/id3v2/v2"
)

// CatalogLookup supplies authoritative metadata for a source path from the
// optional local song catalog. Returns nil when the path is not catalogued.
type CatalogLookup interface {
	SongByPath(path string) (*models.Song, error)
}

// Resolver turns M3U entries into LocalTracks.
type Resolver struct {
	catalog CatalogLookup // may be nil
}

// NewResolver creates a Resolver. catalog may be nil when no local catalog is
// configured.
func NewResolver(catalog CatalogLookup) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve resolves one playlist entry to a LocalTrack.
//
// Precedence: catalog row, embedded ID3v2 tags, filename pattern. Returns an
// error only when every strategy fails; the caller counts such entries as
// unmatched and continues.
func (r *Resolver) Resolve(path string) (models.LocalTrack, error) {
	if r.catalog != nil {
		if song, err := r.catalog.SongByPath(path); err == nil && song != nil {
			if track, err := models.NewLocalTrack(song.Artist, song.Title, song.Album, song.Year, path); err == nil {
				return track, nil
			}
		}
	}

	if track, err := resolveTags(path); err == nil {
		return track, nil
	}

	if track, err := resolveFilename(path); err == nil {
		return track, nil
	}

	return models.LocalTrack{}, fmt.Errorf("unparseable track entry: %s", path)
}

// resolveTags reads embedded ID3v2 tags from the audio file.
func resolveTags(path string) (models.LocalTrack, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return models.LocalTrack{}, fmt.Errorf("failed to read tags: %w", err)
	}
	defer tag.Close()

	year := tag.Year()
	return models.NewLocalTrack(tag.Artist(), tag.Title(), tag.Album(), year, path)
}

// resolveFilename falls back to the "Artist - Title" file name convention
// when tags are unavailable.
func resolveFilename(path string) (models.LocalTrack, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	parts := strings.SplitN(base, " - ", 2)
	if len(parts) != 2 {
		return models.LocalTrack{}, fmt.Errorf("filename %q does not match 'Artist - Title'", base)
	}

	artist := strings.TrimSpace(parts[0])
	title := strings.TrimSpace(parts[1])
	return models.NewLocalTrack(artist, title, "", "", path)
}
