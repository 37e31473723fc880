package models

import (
	"fmt"
	"time"
)

// LocalTrack is a track resolved from a local M3U entry. Immutable once parsed.
type LocalTrack struct {
	Artist     string
	Title      string
	Album      string
	Year       string
	SourcePath string
}

// NewLocalTrack validates and constructs a LocalTrack.
// Artist and title are required; album and year may be empty.
func NewLocalTrack(artist, title, album, year, sourcePath string) (LocalTrack, error) {
	if artist == "" || title == "" {
		return LocalTrack{}, fmt.Errorf("local track requires artist and title (path %q)", sourcePath)
	}
	return LocalTrack{
		Artist:     artist,
		Title:      title,
		Album:      album,
		Year:       year,
		SourcePath: sourcePath,
	}, nil
}

// RemoteTrack is a read-only mirror of a track owned by the remote service.
type RemoteTrack struct {
	ID     string `json:"id"`
	Artist string `json:"artist"`
	Title  string `json:"title"`
	Album  string `json:"album"`
}

// NewRemoteTrack validates and constructs a RemoteTrack.
// The opaque service-assigned id and a title are required.
func NewRemoteTrack(id, artist, title, album string) (RemoteTrack, error) {
	if id == "" {
		return RemoteTrack{}, fmt.Errorf("remote track requires a service id (title %q)", title)
	}
	if title == "" {
		return RemoteTrack{}, fmt.Errorf("remote track %s requires a title", id)
	}
	return RemoteTrack{ID: id, Artist: artist, Title: title, Album: album}, nil
}

// Playlist represents a remote playlist handle.
type Playlist struct {
	ID         string
	Name       string
	TrackCount int
}

// PlaylistSyncState is the persisted per-playlist sync record, keyed by
// playlist name in the state store. Updated only after a successful sync.
type PlaylistSyncState struct {
	ContentHash      string    `json:"content_hash"`
	RemotePlaylistID string    `json:"remote_playlist_id"`
	LastSync         time.Time `json:"last_sync"`
	MatchedCount     int       `json:"matched_count"`
	TotalCount       int       `json:"total_count"`
}

// SyncResult accounts for every local track of one playlist sync.
type SyncResult struct {
	Playlist      string
	PlaylistID    string
	Total         int          // Local tracks seen in the M3U
	Matched       int          // Tracks resolved to a remote id
	Added         int          // Ids added to the remote playlist
	Removed       int          // Ids removed from the remote playlist
	FailedBatches int          // Batch calls that failed and were skipped
	Unmatched     []LocalTrack // Tracks with no remote match, in playlist order
	Skipped       bool         // Content hash unchanged, sync short-circuited
}

// UnmatchedCount returns the number of local tracks without a remote match.
func (r *SyncResult) UnmatchedCount() int {
	return len(r.Unmatched)
}

// Success reports whether the sync should be recorded: at least one track
// matched, or the playlist was intentionally emptied.
func (r *SyncResult) Success() bool {
	return r.Matched > 0 || r.Total == 0
}

// Song is a row of the optional local SQLite catalog. When present, its
// metadata takes precedence over M3U-derived values.
type Song struct {
	ID        string
	Path      string
	Artist    string
	Title     string
	Album     string
	Year      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks required catalog fields before persistence.
func (s *Song) Validate() error {
	if s.Path == "" {
		return fmt.Errorf("song requires a source path")
	}
	if s.Artist == "" || s.Title == "" {
		return fmt.Errorf("song %s requires artist and title", s.Path)
	}
	return nil
}
