// Package models defines domain entities for the playlist sync pipeline.
//
// The package contains three categories of types:
//
// 1. Ephemeral records, recreated on every run:
//   - [LocalTrack] : Track metadata parsed from an M3U entry (tags, catalog, or filename)
//   - [RemoteTrack] : Read-only mirror of a track owned by the remote service
//   - [Playlist] : Basic remote playlist metadata
//
// 2. Persistent records:
//   - [PlaylistSyncState] : Per-playlist sync bookkeeping keyed by playlist name
//   - [Song] : Local catalog row supplying authoritative metadata for a source path
//
// 3. Run results:
//   - [SyncResult] : Matched/added/removed/unmatched accounting for one playlist sync
//
// Ephemeral records are constructed via validated factory functions that fail
// fast on missing required fields instead of silently defaulting.
package models
