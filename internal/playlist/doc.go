// Package playlist reads local M3U playlists and resolves their entries to
// track metadata.
//
// An M3U file is an ordered list of media file paths, one per non-comment
// line. Each entry is resolved to (artist, title, album) through a precedence
// chain: the optional local catalog, embedded ID3v2 tags, then an
// "Artist - Title" filename pattern. Entries that resolve through none of the
// three are reported as unparseable and counted, never silently dropped.
//
// [ContentHash] digests the raw playlist bytes so unchanged playlists can be
// skipped on subsequent runs.
package playlist
