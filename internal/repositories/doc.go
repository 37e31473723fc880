// Package repositories provides the persistence layer for the local song
// catalog.
//
// The catalog is an optional SQLite database mapping media file paths to
// authoritative tag metadata. When configured, catalog rows take precedence
// over embedded tags and filename heuristics during playlist resolution.
package repositories
