// Package tasks implements the playlist sync pipeline.
//
// The core type is Engine, which drives one playlist through the full
// pipeline: load the M3U file, short-circuit on an unchanged content hash,
// resolve entries to track metadata, match them against the remote library
// index, then reconcile the remote playlist with batched adds and removes.
// Operations emit progress updates via channels for non-blocking status
// reporting to the CLI layer.
//
// Failure handling follows a per-item / per-run split: a single entry that
// cannot be resolved or matched is recorded and skipped, and a single batch
// that fails to apply is counted and skipped, while errors that invalidate
// the whole run (playlist unreadable, playlist creation failed) abort it.
package tasks
