package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/avdunn/tunesync/internal/index"
	"github.com/avdunn/tunesync/internal/match"
	"github.com/avdunn/tunesync/internal/models"
	"github.com/avdunn/tunesync/internal/playlist"
	"github.com/avdunn/tunesync/internal/services"
	"github.com/avdunn/tunesync/internal/shared"
	"github.com/avdunn/tunesync/internal/store"
	"github.com/charmbracelet/log"
)

// SyncEngine defines the playlist sync operations exposed to the CLI.
type SyncEngine interface {
	// SyncPlaylist reconciles the M3U file at path with its remote
	// counterpart, creating the remote playlist when absent.
	SyncPlaylist(ctx context.Context, path string, progress chan<- ProgressUpdate) (*models.SyncResult, error)
}

// IndexSource supplies the library index for a run. Implementations decide
// whether to serve a cached snapshot or rebuild from the service.
type IndexSource interface {
	Ensure(ctx context.Context) (*index.Index, error)
}

// Options tune a sync run.
type Options struct {
	BatchSize int  // Max ids per add/remove request; defaults to 100
	Threshold int  // Match acceptance score; 0 selects the matcher default
	Force     bool // Re-sync even when the playlist content hash is unchanged
}

// Engine implements SyncEngine against a single remote service.
type Engine struct {
	svc      services.Service
	resolver *playlist.Resolver
	indexes  IndexSource
	state    *store.Store
	logger   *log.Logger
	opts     Options
}

// NewEngine creates an Engine. state may be nil to disable hash
// short-circuiting and state persistence.
func NewEngine(svc services.Service, resolver *playlist.Resolver, indexes IndexSource, state *store.Store, logger *log.Logger, opts Options) *Engine {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	return &Engine{
		svc:      svc,
		resolver: resolver,
		indexes:  indexes,
		state:    state,
		logger:   logger,
		opts:     opts,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// SyncPlaylist runs the full pipeline for one playlist file.
func (e *Engine) SyncPlaylist(ctx context.Context, path string, progress chan<- ProgressUpdate) (*models.SyncResult, error) {
	if e.svc == nil {
		return nil, fmt.Errorf("%w: remote service not initialized", shared.ErrServiceUnavailable)
	}

	pl, err := playlist.Load(path)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, loadPlaylistUpdate(pl, pl.Name, len(pl.Entries)))

	result := &models.SyncResult{Playlist: pl.Name, Total: len(pl.Entries)}

	if !e.opts.Force && e.state != nil {
		if prev, ok := e.state.Get(pl.Name); ok && prev.ContentHash == pl.Hash {
			e.logger.Info("playlist unchanged, skipping", "playlist", pl.Name, "last_sync", prev.LastSync)
			result.PlaylistID = prev.RemotePlaylistID
			result.Matched = prev.MatchedCount
			result.Skipped = true
			return result, nil
		}
	}

	locals := e.resolveEntries(pl, result, progress)

	idx, err := e.indexes.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	desired, err := e.matchTracks(ctx, idx, locals, result, progress)
	if err != nil {
		return nil, err
	}

	remote, err := e.ensurePlaylist(ctx, pl.Name, progress)
	if err != nil {
		return result, err
	}
	result.PlaylistID = remote.ID

	if err := e.applyDiff(ctx, remote.ID, desired, result, progress); err != nil {
		return result, err
	}

	e.saveState(pl, result, progress)
	return result, nil
}

// resolveEntries turns playlist entries into local tracks. Unresolvable
// entries are counted as unmatched and skipped.
func (e *Engine) resolveEntries(pl *playlist.Playlist, result *models.SyncResult, progress chan<- ProgressUpdate) []models.LocalTrack {
	locals := make([]models.LocalTrack, 0, len(pl.Entries))

	for i, entry := range pl.Entries {
		e.sendProgress(progress, resolveTrackUpdate(i+1, len(pl.Entries), entry))

		track, err := e.resolver.Resolve(entry)
		if err != nil {
			e.logger.Warn("skipping unresolvable entry", "entry", entry, "error", err)
			result.Unmatched = append(result.Unmatched, models.LocalTrack{SourcePath: entry})
			continue
		}
		locals = append(locals, track)
	}

	return locals
}

// matchTracks resolves every local track to a remote id. Per-track match
// failures are recorded and skipped; only context cancellation aborts.
func (e *Engine) matchTracks(ctx context.Context, idx *index.Index, locals []models.LocalTrack, result *models.SyncResult, progress chan<- ProgressUpdate) ([]string, error) {
	matcher := match.NewMatcher(idx, e.svc, e.opts.Threshold, e.logger)

	var desired []string
	seen := make(map[string]bool)

	for i, local := range locals {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.sendProgress(progress, matchTrackUpdate(i+1, len(locals), local))

		m, err := matcher.Find(ctx, local)
		if err != nil {
			e.logger.Warn("match failed", "artist", local.Artist, "title", local.Title, "error", err)
			result.Unmatched = append(result.Unmatched, local)
			continue
		}
		if m.Remote == nil {
			e.logger.Debug("no match", "artist", local.Artist, "title", local.Title)
			result.Unmatched = append(result.Unmatched, local)
			continue
		}

		result.Matched++
		if !seen[m.Remote.ID] {
			seen[m.Remote.ID] = true
			desired = append(desired, m.Remote.ID)
		}
	}

	return desired, nil
}

// ensurePlaylist finds the remote playlist by name or creates it.
func (e *Engine) ensurePlaylist(ctx context.Context, name string, progress chan<- ProgressUpdate) (*models.Playlist, error) {
	remote, err := e.svc.PlaylistByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to look up playlist %q: %w", shared.ErrAPIRequest, name, err)
	}
	if remote != nil {
		return remote, nil
	}

	remote, err = e.svc.CreatePlaylist(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create playlist %q: %w", shared.ErrAPIRequest, name, err)
	}

	e.logger.Info("created remote playlist", "playlist", name, "id", remote.ID)
	e.sendProgress(progress, createPlaylistUpdate(remote))
	return remote, nil
}

// applyDiff reconciles the remote playlist's current track ids with the
// desired set. Batches that fail are counted and skipped so one bad request
// cannot discard the rest of the run.
func (e *Engine) applyDiff(ctx context.Context, playlistID string, desired []string, result *models.SyncResult, progress chan<- ProgressUpdate) error {
	current, err := e.svc.PlaylistTrackIDs(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("%w: failed to fetch playlist tracks: %w", shared.ErrAPIRequest, err)
	}

	toAdd, toRemove := diffIDs(current, desired)
	if len(toAdd) == 0 && len(toRemove) == 0 {
		e.logger.Info("remote playlist already in sync", "playlist_id", playlistID)
		return nil
	}

	addBatches := chunk(toAdd, e.opts.BatchSize)
	removeBatches := chunk(toRemove, e.opts.BatchSize)
	totalBatches := len(addBatches) + len(removeBatches)
	step := 0

	for _, batch := range addBatches {
		step++
		e.sendProgress(progress, applyBatchUpdate(step, totalBatches, "Adding", len(batch)))

		if err := e.svc.AddTracks(ctx, playlistID, batch); err != nil {
			e.logger.Error("add batch failed", "playlist_id", playlistID, "size", len(batch), "error", err)
			result.FailedBatches++
			continue
		}
		result.Added += len(batch)
	}

	for _, batch := range removeBatches {
		step++
		e.sendProgress(progress, applyBatchUpdate(step, totalBatches, "Removing", len(batch)))

		if err := e.svc.RemoveTracks(ctx, playlistID, batch); err != nil {
			e.logger.Error("remove batch failed", "playlist_id", playlistID, "size", len(batch), "error", err)
			result.FailedBatches++
			continue
		}
		result.Removed += len(batch)
	}

	return nil
}

// saveState records the run outcome. A run with failed batches does not
// update the content hash, so the next run retries the reconciliation.
func (e *Engine) saveState(pl *playlist.Playlist, result *models.SyncResult, progress chan<- ProgressUpdate) {
	if e.state == nil || result.FailedBatches > 0 || !result.Success() {
		return
	}

	st := models.PlaylistSyncState{
		ContentHash:      pl.Hash,
		RemotePlaylistID: result.PlaylistID,
		LastSync:         time.Now().UTC(),
		MatchedCount:     result.Matched,
		TotalCount:       result.Total,
	}
	if err := e.state.Put(pl.Name, st); err != nil {
		e.logger.Error("failed to save sync state", "playlist", pl.Name, "error", err)
		return
	}
	e.sendProgress(progress, saveStateUpdate(pl.Name))
}

// diffIDs computes the adds and removes that turn current into desired.
// Adds preserve desired order; removes preserve current order.
func diffIDs(current, desired []string) (toAdd, toRemove []string) {
	currentSet := make(map[string]bool, len(current))
	for _, id := range current {
		currentSet[id] = true
	}
	desiredSet := make(map[string]bool, len(desired))
	for _, id := range desired {
		desiredSet[id] = true
	}

	for _, id := range desired {
		if !currentSet[id] {
			toAdd = append(toAdd, id)
		}
	}
	for _, id := range current {
		if !desiredSet[id] {
			toRemove = append(toRemove, id)
		}
	}
	return toAdd, toRemove
}

// chunk splits ids into batches of at most size.
func chunk(ids []string, size int) [][]string {
	var batches [][]string
	for len(ids) > 0 {
		n := size
		if len(ids) < n {
			n = len(ids)
		}
		batches = append(batches, ids[:n])
		ids = ids[n:]
	}
	return batches
}
