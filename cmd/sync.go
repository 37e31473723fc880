package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/avdunn/tunesync/internal/formatter"
	"github.com/avdunn/tunesync/internal/index"
	"github.com/avdunn/tunesync/internal/models"
	"github.com/avdunn/tunesync/internal/playlist"
	"github.com/avdunn/tunesync/internal/repositories"
	"github.com/avdunn/tunesync/internal/services"
	"github.com/avdunn/tunesync/internal/shared"
	"github.com/avdunn/tunesync/internal/tasks"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

// cachedIndexSource serves the library index from the snapshot cache,
// rebuilding from the service when the snapshot is missing, stale, or a
// rebuild is forced.
type cachedIndexSource struct {
	svc     services.Service
	logger  *log.Logger
	config  *shared.Config
	rebuild bool
}

func (r *Runner) indexSource(svc services.Service, rebuild bool) tasks.IndexSource {
	return &cachedIndexSource{svc: svc, logger: r.logger, config: r.config, rebuild: rebuild}
}

func (s *cachedIndexSource) Ensure(ctx context.Context) (*index.Index, error) {
	path, err := s.config.IndexCachePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve index cache path: %w", err)
	}

	if !s.rebuild && !s.config.Cache.ForceRebuild {
		idx, builtAt, loadErr := index.Load(path, s.svc.Name())
		if loadErr == nil {
			if time.Since(builtAt) <= s.config.IndexTTL() {
				s.logger.Debug("using cached library index", "tracks", idx.Size(), "built_at", builtAt)
				return idx, nil
			}
			s.logger.Info("cached index is stale, rebuilding", "built_at", builtAt)
		} else if !index.IsNotExist(loadErr) {
			s.logger.Warn("unreadable index snapshot, rebuilding", "error", loadErr)
		}
	}

	idx, err := index.Build(ctx, s.svc, s.logger)
	if err != nil {
		return nil, err
	}

	if err := index.Save(idx, s.svc.Name(), path); err != nil {
		// A failed snapshot write costs a rebuild next run, nothing more
		s.logger.Warn("failed to write index snapshot", "error", err)
	}
	return idx, nil
}

// SyncRun syncs one M3U playlist file to the remote service.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd); err != nil {
		return err
	}

	svc, err := r.remoteService(ctx)
	if err != nil {
		return err
	}

	state, err := r.stateStore()
	if err != nil {
		return err
	}

	resolver, cleanup, err := r.resolver()
	if err != nil {
		return err
	}
	defer cleanup()

	engine := tasks.NewEngine(svc, resolver, r.indexSource(svc, cmd.Bool("rebuild-index")), state, r.logger, tasks.Options{
		BatchSize: r.config.BatchSize(),
		Threshold: r.config.Sync.MatchThreshold,
		Force:     cmd.Bool("force"),
	})

	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Debug(update.Message, "phase", update.Phase.String())
		}
	}()

	result, err := engine.SyncPlaylist(ctx, cmd.String("playlist"), progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	return r.writeReport(result, cmd.String("report"))
}

func (r *Runner) writeReport(result *models.SyncResult, format string) error {
	var data []byte
	var err error

	switch format {
	case "", "text":
		data, err = formatter.ReportToText(result)
	case "markdown", "md":
		data, err = formatter.ReportToMarkdown(result)
	case "csv":
		data, err = formatter.ReportToCSV(result)
	case "json":
		data, err = formatter.ToResultJSON(result)
	default:
		return fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidFlag, format)
	}
	if err != nil {
		return err
	}

	return r.writePlain("%s", data)
}

// resolver builds the playlist entry resolver, attaching the song catalog
// when one is configured. The returned cleanup closes the catalog database.
func (r *Runner) resolver() (*playlist.Resolver, func(), error) {
	noop := func() {}

	if r.config.Catalog.Path == "" {
		return playlist.NewResolver(nil), noop, nil
	}

	db, err := shared.NewDatabase(r.config.Catalog.Path)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to open catalog: %w", err)
	}

	repo := repositories.NewSongRepository(db)
	return playlist.NewResolver(repo), func() { db.Close() }, nil
}

// SyncStatus prints stored sync state for every playlist.
func (r *Runner) SyncStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd); err != nil {
		return err
	}

	state, err := r.stateStore()
	if err != nil {
		return err
	}

	states := state.All()
	if cmd.Bool("json") {
		return r.writeJSON(states, true)
	}

	names := make([]string, 0, len(states))
	for name := range states {
		names = append(names, name)
	}
	sort.Strings(names)

	return r.writePlain("%s", formatter.StatusToText(states, names))
}
