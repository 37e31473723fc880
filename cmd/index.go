package main

import (
	"context"
	"time"

	"github.com/avdunn/tunesync/internal/index"
	"github.com/urfave/cli/v3"
)

// IndexBuild traverses the remote library and writes a fresh snapshot.
func (r *Runner) IndexBuild(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd); err != nil {
		return err
	}

	svc, err := r.remoteService(ctx)
	if err != nil {
		return err
	}

	idx, err := index.Build(ctx, svc, r.logger)
	if err != nil {
		return err
	}

	path, err := r.config.IndexCachePath()
	if err != nil {
		return err
	}
	if err := index.Save(idx, svc.Name(), path); err != nil {
		return err
	}

	return r.writePlainln("Indexed %d tracks to %s", idx.Size(), path)
}

// IndexInfo shows cached snapshot age and size.
func (r *Runner) IndexInfo(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd); err != nil {
		return err
	}

	svc, err := r.remoteService(ctx)
	if err != nil {
		return err
	}

	path, err := r.config.IndexCachePath()
	if err != nil {
		return err
	}

	idx, builtAt, err := index.Load(path, svc.Name())
	if index.IsNotExist(err) {
		return r.writePlainln("No index snapshot at %s. Run 'tunesync index build'.", path)
	}
	if err != nil {
		return err
	}

	age := time.Since(builtAt).Round(time.Minute)
	stale := time.Since(builtAt) > r.config.IndexTTL()

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"path":     path,
			"tracks":   idx.Size(),
			"built_at": builtAt,
			"stale":    stale,
		}, true)
	}

	if err := r.writePlainln("Index: %s", path); err != nil {
		return err
	}
	r.writePlain("Tracks: %d\n", idx.Size())
	r.writePlain("Built: %s ago", age)
	if stale {
		r.writePlain(" (stale, will rebuild on next sync)")
	}
	return r.writePlain("\n")
}
