package main

import (
	"context"
	"fmt"

	"github.com/avdunn/tunesync/internal/repositories"
	"github.com/avdunn/tunesync/internal/shared"
	"github.com/urfave/cli/v3"
)

// CatalogScan walks a music directory and catalogues its audio files.
func (r *Runner) CatalogScan(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd); err != nil {
		return err
	}

	dir := cmd.String("dir")
	if dir == "" {
		dir = r.config.Catalog.MusicDir
	}
	if dir == "" {
		return fmt.Errorf("%w: no music directory (set --dir or catalog.music_dir)", shared.ErrMissingArgument)
	}

	dbPath := r.config.Catalog.Path
	if dbPath == "" {
		return fmt.Errorf("%w: no catalog path (set catalog.path)", shared.ErrMissingConfig)
	}

	db, err := shared.NewDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		return err
	}

	scanner := repositories.NewScanner(repositories.NewSongRepository(db), r.logger)
	stats, err := scanner.Scan(ctx, dir)
	if err != nil {
		return err
	}

	return r.writePlainln("Scanned %d files: %d catalogued, %d skipped", stats.Scanned, stats.Catalogued, stats.Skipped)
}
