package repositories

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/avdunn/tunesync/internal/models"
	"github.com/bogem/id3v2/v2"
	"github.com/charmbracelet/log"
)

// ScanStats summarizes one catalog scan.
type ScanStats struct {
	Scanned    int // Audio files visited
	Catalogued int // Rows inserted or refreshed
	Skipped    int // Files with no usable metadata
}

// Scanner walks a music directory and catalogues every taggable audio file.
type Scanner struct {
	repo   *SongRepository
	logger *log.Logger
}

// NewScanner creates a Scanner writing to repo.
func NewScanner(repo *SongRepository, logger *log.Logger) *Scanner {
	return &Scanner{repo: repo, logger: logger}
}

// Scan walks dir recursively and upserts a catalog row per audio file.
// Files whose tags cannot be read fall back to the "Artist - Title" filename
// convention; files yielding no metadata at all are counted and skipped.
func (s *Scanner) Scan(ctx context.Context, dir string) (ScanStats, error) {
	var stats ScanStats

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !isAudioFile(path) {
			return nil
		}

		stats.Scanned++

		song, readErr := readSong(path)
		if readErr != nil {
			s.logger.Warn("no usable metadata", "path", path, "error", readErr)
			stats.Skipped++
			return nil
		}

		if upsertErr := s.repo.Upsert(song); upsertErr != nil {
			return fmt.Errorf("failed to catalogue %s: %w", path, upsertErr)
		}
		stats.Catalogued++
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("catalog scan failed: %w", err)
	}

	s.logger.Info("catalog scan complete", "scanned", stats.Scanned, "catalogued", stats.Catalogued, "skipped", stats.Skipped)
	return stats, nil
}

func isAudioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return true
	default:
		return false
	}
}

// readSong extracts metadata for one file, preferring embedded tags.
func readSong(path string) (*models.Song, error) {
	if song, err := readTags(path); err == nil {
		return song, nil
	}
	return parseFilename(path)
}

func readTags(path string) (*models.Song, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}
	defer tag.Close()

	song := &models.Song{
		Path:   path,
		Artist: tag.Artist(),
		Title:  tag.Title(),
		Album:  tag.Album(),
		Year:   tag.Year(),
	}
	if err := song.Validate(); err != nil {
		return nil, err
	}
	return song, nil
}

func parseFilename(path string) (*models.Song, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	parts := strings.SplitN(base, " - ", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("filename %q does not match 'Artist - Title'", base)
	}

	song := &models.Song{
		Path:   path,
		Artist: strings.TrimSpace(parts[0]),
		Title:  strings.TrimSpace(parts[1]),
	}
	return song, song.Validate()
}
