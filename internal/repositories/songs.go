package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/avdunn/tunesync/internal/models"
	"github.com/avdunn/tunesync/internal/shared"
)

// SongRepository persists catalog rows. It satisfies the resolver's catalog
// lookup interface via SongByPath.
type SongRepository struct {
	db *sql.DB
}

// NewSongRepository creates a SongRepository with the given database connection.
func NewSongRepository(db *sql.DB) *SongRepository {
	return &SongRepository{db: db}
}

// Upsert inserts a song or, when the path already exists, refreshes its
// metadata. The row id and created_at of an existing row are preserved.
func (r *SongRepository) Upsert(song *models.Song) error {
	if err := song.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	if song.ID == "" {
		song.ID = shared.GenerateID()
	}

	query := `
		INSERT INTO songs (id, path, artist, title, album, year, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			artist = excluded.artist,
			title = excluded.title,
			album = excluded.album,
			year = excluded.year,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query, song.ID, song.Path, song.Artist, song.Title, song.Album, song.Year, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert song: %w", err)
	}
	return nil
}

// SongByPath retrieves the catalog row for a media file path.
func (r *SongRepository) SongByPath(path string) (*models.Song, error) {
	query := `
		SELECT id, path, artist, title, album, year, created_at, updated_at
		FROM songs
		WHERE path = ?
	`
	return r.scanOne(r.db.QueryRow(query, path))
}

// List retrieves all catalog rows ordered by artist then title.
func (r *SongRepository) List() ([]*models.Song, error) {
	query := `
		SELECT id, path, artist, title, album, year, created_at, updated_at
		FROM songs
		ORDER BY artist, title
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	var songs []*models.Song
	for rows.Next() {
		song := &models.Song{}
		err := rows.Scan(&song.ID, &song.Path, &song.Artist, &song.Title, &song.Album, &song.Year, &song.CreatedAt, &song.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return songs, nil
}

// Count returns the number of catalogued songs.
func (r *SongRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM songs").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count songs: %w", err)
	}
	return n, nil
}

// Delete removes the catalog row for a media file path.
func (r *SongRepository) Delete(path string) error {
	result, err := r.db.Exec("DELETE FROM songs WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, path)
	}
	return nil
}

func (r *SongRepository) scanOne(row *sql.Row) (*models.Song, error) {
	song := &models.Song{}
	err := row.Scan(&song.ID, &song.Path, &song.Artist, &song.Title, &song.Album, &song.Year, &song.CreatedAt, &song.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: not catalogued", shared.ErrTrackNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan song: %w", err)
	}
	return song, nil
}
