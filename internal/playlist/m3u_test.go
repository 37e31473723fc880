package playlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/avdunn/tunesync/internal/models"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "favorites.m3u")

	content := `#EXTM3U
#EXTINF:123,Artist - Song One
/music/Artist - Song One.mp3

/music/Other Artist - Song Two.mp3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write playlist: %v", err)
	}

	pl, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if pl.Name != "favorites" {
		t.Errorf("Name = %q, want favorites", pl.Name)
	}
	if len(pl.Entries) != 2 {
		t.Fatalf("Entries = %v, want 2 paths", pl.Entries)
	}
	if pl.Entries[0] != "/music/Artist - Song One.mp3" {
		t.Errorf("Entries[0] = %q", pl.Entries[0])
	}
	if pl.Hash == "" {
		t.Error("Hash should not be empty")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.m3u")); err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestContentHashDetectsSingleByteChange(t *testing.T) {
	original := []byte("/music/a.mp3\n/music/b.mp3\n")
	changed := []byte("/music/a.mp3\n/music/c.mp3\n")

	if ContentHash(original) != ContentHash(original) {
		t.Error("identical bytes must hash identically")
	}
	if ContentHash(original) == ContentHash(changed) {
		t.Error("changed bytes must produce a different hash")
	}
}

func TestResolveFilenameFallback(t *testing.T) {
	r := NewResolver(nil)

	// Nonexistent file: tag read fails, filename pattern applies
	track, err := r.Resolve("/music/Pink Floyd - Time.mp3")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if track.Artist != "Pink Floyd" {
		t.Errorf("Artist = %q, want Pink Floyd", track.Artist)
	}
	if track.Title != "Time" {
		t.Errorf("Title = %q, want Time", track.Title)
	}
	if track.SourcePath != "/music/Pink Floyd - Time.mp3" {
		t.Errorf("SourcePath = %q", track.SourcePath)
	}
}

func TestResolveUnparseable(t *testing.T) {
	r := NewResolver(nil)

	if _, err := r.Resolve("/music/no-dash-pattern.mp3"); err == nil {
		t.Fatal("Resolve() expected error for unparseable entry")
	}
}

type stubCatalog struct {
	artist, title, album string
}

func (s *stubCatalog) SongByPath(path string) (*models.Song, error) {
	return &models.Song{Path: path, Artist: s.artist, Title: s.title, Album: s.album}, nil
}

func TestResolveCatalogPrecedence(t *testing.T) {
	catalog := &stubCatalog{
		artist: "Catalog Artist",
		title:  "Catalog Title",
		album:  "Catalog Album",
	}
	r := NewResolver(catalog)

	track, err := r.Resolve("/music/File Artist - File Title.mp3")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if track.Artist != "Catalog Artist" || track.Title != "Catalog Title" {
		t.Errorf("catalog values should take precedence, got %q - %q", track.Artist, track.Title)
	}
}
