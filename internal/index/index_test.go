package index

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/avdunn/tunesync/internal/models"
	"github.com/avdunn/tunesync/internal/services"
	"github.com/avdunn/tunesync/internal/shared"
)

func TestIndexKeySymmetry(t *testing.T) {
	idx := New()
	idx.Add(models.RemoteTrack{ID: "s1", Artist: "Pink Floyd", Title: "Time", Album: "The Dark Side of the Moon"})

	// Query keys derived from differently cased metadata must hit the
	// same buckets the indexed track was registered under.
	for _, key := range shared.TrackKeys("pink floyd", "TIME", "") {
		if got := idx.Lookup(key); len(got) != 1 || got[0].ID != "s1" {
			t.Errorf("Lookup(%q) = %v, want [s1]", key, got)
		}
	}
}

func TestIndexInsertionOrder(t *testing.T) {
	idx := New()
	idx.Add(models.RemoteTrack{ID: "first", Artist: "Artist", Title: "Song"})
	idx.Add(models.RemoteTrack{ID: "second", Artist: "Artist", Title: "Song"})

	got := idx.Lookup(shared.TrackKey("Artist", "Song"))
	if len(got) != 2 {
		t.Fatalf("Lookup() = %v, want 2 candidates", got)
	}
	if got[0].ID != "first" || got[1].ID != "second" {
		t.Errorf("candidates out of insertion order: %v", got)
	}
}

func TestIndexDropsUnusableTracks(t *testing.T) {
	idx := New()
	idx.Add(models.RemoteTrack{ID: "", Title: "No ID"})
	idx.Add(models.RemoteTrack{ID: "x", Title: ""})

	if idx.Size() != 0 {
		t.Errorf("Size() = %d, want 0", idx.Size())
	}
}

type fakeService struct {
	tracks  []models.RemoteTrack
	failAt  int // fail after emitting this many tracks; 0 means never
	visited int
}

func (f *fakeService) Authenticate(context.Context, map[string]string) error { return nil }
func (f *fakeService) Name() string                                          { return "fake" }
func (f *fakeService) SearchTracks(context.Context, string) ([]models.RemoteTrack, error) {
	return nil, nil
}
func (f *fakeService) PlaylistByName(context.Context, string) (*models.Playlist, error) {
	return nil, nil
}
func (f *fakeService) CreatePlaylist(context.Context, string) (*models.Playlist, error) {
	return nil, nil
}
func (f *fakeService) PlaylistTrackIDs(context.Context, string) ([]string, error) { return nil, nil }
func (f *fakeService) AddTracks(context.Context, string, []string) error          { return nil }
func (f *fakeService) RemoveTracks(context.Context, string, []string) error       { return nil }

func (f *fakeService) LibraryTracks(_ context.Context, visit services.TrackVisitor) error {
	for _, tr := range f.tracks {
		if f.failAt > 0 && f.visited == f.failAt {
			return errors.New("connection reset")
		}
		f.visited++
		if err := visit(tr); err != nil {
			return err
		}
	}
	return nil
}

func TestBuild(t *testing.T) {
	svc := &fakeService{tracks: []models.RemoteTrack{
		{ID: "s1", Artist: "A", Title: "One"},
		{ID: "s2", Artist: "B", Title: "Two"},
	}}

	idx, err := Build(context.Background(), svc, shared.NewLogger(io.Discard))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if idx.Size() != 2 {
		t.Errorf("Size() = %d, want 2", idx.Size())
	}
}

func TestBuildKeepsPartialResults(t *testing.T) {
	svc := &fakeService{
		tracks: []models.RemoteTrack{
			{ID: "s1", Artist: "A", Title: "One"},
			{ID: "s2", Artist: "B", Title: "Two"},
			{ID: "s3", Artist: "C", Title: "Three"},
		},
		failAt: 2,
	}

	idx, err := Build(context.Background(), svc, shared.NewLogger(io.Discard))
	if !errors.Is(err, shared.ErrIndexBuild) {
		t.Fatalf("Build() error = %v, want ErrIndexBuild", err)
	}
	if idx == nil || idx.Size() != 2 {
		t.Errorf("partial index should hold 2 tracks, got %v", idx)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "library_index.json")

	idx := New()
	idx.Add(models.RemoteTrack{ID: "s1", Artist: "Pink Floyd", Title: "Time", Album: "The Dark Side of the Moon"})

	if err := Save(idx, "subsonic", path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, builtAt, err := Load(path, "subsonic")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Size() != 1 {
		t.Errorf("Size() = %d, want 1", loaded.Size())
	}
	if time.Since(builtAt) > time.Minute {
		t.Errorf("builtAt = %v, want recent", builtAt)
	}

	// Keys are rebuilt on load, not persisted
	got := loaded.Lookup(shared.TrackKey("pink floyd", "time"))
	if len(got) != 1 || got[0].ID != "s1" {
		t.Errorf("Lookup after load = %v, want [s1]", got)
	}
}

func TestLoadMissingSnapshot(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.json"), "subsonic")
	if !IsNotExist(err) {
		t.Errorf("Load() error = %v, want not-exist", err)
	}
}

func TestLoadRejectsOtherService(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library_index.json")

	idx := New()
	idx.Add(models.RemoteTrack{ID: "s1", Artist: "A", Title: "One"})
	if err := Save(idx, "spotify", path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	_, _, err := Load(path, "subsonic")
	if !IsNotExist(err) {
		t.Errorf("Load() error = %v, want not-exist for service mismatch", err)
	}
}

func TestCacheEntryIsStale(t *testing.T) {
	fresh := CacheEntry[int]{Value: 1, BuiltAt: time.Now()}
	if fresh.IsStale(24 * time.Hour) {
		t.Error("fresh entry reported stale")
	}

	old := CacheEntry[int]{Value: 1, BuiltAt: time.Now().Add(-25 * time.Hour)}
	if !old.IsStale(24 * time.Hour) {
		t.Error("day-old entry should be stale with 24h TTL")
	}
}
