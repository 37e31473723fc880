package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/avdunn/tunesync/internal/index"
	"github.com/avdunn/tunesync/internal/models"
	"github.com/avdunn/tunesync/internal/playlist"
	"github.com/avdunn/tunesync/internal/services"
	"github.com/avdunn/tunesync/internal/shared"
	"github.com/avdunn/tunesync/internal/store"
)

// mockService is an in-memory remote service with error injection fields.
type mockService struct {
	library        []models.RemoteTrack
	playlists      map[string]*models.Playlist // keyed by name
	playlistTracks map[string][]string         // keyed by playlist id
	searchResults  []models.RemoteTrack

	addErrOn    map[int]bool // 1-based add call numbers that fail
	createErr   error
	lookupErr   error
	addCalls    [][]string
	removeCalls [][]string
	nextID      int
}

func newMockService(library ...models.RemoteTrack) *mockService {
	return &mockService{
		library:        library,
		playlists:      make(map[string]*models.Playlist),
		playlistTracks: make(map[string][]string),
	}
}

func (m *mockService) Authenticate(context.Context, map[string]string) error { return nil }
func (m *mockService) Name() string                                          { return "mock" }

func (m *mockService) LibraryTracks(_ context.Context, visit services.TrackVisitor) error {
	for _, tr := range m.library {
		if err := visit(tr); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockService) SearchTracks(context.Context, string) ([]models.RemoteTrack, error) {
	return m.searchResults, nil
}

func (m *mockService) PlaylistByName(_ context.Context, name string) (*models.Playlist, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	return m.playlists[name], nil
}

func (m *mockService) CreatePlaylist(_ context.Context, name string) (*models.Playlist, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.nextID++
	pl := &models.Playlist{ID: fmt.Sprintf("p%d", m.nextID), Name: name}
	m.playlists[name] = pl
	return pl, nil
}

func (m *mockService) PlaylistTrackIDs(_ context.Context, playlistID string) ([]string, error) {
	return append([]string(nil), m.playlistTracks[playlistID]...), nil
}

func (m *mockService) AddTracks(_ context.Context, playlistID string, trackIDs []string) error {
	m.addCalls = append(m.addCalls, trackIDs)
	if m.addErrOn[len(m.addCalls)] {
		return errors.New("injected add failure")
	}
	m.playlistTracks[playlistID] = append(m.playlistTracks[playlistID], trackIDs...)
	return nil
}

func (m *mockService) RemoveTracks(_ context.Context, playlistID string, trackIDs []string) error {
	m.removeCalls = append(m.removeCalls, trackIDs)
	drop := make(map[string]bool, len(trackIDs))
	for _, id := range trackIDs {
		drop[id] = true
	}
	var kept []string
	for _, id := range m.playlistTracks[playlistID] {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	m.playlistTracks[playlistID] = kept
	return nil
}

// staticIndex serves a prebuilt index without touching the service.
type staticIndex struct{ idx *index.Index }

func (s staticIndex) Ensure(context.Context) (*index.Index, error) { return s.idx, nil }

func indexOf(tracks ...models.RemoteTrack) staticIndex {
	idx := index.New()
	for _, tr := range tracks {
		idx.Add(tr)
	}
	return staticIndex{idx: idx}
}

func writePlaylist(t *testing.T, name string, entries ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	content := "#EXTM3U\n"
	for _, e := range entries {
		content += e + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestEngine(t *testing.T, svc *mockService, src IndexSource, opts Options) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	logger := shared.NewLogger(io.Discard)
	return NewEngine(svc, playlist.NewResolver(nil), src, st, logger, opts), st
}

func TestSyncPlaylistEndToEnd(t *testing.T) {
	track := models.RemoteTrack{ID: "r1", Artist: "Pink Floyd", Title: "Time", Album: "The Dark Side of the Moon"}
	svc := newMockService(track)
	engine, _ := newTestEngine(t, svc, indexOf(track), Options{})

	path := writePlaylist(t, "mix.m3u",
		"/music/Pink Floyd - Time.mp3",
		"/music/nodashpattern.mp3",
	)

	result, err := engine.SyncPlaylist(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("SyncPlaylist() error = %v", err)
	}

	if result.Total != 2 || result.Matched != 1 {
		t.Errorf("Total/Matched = %d/%d, want 2/1", result.Total, result.Matched)
	}
	if result.UnmatchedCount() != 1 {
		t.Errorf("UnmatchedCount() = %d, want 1", result.UnmatchedCount())
	}
	if result.Added != 1 {
		t.Errorf("Added = %d, want 1", result.Added)
	}

	pl := svc.playlists["mix"]
	if pl == nil {
		t.Fatal("remote playlist was not created")
	}
	got := svc.playlistTracks[pl.ID]
	if len(got) != 1 || got[0] != "r1" {
		t.Errorf("remote tracks = %v, want [r1]", got)
	}
}

func TestSyncPlaylistSkipsUnchangedHash(t *testing.T) {
	track := models.RemoteTrack{ID: "r1", Artist: "Artist", Title: "Song"}
	svc := newMockService(track)
	engine, _ := newTestEngine(t, svc, indexOf(track), Options{})

	path := writePlaylist(t, "mix.m3u", "/music/Artist - Song.mp3")

	first, err := engine.SyncPlaylist(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("first run error = %v", err)
	}
	if first.Skipped {
		t.Fatal("first run should not be skipped")
	}

	second, err := engine.SyncPlaylist(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}
	if !second.Skipped {
		t.Fatal("second run of unchanged playlist should be skipped")
	}
	if second.PlaylistID != first.PlaylistID {
		t.Errorf("skipped run PlaylistID = %q, want %q", second.PlaylistID, first.PlaylistID)
	}
	if len(svc.addCalls) != 1 {
		t.Errorf("add calls = %d, want 1 (no calls on skipped run)", len(svc.addCalls))
	}
}

func TestSyncPlaylistForceIgnoresHash(t *testing.T) {
	track := models.RemoteTrack{ID: "r1", Artist: "Artist", Title: "Song"}
	svc := newMockService(track)
	engine, _ := newTestEngine(t, svc, indexOf(track), Options{Force: true})

	path := writePlaylist(t, "mix.m3u", "/music/Artist - Song.mp3")

	if _, err := engine.SyncPlaylist(context.Background(), path, nil); err != nil {
		t.Fatal(err)
	}
	second, err := engine.SyncPlaylist(context.Background(), path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if second.Skipped {
		t.Error("forced run must not be skipped")
	}
	// Remote already holds r1, so the forced run applies nothing new
	if second.Added != 0 || second.Removed != 0 {
		t.Errorf("forced re-sync applied %d/%d changes, want 0/0", second.Added, second.Removed)
	}
}

func TestSyncPlaylistReconcilesExisting(t *testing.T) {
	// Local wants {A,B,C}; remote currently holds {B,C,D}.
	tracks := []models.RemoteTrack{
		{ID: "A", Artist: "ArtistA", Title: "SongA"},
		{ID: "B", Artist: "ArtistB", Title: "SongB"},
		{ID: "C", Artist: "ArtistC", Title: "SongC"},
	}
	svc := newMockService(tracks...)
	svc.playlists["mix"] = &models.Playlist{ID: "p9", Name: "mix"}
	svc.playlistTracks["p9"] = []string{"B", "C", "D"}

	engine, _ := newTestEngine(t, svc, indexOf(tracks...), Options{})
	path := writePlaylist(t, "mix.m3u",
		"/music/ArtistA - SongA.mp3",
		"/music/ArtistB - SongB.mp3",
		"/music/ArtistC - SongC.mp3",
	)

	result, err := engine.SyncPlaylist(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("SyncPlaylist() error = %v", err)
	}

	if result.Added != 1 || result.Removed != 1 {
		t.Errorf("Added/Removed = %d/%d, want 1/1", result.Added, result.Removed)
	}
	got := svc.playlistTracks["p9"]
	want := map[string]bool{"A": true, "B": true, "C": true}
	if len(got) != 3 {
		t.Fatalf("remote tracks = %v, want {A,B,C}", got)
	}
	for _, id := range got {
		if !want[id] {
			t.Errorf("unexpected id %q in remote playlist %v", id, got)
		}
	}
}

func TestSyncPlaylistBatchFailureTolerated(t *testing.T) {
	var tracks []models.RemoteTrack
	var entries []string
	for i := 0; i < 3; i++ {
		tracks = append(tracks, models.RemoteTrack{
			ID:     fmt.Sprintf("id%d", i),
			Artist: fmt.Sprintf("Artist%d", i),
			Title:  fmt.Sprintf("Song%d", i),
		})
		entries = append(entries, fmt.Sprintf("/music/Artist%d - Song%d.mp3", i, i))
	}

	svc := newMockService(tracks...)
	svc.addErrOn = map[int]bool{2: true}

	engine, st := newTestEngine(t, svc, indexOf(tracks...), Options{BatchSize: 1})
	path := writePlaylist(t, "mix.m3u", entries...)

	result, err := engine.SyncPlaylist(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("SyncPlaylist() error = %v", err)
	}

	if result.FailedBatches != 1 {
		t.Errorf("FailedBatches = %d, want 1", result.FailedBatches)
	}
	if result.Added != 2 {
		t.Errorf("Added = %d, want 2 (batches around the failure still apply)", result.Added)
	}

	// A run with failed batches must not record the hash, so the next run
	// retries instead of skipping.
	if _, ok := st.Get("mix"); ok {
		t.Error("state recorded despite failed batch")
	}
}

func TestSyncPlaylistCreateFails(t *testing.T) {
	track := models.RemoteTrack{ID: "r1", Artist: "Artist", Title: "Song"}
	svc := newMockService(track)
	svc.createErr = errors.New("server error")

	engine, _ := newTestEngine(t, svc, indexOf(track), Options{})
	path := writePlaylist(t, "mix.m3u", "/music/Artist - Song.mp3")

	if _, err := engine.SyncPlaylist(context.Background(), path, nil); !errors.Is(err, shared.ErrAPIRequest) {
		t.Errorf("SyncPlaylist() error = %v, want ErrAPIRequest", err)
	}
}

func TestSyncPlaylistKeepsAuthErrorIdentity(t *testing.T) {
	track := models.RemoteTrack{ID: "r1", Artist: "Artist", Title: "Song"}
	svc := newMockService(track)
	svc.lookupErr = fmt.Errorf("%w: token rejected", shared.ErrAuthFailed)

	engine, _ := newTestEngine(t, svc, indexOf(track), Options{})
	path := writePlaylist(t, "mix.m3u", "/music/Artist - Song.mp3")

	_, err := engine.SyncPlaylist(context.Background(), path, nil)
	if !errors.Is(err, shared.ErrAPIRequest) {
		t.Errorf("SyncPlaylist() error = %v, want ErrAPIRequest", err)
	}
	// The underlying sentinel must survive the wrap so callers can tell
	// auth failures apart from transient API trouble.
	if !errors.Is(err, shared.ErrAuthFailed) {
		t.Errorf("SyncPlaylist() error = %v, want ErrAuthFailed to remain detectable", err)
	}
}

func TestDiffIDs(t *testing.T) {
	tests := []struct {
		name             string
		current, desired []string
		wantAdd, wantRem []string
	}{
		{"disjoint tails", []string{"B", "C", "D"}, []string{"A", "B", "C"}, []string{"A"}, []string{"D"}},
		{"identical", []string{"A", "B"}, []string{"A", "B"}, nil, nil},
		{"empty remote", nil, []string{"A"}, []string{"A"}, nil},
		{"empty local", []string{"A"}, nil, nil, []string{"A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			add, rem := diffIDs(tt.current, tt.desired)
			if !equalIDs(add, tt.wantAdd) {
				t.Errorf("toAdd = %v, want %v", add, tt.wantAdd)
			}
			if !equalIDs(rem, tt.wantRem) {
				t.Errorf("toRemove = %v, want %v", rem, tt.wantRem)
			}
		})
	}
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestChunk(t *testing.T) {
	ids := make([]string, 250)
	for i := range ids {
		ids[i] = fmt.Sprintf("id%d", i)
	}

	batches := chunk(ids, 100)
	if len(batches) != 3 {
		t.Fatalf("chunk() produced %d batches, want 3", len(batches))
	}
	if len(batches[0]) != 100 || len(batches[1]) != 100 || len(batches[2]) != 50 {
		t.Errorf("batch sizes = %d/%d/%d, want 100/100/50", len(batches[0]), len(batches[1]), len(batches[2]))
	}

	// Union of batches is exactly the input, in order
	var flat []string
	for _, b := range batches {
		flat = append(flat, b...)
	}
	if !equalIDs(flat, ids) {
		t.Error("chunk() lost or reordered ids")
	}
}
