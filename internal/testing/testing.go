// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/avdunn/tunesync/internal/models"
	"github.com/avdunn/tunesync/internal/services"
)

// MockService is a configurable test double for [services.Service].
type MockService struct {
	Library       []models.RemoteTrack
	SearchResults []models.RemoteTrack
	Playlists     map[string]*models.Playlist // keyed by name
	PlaylistIDs   map[string][]string         // keyed by playlist id

	AuthErr   error
	SearchErr error
	AddErr    error
	RemoveErr error

	AddedBatches   [][]string
	RemovedBatches [][]string
}

func (m *MockService) Authenticate(ctx context.Context, credentials map[string]string) error {
	return m.AuthErr
}

func (m *MockService) Name() string { return "mock" }

func (m *MockService) LibraryTracks(ctx context.Context, visit services.TrackVisitor) error {
	for _, tr := range m.Library {
		if err := visit(tr); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockService) SearchTracks(ctx context.Context, query string) ([]models.RemoteTrack, error) {
	return m.SearchResults, m.SearchErr
}

func (m *MockService) PlaylistByName(ctx context.Context, name string) (*models.Playlist, error) {
	return m.Playlists[name], nil
}

func (m *MockService) CreatePlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	pl := &models.Playlist{ID: "mock-" + name, Name: name}
	if m.Playlists == nil {
		m.Playlists = make(map[string]*models.Playlist)
	}
	m.Playlists[name] = pl
	return pl, nil
}

func (m *MockService) PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	return append([]string(nil), m.PlaylistIDs[playlistID]...), nil
}

func (m *MockService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if m.AddErr != nil {
		return m.AddErr
	}
	m.AddedBatches = append(m.AddedBatches, trackIDs)
	if m.PlaylistIDs == nil {
		m.PlaylistIDs = make(map[string][]string)
	}
	m.PlaylistIDs[playlistID] = append(m.PlaylistIDs[playlistID], trackIDs...)
	return nil
}

func (m *MockService) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	m.RemovedBatches = append(m.RemovedBatches, trackIDs)
	drop := make(map[string]bool, len(trackIDs))
	for _, id := range trackIDs {
		drop[id] = true
	}
	var kept []string
	for _, id := range m.PlaylistIDs[playlistID] {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	m.PlaylistIDs[playlistID] = kept
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
