// Subsonic-compatible API implementation of [Service]
//
// Works against Airsonic, Navidrome and other servers speaking the Subsonic
// REST protocol (http://www.subsonic.org/pages/api.jsp).
package services

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/avdunn/tunesync/internal/models"
	"github.com/avdunn/tunesync/internal/shared"
)

const (
	subsonicAPIVersion = "1.16.1"
	subsonicClientName = "tunesync"
	searchSongCount    = 20
)

type subsonicError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type subsonicArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type subsonicAlbumRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type subsonicSong struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
}

type subsonicPlaylist struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	SongCount int            `json:"songCount"`
	Entries   []subsonicSong `json:"entry"`
}

// subsonicResponse is the inner payload of every Subsonic API reply; only the
// fields relevant to the called endpoint are populated.
type subsonicResponse struct {
	Status string         `json:"status"`
	Error  *subsonicError `json:"error"`

	Artists *struct {
		Index []struct {
			Artist []subsonicArtistRef `json:"artist"`
		} `json:"index"`
	} `json:"artists"`

	Artist *struct {
		Albums []subsonicAlbumRef `json:"album"`
	} `json:"artist"`

	Album *struct {
		Songs []subsonicSong `json:"song"`
	} `json:"album"`

	SearchResult *struct {
		Songs []subsonicSong `json:"song"`
	} `json:"searchResult3"`

	Playlists *struct {
		Playlist []subsonicPlaylist `json:"playlist"`
	} `json:"playlists"`

	Playlist *subsonicPlaylist `json:"playlist"`
}

type subsonicEnvelope struct {
	Response subsonicResponse `json:"subsonic-response"`
}

// SubsonicService implements [Service] for Subsonic-compatible servers using
// salted token authentication.
type SubsonicService struct {
	baseURL    string
	username   string
	token      string
	salt       string
	httpClient *http.Client
	pacer      *pacer
}

// NewSubsonicService creates a Subsonic client with the given pacing options.
func NewSubsonicService(opts ClientOpts) *SubsonicService {
	return &SubsonicService{
		httpClient: http.DefaultClient,
		pacer:      newPacer(opts.RequestsPerSecond, opts.RequestTimeout, opts.Retry),
	}
}

// Name returns the service name.
func (s *SubsonicService) Name() string {
	return "Subsonic"
}

// Authenticate derives the salted token from the password and verifies the
// credentials with a ping call. Expects "base_url", "username" and "password"
// in credentials.
func (s *SubsonicService) Authenticate(ctx context.Context, credentials map[string]string) error {
	baseURL, ok := credentials["base_url"]
	if !ok || baseURL == "" {
		return fmt.Errorf("%w: missing base_url", shared.ErrMissingCredentials)
	}
	username, ok := credentials["username"]
	if !ok || username == "" {
		return fmt.Errorf("%w: missing username", shared.ErrMissingCredentials)
	}
	password, ok := credentials["password"]
	if !ok || password == "" {
		return fmt.Errorf("%w: missing password", shared.ErrMissingCredentials)
	}

	salt, err := randomSalt()
	if err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	sum := md5.Sum([]byte(password + salt))

	s.baseURL = baseURL
	s.username = username
	s.salt = salt
	s.token = hex.EncodeToString(sum[:])

	if err := s.doRequest(ctx, "ping", nil, nil); err != nil {
		return err
	}
	return nil
}

// doRequest performs a paced, authenticated GET against a Subsonic endpoint
// and decodes the response envelope into out (may be nil).
func (s *SubsonicService) doRequest(ctx context.Context, endpoint string, params url.Values, out *subsonicResponse) error {
	if s.token == "" {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	return s.pacer.call(ctx, func(cctx context.Context) error {
		query := url.Values{}
		for k, vs := range params {
			for _, v := range vs {
				query.Add(k, v)
			}
		}
		query.Set("u", s.username)
		query.Set("t", s.token)
		query.Set("s", s.salt)
		query.Set("v", subsonicAPIVersion)
		query.Set("c", subsonicClientName)
		query.Set("f", "json")

		apiURL := fmt.Sprintf("%s/rest/%s?%s", s.baseURL, endpoint, query.Encode())

		req, err := http.NewRequestWithContext(cctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: status %d", shared.ErrAuthFailed, resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
		}

		var envelope subsonicEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}

		if envelope.Response.Status != "ok" {
			if e := envelope.Response.Error; e != nil {
				// Codes 40/41 are credential problems
				if e.Code == 40 || e.Code == 41 {
					return fmt.Errorf("%w: %s", shared.ErrAuthFailed, e.Message)
				}
				return fmt.Errorf("%w: subsonic error %d: %s", shared.ErrAPIRequest, e.Code, e.Message)
			}
			return fmt.Errorf("%w: subsonic status %q", shared.ErrAPIRequest, envelope.Response.Status)
		}

		if out != nil {
			*out = envelope.Response
		}
		return nil
	})
}

// LibraryTracks walks artists, then albums, then songs, emitting every track.
// Tracks already delivered to visit are kept by the caller even when a later
// page fails; the error is propagated so the run can abort or retry.
func (s *SubsonicService) LibraryTracks(ctx context.Context, visit TrackVisitor) error {
	var resp subsonicResponse
	if err := s.doRequest(ctx, "getArtists", nil, &resp); err != nil {
		return fmt.Errorf("library traversal failed listing artists: %w", err)
	}
	if resp.Artists == nil {
		return nil
	}

	for _, index := range resp.Artists.Index {
		for _, artist := range index.Artist {
			if err := s.visitArtist(ctx, artist, visit); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SubsonicService) visitArtist(ctx context.Context, artist subsonicArtistRef, visit TrackVisitor) error {
	var resp subsonicResponse
	params := url.Values{"id": {artist.ID}}
	if err := s.doRequest(ctx, "getArtist", params, &resp); err != nil {
		return fmt.Errorf("library traversal failed at artist %q: %w", artist.Name, err)
	}
	if resp.Artist == nil {
		return nil
	}

	for _, album := range resp.Artist.Albums {
		var albumResp subsonicResponse
		albumParams := url.Values{"id": {album.ID}}
		if err := s.doRequest(ctx, "getAlbum", albumParams, &albumResp); err != nil {
			return fmt.Errorf("library traversal failed at album %q: %w", album.Name, err)
		}
		if albumResp.Album == nil {
			continue
		}

		for _, song := range albumResp.Album.Songs {
			track, err := models.NewRemoteTrack(song.ID, song.Artist, song.Title, song.Album)
			if err != nil {
				continue // malformed library rows are skipped, not fatal
			}
			if err := visit(track); err != nil {
				return err
			}
		}
	}
	return nil
}

// SearchTracks performs a free-text search via search3.
func (s *SubsonicService) SearchTracks(ctx context.Context, query string) ([]models.RemoteTrack, error) {
	var resp subsonicResponse
	params := url.Values{
		"query":       {query},
		"songCount":   {strconv.Itoa(searchSongCount)},
		"artistCount": {"0"},
		"albumCount":  {"0"},
	}
	if err := s.doRequest(ctx, "search3", params, &resp); err != nil {
		return nil, err
	}
	if resp.SearchResult == nil {
		return nil, nil
	}

	tracks := make([]models.RemoteTrack, 0, len(resp.SearchResult.Songs))
	for _, song := range resp.SearchResult.Songs {
		track, err := models.NewRemoteTrack(song.ID, song.Artist, song.Title, song.Album)
		if err != nil {
			continue
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// PlaylistByName lists playlists and returns the first with a matching name,
// or (nil, nil) when none matches.
func (s *SubsonicService) PlaylistByName(ctx context.Context, name string) (*models.Playlist, error) {
	var resp subsonicResponse
	if err := s.doRequest(ctx, "getPlaylists", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Playlists == nil {
		return nil, nil
	}

	for _, pl := range resp.Playlists.Playlist {
		if pl.Name == name {
			return &models.Playlist{ID: pl.ID, Name: pl.Name, TrackCount: pl.SongCount}, nil
		}
	}
	return nil, nil
}

// CreatePlaylist creates a new empty playlist.
func (s *SubsonicService) CreatePlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	var resp subsonicResponse
	params := url.Values{"name": {name}}
	if err := s.doRequest(ctx, "createPlaylist", params, &resp); err != nil {
		return nil, err
	}
	if resp.Playlist != nil {
		return &models.Playlist{ID: resp.Playlist.ID, Name: resp.Playlist.Name}, nil
	}

	// Older servers return an empty body from createPlaylist; fetch by name.
	pl, err := s.PlaylistByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if pl == nil {
		return nil, fmt.Errorf("%w: playlist %q not found after create", shared.ErrPlaylistNotFound, name)
	}
	return pl, nil
}

// PlaylistTrackIDs returns the playlist's current track ids in order.
func (s *SubsonicService) PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	var resp subsonicResponse
	params := url.Values{"id": {playlistID}}
	if err := s.doRequest(ctx, "getPlaylist", params, &resp); err != nil {
		return nil, err
	}
	if resp.Playlist == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}

	ids := make([]string, 0, len(resp.Playlist.Entries))
	for _, entry := range resp.Playlist.Entries {
		ids = append(ids, entry.ID)
	}
	return ids, nil
}

// AddTracks appends track ids to a playlist in a single updatePlaylist call.
func (s *SubsonicService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	params := url.Values{"playlistId": {playlistID}}
	for _, id := range trackIDs {
		params.Add("songIdToAdd", id)
	}
	return s.doRequest(ctx, "updatePlaylist", params, nil)
}

// RemoveTracks removes track ids from a playlist. The Subsonic protocol
// removes by position, so current entries are fetched to map ids to indexes.
func (s *SubsonicService) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	current, err := s.PlaylistTrackIDs(ctx, playlistID)
	if err != nil {
		return err
	}

	remove := make(map[string]bool, len(trackIDs))
	for _, id := range trackIDs {
		remove[id] = true
	}

	params := url.Values{"playlistId": {playlistID}}
	for i, id := range current {
		if remove[id] {
			params.Add("songIndexToRemove", strconv.Itoa(i))
		}
	}
	return s.doRequest(ctx, "updatePlaylist", params, nil)
}

// randomSalt returns a hex-encoded 8-byte salt for token authentication.
func randomSalt() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
