// Spotify Web API implementation of [Service]
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/avdunn/tunesync/internal/models"
	"github.com/avdunn/tunesync/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	spotifyPageLimit = 50
)

type spotifyArtist struct {
	Name string `json:"name"`
}

type spotifyAlbum struct {
	Name string `json:"name"`
}

type spotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	URI     string          `json:"uri"`
	Artists []spotifyArtist `json:"artists"`
	Album   spotifyAlbum    `json:"album"`
}

type spotifySavedTracksPage struct {
	Items []struct {
		Track spotifyTrack `json:"track"`
	} `json:"items"`
	Next *string `json:"next"`
}

type spotifyPlaylistsPage struct {
	Items []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Tracks struct {
			Total int `json:"total"`
		} `json:"tracks"`
	} `json:"items"`
	Next *string `json:"next"`
}

type spotifyPlaylistTracksPage struct {
	Items []struct {
		Track spotifyTrack `json:"track"`
	} `json:"items"`
	Next *string `json:"next"`
}

// SpotifyService implements [Service] for the Spotify Web API using [oauth2]
// for authentication with automatic token refresh.
type SpotifyService struct {
	config     *oauth2.Config
	token      *oauth2.Token
	httpClient *http.Client
	userID     string
	pacer      *pacer
}

// NewSpotifyService creates a Spotify client with the given OAuth2
// credentials and pacing options.
func NewSpotifyService(credentials map[string]string, opts ClientOpts) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-library-read",
			"playlist-read-private",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		pacer:      newPacer(opts.RequestsPerSecond, opts.RequestTimeout, opts.Retry),
	}, nil
}

// Name returns the service name.
func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// OAuthConfig exposes the OAuth2 configuration for the CLI login flow's
// callback server.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// Authenticate performs OAuth2 authentication. Expects either an
// "access_token" or an "auth_code" in credentials, then resolves the current
// user's id for playlist creation.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	switch {
	case credentials["access_token"] != "":
		s.token = &oauth2.Token{AccessToken: credentials["access_token"]}
	case credentials["auth_code"] != "":
		token, err := s.config.Exchange(ctx, credentials["auth_code"])
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		s.token = token
	default:
		return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
	}

	s.httpClient = s.config.Client(ctx, s.token)

	var me struct {
		ID string `json:"id"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &me); err != nil {
		return err
	}
	s.userID = me.ID
	return nil
}

// doRequest performs a paced, authenticated request against the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	return s.pacer.call(ctx, func(cctx context.Context) error {
		var reader *bytes.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("failed to marshal request body: %w", err)
			}
			reader = bytes.NewReader(payload)
		} else {
			reader = bytes.NewReader(nil)
		}

		req, err := http.NewRequestWithContext(cctx, method, spotifyBaseURL+endpoint, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: status %d", shared.ErrAuthFailed, resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("%w: spotify API error: status %d", shared.ErrAPIRequest, resp.StatusCode)
		}

		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	})
}

func toRemoteTrack(st spotifyTrack) (models.RemoteTrack, error) {
	artist := ""
	if len(st.Artists) > 0 {
		artist = st.Artists[0].Name
	}
	return models.NewRemoteTrack(st.ID, artist, st.Name, st.Album.Name)
}

// LibraryTracks pages through the user's saved tracks.
func (s *SpotifyService) LibraryTracks(ctx context.Context, visit TrackVisitor) error {
	offset := 0
	for {
		endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", spotifyPageLimit, offset)

		var page spotifySavedTracksPage
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return fmt.Errorf("library traversal failed at offset %d: %w", offset, err)
		}

		for _, item := range page.Items {
			track, err := toRemoteTrack(item.Track)
			if err != nil {
				continue
			}
			if err := visit(track); err != nil {
				return err
			}
		}

		if page.Next == nil || len(page.Items) == 0 {
			return nil
		}
		offset += spotifyPageLimit
	}
}

// SearchTracks performs a free-text track search.
func (s *SpotifyService) SearchTracks(ctx context.Context, query string) ([]models.RemoteTrack, error) {
	endpoint := fmt.Sprintf("/search?type=track&limit=20&q=%s", url.QueryEscape(query))

	var response struct {
		Tracks struct {
			Items []spotifyTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.RemoteTrack, 0, len(response.Tracks.Items))
	for _, item := range response.Tracks.Items {
		track, err := toRemoteTrack(item)
		if err != nil {
			continue
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// PlaylistByName pages through the user's playlists looking for a name match.
func (s *SpotifyService) PlaylistByName(ctx context.Context, name string) (*models.Playlist, error) {
	offset := 0
	for {
		endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", spotifyPageLimit, offset)

		var page spotifyPlaylistsPage
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Name == name {
				return &models.Playlist{ID: item.ID, Name: item.Name, TrackCount: item.Tracks.Total}, nil
			}
		}

		if page.Next == nil || len(page.Items) == 0 {
			return nil, nil
		}
		offset += spotifyPageLimit
	}
}

// CreatePlaylist creates a private playlist for the authenticated user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	if s.userID == "" {
		return nil, fmt.Errorf("%w: user id unknown", shared.ErrNotAuthenticated)
	}

	endpoint := fmt.Sprintf("/users/%s/playlists", s.userID)
	body := map[string]any{"name": name, "public": false}

	var created struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return nil, err
	}
	return &models.Playlist{ID: created.ID, Name: created.Name}, nil
}

// PlaylistTrackIDs pages through a playlist's tracks collecting ids.
func (s *SpotifyService) PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	var ids []string
	offset := 0
	for {
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, spotifyPageLimit, offset)

		var page spotifyPlaylistTracksPage
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track.ID != "" {
				ids = append(ids, item.Track.ID)
			}
		}

		if page.Next == nil || len(page.Items) == 0 {
			return ids, nil
		}
		offset += spotifyPageLimit
	}
}

// AddTracks appends track ids to a playlist in one call.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	body := map[string]any{"uris": trackURIs(trackIDs)}
	return s.doRequest(ctx, http.MethodPost, endpoint, body, nil)
}

// RemoveTracks removes track ids from a playlist in one call.
func (s *SpotifyService) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	tracks := make([]map[string]string, len(trackIDs))
	for i, id := range trackIDs {
		tracks[i] = map[string]string{"uri": trackURI(id)}
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	body := map[string]any{"tracks": tracks}
	return s.doRequest(ctx, http.MethodDelete, endpoint, body, nil)
}

func trackURI(id string) string {
	if strings.HasPrefix(id, "spotify:") {
		return id
	}
	return "spotify:track:" + id
}

func trackURIs(ids []string) []string {
	uris := make([]string, len(ids))
	for i, id := range ids {
		uris[i] = trackURI(id)
	}
	return uris
}
