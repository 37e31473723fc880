package services

import (
	"context"
	"time"

	"github.com/avdunn/tunesync/internal/models"
	"github.com/avdunn/tunesync/internal/shared"
	"golang.org/x/time/rate"
)

// TrackVisitor receives each track discovered during library traversal.
// Returning an error aborts the traversal.
type TrackVisitor func(models.RemoteTrack) error

// Service defines the operations the sync pipeline needs from a remote music
// service.
type Service interface {
	// Authenticate performs authentication with the service.
	// Returns shared.ErrAuthFailed on credential problems.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// Name returns the service name (e.g. "Subsonic", "Spotify").
	Name() string

	// LibraryTracks traverses the full remote library, calling visit for
	// every reachable track. A traversal that fails partway still delivers
	// the tracks seen so far before returning the error.
	LibraryTracks(ctx context.Context, visit TrackVisitor) error

	// SearchTracks performs a free-text search and returns candidate tracks.
	SearchTracks(ctx context.Context, query string) ([]models.RemoteTrack, error)

	// PlaylistByName fetches a playlist by its display name.
	// Returns (nil, nil) when no playlist with that name exists.
	PlaylistByName(ctx context.Context, name string) (*models.Playlist, error)

	// CreatePlaylist creates a new empty playlist.
	CreatePlaylist(ctx context.Context, name string) (*models.Playlist, error)

	// PlaylistTrackIDs returns the current track ids of a playlist in order.
	PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error)

	// AddTracks appends track ids to a playlist in one call. Callers batch;
	// implementations must not be handed more ids than the service accepts
	// per request.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// RemoveTracks removes track ids from a playlist in one call.
	RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error
}

// pacer wraps every remote call with rate limiting, a per-call deadline and
// bounded retries. Rate limiting replaces the fixed sleeps the informal API
// limits used to be respected with.
type pacer struct {
	limiter *rate.Limiter
	timeout time.Duration
	retry   shared.RetryPolicy
}

func newPacer(requestsPerSecond float64, timeout time.Duration, retry shared.RetryPolicy) *pacer {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &pacer{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		timeout: timeout,
		retry:   retry,
	}
}

// call runs fn with pacing, deadline and retry applied. Each retry attempt
// waits its turn on the limiter again.
func (p *pacer) call(ctx context.Context, fn func(context.Context) error) error {
	return shared.Retry(ctx, p.retry, func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		cctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return fn(cctx)
	})
}

// ClientOpts carries pacing and retry settings shared by all service clients.
type ClientOpts struct {
	RequestsPerSecond float64
	RequestTimeout    time.Duration
	Retry             shared.RetryPolicy
}
