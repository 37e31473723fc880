package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/avdunn/tunesync/internal/server"
	"github.com/avdunn/tunesync/internal/services"
	"github.com/avdunn/tunesync/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthSpotify runs the OAuth2 authorization code flow for Spotify. A
// temporary callback server on the configured redirect port receives the
// code, exchanges it for a token, and prints export instructions.
func (r *Runner) AuthSpotify(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd); err != nil {
		return err
	}

	svc, err := services.NewSpotifyService(map[string]string{
		"client_id":     r.config.Remote.Spotify.ClientID,
		"client_secret": r.config.Remote.Spotify.ClientSecret,
		"redirect_uri":  r.config.Remote.Spotify.RedirectURI,
	}, r.clientOpts())
	if err != nil {
		return err
	}

	redirect, err := url.Parse(svc.OAuthConfig().RedirectURL)
	if err != nil {
		return fmt.Errorf("%w: invalid redirect_uri: %v", shared.ErrInvalidConfig, err)
	}

	state := shared.GenerateID()
	handler := server.NewOAuthHandler(svc.OAuthConfig(), state)

	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(handler)

	srv := &http.Server{Addr: redirect.Host, Handler: router}
	go func() {
		if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			handler.Send(server.OAuthResult{})
			r.logger.Error("callback server failed", "error", serveErr)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	r.writePlainln("Open this URL in your browser to authorize:")
	r.writePlain("%s\n", svc.GetAuthURL(state))

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := result.Error(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if result.Token == nil {
		return fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	r.writePlainln("Authorization successful.")
	r.writePlain("Export the token before running sync commands:\n\n")
	return r.writePlain("  export TUNESYNC_SPOTIFY_TOKEN=%s\n", result.Token.AccessToken)
}
