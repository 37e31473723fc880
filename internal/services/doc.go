// Package services defines the [Service] interface for remote music libraries
// and implements it for Subsonic-compatible servers and Spotify.
//
// # Service Interface
//
// All remote providers implement a common abstraction so the index builder,
// matcher and sync engine work uniformly across providers: full library
// traversal, free-text track search, and playlist CRUD with batched
// add/remove calls.
//
// # Subsonic Implementation
//
// [SubsonicService] talks to any Subsonic-compatible REST API (Airsonic,
// Navidrome, Gonic) using salted token authentication. Library traversal
// walks artists, then albums, then songs.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 with automatic token refresh via
// [oauth2.Config.Client]. Library traversal pages through the user's saved
// tracks.
//
// # Rate limiting and retries
//
// Every remote call is paced by a shared [rate.Limiter], bounded by a
// per-call timeout, and retried with exponential backoff for transient
// failures. HTTP 401/403 maps to [shared.ErrAuthFailed], which is fatal for
// the whole run and never retried.
package services
