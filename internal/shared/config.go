package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Remote  RemoteConfig  `toml:"remote"`
	Catalog CatalogConfig `toml:"catalog"`
	Cache   CacheConfig   `toml:"cache"`
	State   StateConfig   `toml:"state"`
	Sync    SyncConfig    `toml:"sync"`
}

// RemoteConfig selects and configures the remote music service.
type RemoteConfig struct {
	Service  string         `toml:"service"` // subsonic or spotify
	Subsonic SubsonicConfig `toml:"subsonic"`
	Spotify  SpotifyConfig  `toml:"spotify"`
}

// SubsonicConfig contains Subsonic/Airsonic server credentials.
type SubsonicConfig struct {
	BaseURL  string `toml:"base_url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// CatalogConfig points at the optional local SQLite song catalog.
type CatalogConfig struct {
	Path     string `toml:"path"`
	MusicDir string `toml:"music_dir"`
}

// CacheConfig controls the library index snapshot cache.
type CacheConfig struct {
	Dir          string `toml:"dir"`
	IndexTTLHrs  int    `toml:"index_ttl_hours"`
	ForceRebuild bool   `toml:"force_rebuild"`
}

// StateConfig controls where per-playlist sync state is persisted.
type StateConfig struct {
	Path string `toml:"path"`
}

// SyncConfig holds tunables for the matching and apply pipeline.
type SyncConfig struct {
	BatchSize         int     `toml:"batch_size"`
	RequestTimeoutSec int     `toml:"request_timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	RetryAttempts     int     `toml:"retry_attempts"`
	MatchThreshold    int     `toml:"match_threshold"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IndexTTL returns the index cache freshness threshold.
func (c *Config) IndexTTL() time.Duration {
	if c.Cache.IndexTTLHrs <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Cache.IndexTTLHrs) * time.Hour
}

// RequestTimeout returns the per-call deadline for remote requests.
func (c *Config) RequestTimeout() time.Duration {
	if c.Sync.RequestTimeoutSec <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Sync.RequestTimeoutSec) * time.Second
}

// BatchSize returns the maximum number of track ids per playlist mutation call.
func (c *Config) BatchSize() int {
	if c.Sync.BatchSize <= 0 {
		return 100
	}
	return c.Sync.BatchSize
}

// IndexCachePath resolves the library index snapshot location, defaulting to the XDG cache directory.
func (c *Config) IndexCachePath() (string, error) {
	if c.Cache.Dir != "" {
		return filepath.Join(c.Cache.Dir, "library_index.json"), nil
	}
	return xdg.CacheFile("tunesync/library_index.json")
}

// StatePath resolves the playlist sync state file, defaulting to the XDG state directory.
func (c *Config) StatePath() (string, error) {
	if c.State.Path != "" {
		return c.State.Path, nil
	}
	return xdg.StateFile("tunesync/playlists.json")
}
