package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/avdunn/tunesync/internal/services"
	"github.com/avdunn/tunesync/internal/shared"
	"github.com/avdunn/tunesync/internal/store"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	service services.Service
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Service services.Service // Overrides config-driven service construction when set
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:  opts.Config,
		service: opts.Service,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		syncCommand, indexCommand, catalogCommand, authCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// reloadConfig swaps in the config file named by the command's --config flag
// when it exists. A missing file at the default path is not an error; the
// embedded defaults apply.
func (r *Runner) reloadConfig(cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); err != nil {
		if cmd.IsSet("config") {
			return fmt.Errorf("%w: config file not found at %s", shared.ErrMissingConfig, path)
		}
		return nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return err
	}
	r.config = config
	return nil
}

// clientOpts derives pacing and retry settings from the loaded config.
func (r *Runner) clientOpts() services.ClientOpts {
	retry := shared.DefaultRetryPolicy
	if r.config.Sync.RetryAttempts > 0 {
		retry.MaxAttempts = r.config.Sync.RetryAttempts
	}

	return services.ClientOpts{
		RequestsPerSecond: r.config.Sync.RequestsPerSecond,
		RequestTimeout:    r.config.RequestTimeout(),
		Retry:             retry,
	}
}

// remoteService returns an authenticated service client for the configured
// remote. The client is cached for the lifetime of the Runner.
func (r *Runner) remoteService(ctx context.Context) (services.Service, error) {
	if r.service != nil {
		return r.service, nil
	}

	switch r.config.Remote.Service {
	case "", "subsonic":
		svc := services.NewSubsonicService(r.clientOpts())
		err := svc.Authenticate(ctx, map[string]string{
			"base_url": r.config.Remote.Subsonic.BaseURL,
			"username": r.config.Remote.Subsonic.Username,
			"password": r.config.Remote.Subsonic.Password,
		})
		if err != nil {
			return nil, err
		}
		r.service = svc

	case "spotify":
		svc, err := services.NewSpotifyService(map[string]string{
			"client_id":     r.config.Remote.Spotify.ClientID,
			"client_secret": r.config.Remote.Spotify.ClientSecret,
			"redirect_uri":  r.config.Remote.Spotify.RedirectURI,
		}, r.clientOpts())
		if err != nil {
			return nil, err
		}
		err = svc.Authenticate(ctx, map[string]string{
			"access_token": os.Getenv("TUNESYNC_SPOTIFY_TOKEN"),
			"auth_code":    os.Getenv("TUNESYNC_SPOTIFY_AUTH_CODE"),
		})
		if err != nil {
			return nil, err
		}
		r.service = svc

	default:
		return nil, fmt.Errorf("%w: unknown remote service %q", shared.ErrInvalidConfig, r.config.Remote.Service)
	}

	return r.service, nil
}

// stateStore opens the playlist sync state file from the configured path.
func (r *Runner) stateStore() (*store.Store, error) {
	path, err := r.config.StatePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve state path: %w", err)
	}
	return store.Open(path)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
