package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/topspot/internal/models"
	"github.com/desertthunder/topspot/internal/repositories"
	"github.com/desertthunder/topspot/internal/services"
	"github.com/desertthunder/topspot/internal/shared"
	"github.com/desertthunder/topspot/internal/tasks"
	"github.com/urfave/cli/v3"
)

const (
	defaultConfigPath = "config.toml"

	// defaultCallbackTimeout bounds how long login waits for the browser redirect.
	defaultCallbackTimeout = 2 * time.Minute
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config          *shared.Config
	configPath      string
	service         services.Service
	sessions        *repositories.SessionRepository
	db              *sql.DB
	httpClient      *http.Client
	logger          *log.Logger
	output          io.Writer
	openBrowser     shared.BrowserOpener
	callbackTimeout time.Duration
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string

	// Service defaults to a [services.SpotifyClient] built from Config when nil.
	Service services.Service

	// Sessions defaults to a repository over Config's database, opened on first use.
	Sessions *repositories.SessionRepository

	HTTPClient      *http.Client
	Logger          *log.Logger
	Output          io.Writer
	OpenBrowser     shared.BrowserOpener
	CallbackTimeout time.Duration
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
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.CallbackTimeout <= 0 {
		opts.CallbackTimeout = defaultCallbackTimeout
	}

	return &Runner{
		config:          opts.Config,
		configPath:      opts.ConfigPath,
		service:         opts.Service,
		sessions:        opts.Sessions,
		httpClient:      opts.HTTPClient,
		logger:          opts.Logger,
		output:          opts.Output,
		openBrowser:     opts.OpenBrowser,
		callbackTimeout: opts.CallbackTimeout,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, topCommand, tuiCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the session database if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.sessions = nil
	return err
}

// before applies --config, credential flags and --verbose to the runner ahead of any command action.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.IsSet("config") {
		path := cmd.String("config")
		config, err := shared.LoadConfigOrDefault(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.configPath = path
	}

	creds := &r.config.Credentials.Spotify
	if cmd.IsSet("client-id") {
		creds.ClientID = cmd.String("client-id")
	}
	if cmd.IsSet("client-secret") {
		creds.ClientSecret = cmd.String("client-secret")
	}
	if cmd.IsSet("redirect-uri") {
		creds.RedirectURI = cmd.String("redirect-uri")
	}

	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if r.service == nil {
		r.service = services.NewSpotifyClient(
			services.WithBaseURL(r.config.Provider.APIBaseURL),
			services.WithHTTPClient(r.httpClient),
		)
	}
	return ctx, nil
}

// sessionStore opens the configured database on first use, applying pending migrations.
func (r *Runner) sessionStore() (*repositories.SessionRepository, error) {
	if r.sessions != nil {
		return r.sessions, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	r.sessions = repositories.NewSessionRepository(db)
	return r.sessions, nil
}

// currentSession returns the latest live session or [shared.ErrNotAuthenticated].
func (r *Runner) currentSession() (*models.Session, error) {
	store, err := r.sessionStore()
	if err != nil {
		return nil, err
	}

	session, err := store.Latest()
	if errors.Is(err, shared.ErrSessionNotFound) {
		return nil, fmt.Errorf("%w: run 'topspot auth login' first", shared.ErrNotAuthenticated)
	}
	if err != nil {
		return nil, err
	}

	if session.Token().Expired(time.Now()) {
		r.logger.Warn("access token has expired; log in again if requests fail", "expires_at", session.Token().ExpiresAt)
	}
	return session, nil
}

func (r *Runner) aggregator() *tasks.Aggregator {
	return tasks.NewAggregator(r.service, tasks.AggregatorOpts{
		Logger:            r.logger,
		RequestsPerSecond: r.config.Fetch.RequestsPerSecond,
		StopOnShortPage:   r.config.Fetch.StopOnShortPage,
	})
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// writePayload prints the provider's error body for a failed fetch.
func (r *Runner) writePayload(err error) {
	var apiErr *services.APIError
	if !errors.As(err, &apiErr) {
		return
	}

	if data, mErr := json.MarshalIndent(apiErr.Payload(), "", "  "); mErr == nil {
		r.writePlain("Provider response (%d):\n%s\n", apiErr.StatusCode, data)
	}
}
