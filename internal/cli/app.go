// Package cli builds the cobra commands for the SPECTER content tools and
// maps their outcome to a process exit code.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/specter-content/internal/catalog"
	"github.com/book-expert/specter-content/internal/config"
	"github.com/book-expert/specter-content/internal/core"
	"github.com/book-expert/specter-content/internal/elevenlabs"
	"github.com/book-expert/specter-content/internal/fsutil"
	"github.com/book-expert/specter-content/internal/objectstore"
	"github.com/book-expert/specter-content/internal/openai"
	"github.com/book-expert/specter-content/internal/postgres"
	"github.com/book-expert/specter-content/internal/supabase"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
)

// Flag names shared by every tool.
const (
	flagConfig  = "config"
	flagCatalog = "catalog"
	flagEnvFile = "env-file"
)

// Evidence store backends.
const (
	BackendPostgREST = "postgrest"
	BackendPostgres  = "postgres"
)

const (
	errFmtBootstrapLogger = "failed to create bootstrap logger: %w"
	errFmtFinalLogger     = "failed to create final logger: %w"
	errFmtLoadConfig      = "failed to load configuration: %w"
	errFmtLoadCatalog     = "failed to load catalog: %w"
	errFmtLoadEnvFile     = "failed to load env file: %w"

	logFmtStarted       = "%s started (run %s)"
	logFmtFinished      = "%s finished (run %s) in %s"
	logFmtEnvLoaded     = "Loaded environment from %s"
	logFmtMirrorOffline = "Artifact mirror unavailable, continuing without it: %v"
	logFmtMirrorOnline  = "Mirroring artifacts to bucket %s"
)

// Static errors.
var (
	ErrUsage          = errors.New("usage error")
	ErrUnknownBackend = errors.New("unknown evidence backend")
)

// Deps are the process-level collaborators a command uses. Tests replace
// the factories and streams; DefaultDeps wires the real ones.
type Deps struct {
	Getenv func(string) string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// BootstrapLogDir receives the log written before the configuration
	// is known.
	BootstrapLogDir string

	NewSpeech        func(cfg *config.Config, apiKey string) (core.SpeechSynthesizer, error)
	NewImages        func(cfg *config.Config, apiKey string) (core.ImageSynthesizer, core.ImageDownloader, error)
	NewEvidenceStore func(ctx context.Context, cfg *config.Config, creds config.Credentials) (core.EvidenceStore, func(), error)
	ConnectArtifacts func(ctx context.Context, url, bucket string) (core.ObjectStore, func(), error)
}

// DefaultDeps returns the production wiring.
func DefaultDeps() Deps {
	return Deps{
		Getenv:           os.Getenv,
		Stdin:            os.Stdin,
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
		BootstrapLogDir:  os.TempDir(),
		NewSpeech:        newSpeech,
		NewImages:        newImages,
		NewEvidenceStore: newEvidenceStore,
		ConnectArtifacts: connectArtifacts,
	}
}

// commonFlags are registered on every tool.
type commonFlags struct {
	configPath  string
	catalogPath string
	envFile     string
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, flagConfig, "", "Path to a TOML configuration file")
	cmd.Flags().StringVar(&f.catalogPath, flagCatalog, "", "Path to a content catalog TOML file (defaults to the built-in catalog)")
	cmd.Flags().StringVar(&f.envFile, flagEnvFile, "", "Env file to load before reading credentials (defaults to paths.env_file)")
}

// session holds what a tool needs once its configuration is loaded.
type session struct {
	cfg     *config.Config
	catalog *catalog.Catalog
	log     *logger.Logger
	runID   string
	tool    string
	started time.Time
	closers []func()
}

func (s *session) close(stderr io.Writer) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}

	s.log.System(logFmtFinished, s.tool, s.runID, fsutil.FormatDuration(time.Since(s.started).Seconds()))

	err := s.log.Close()
	if err != nil {
		fmt.Fprintf(stderr, "error closing logger: %v\n", err)
	}
}

// openSession follows the bootstrap order of the services: a temporary
// logger, the configuration, then the per-tool logger under the configured
// log directory.
func openSession(deps Deps, flags *commonFlags, tool string) (*session, error) {
	bootstrapLog, err := logger.New(deps.BootstrapLogDir, tool+"-bootstrap.log")
	if err != nil {
		return nil, fmt.Errorf(errFmtBootstrapLogger, err)
	}

	defer func() { _ = bootstrapLog.Close() }()

	cfg, err := config.Load(flags.configPath, bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return nil, fmt.Errorf(errFmtLoadConfig, err)
	}

	catalogPath := flags.catalogPath
	if catalogPath == "" {
		catalogPath = cfg.Paths.CatalogFile
	}

	cat, err := loadCatalog(catalogPath)
	if err != nil {
		bootstrapLog.Error("Failed to load catalog: %v", err)

		return nil, fmt.Errorf(errFmtLoadCatalog, err)
	}

	err = fsutil.EnsureDir(cfg.Paths.BaseLogsDir)
	if err != nil {
		return nil, fmt.Errorf(errFmtFinalLogger, err)
	}

	finalLog, err := logger.New(cfg.Paths.BaseLogsDir, tool+".log")
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return nil, fmt.Errorf(errFmtFinalLogger, err)
	}

	s := &session{
		cfg:     cfg,
		catalog: cat,
		log:     finalLog,
		runID:   uuid.NewString(),
		tool:    tool,
		started: time.Now(),
	}

	envFile := flags.envFile
	if envFile == "" {
		envFile = cfg.Paths.EnvFile
	}

	loaded, err := config.LoadEnvFile(envFile)
	if err != nil {
		s.close(deps.Stderr)

		return nil, fmt.Errorf(errFmtLoadEnvFile, err)
	}

	if loaded {
		finalLog.Info(logFmtEnvLoaded, envFile)
	}

	finalLog.System(logFmtStarted, tool, s.runID)

	return s, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}

	return catalog.Load(path)
}

// openMirror connects to the artifact store. Tools call it only once their
// pre-flight checks pass, so a usage or credential error never dials out.
// It returns nil when no store is configured or it cannot be reached; a nil
// mirror is a no-op.
func (s *session) openMirror(ctx context.Context, deps Deps) *objectstore.Mirror {
	if s.cfg.Artifacts.NATSURL == "" || deps.ConnectArtifacts == nil {
		return nil
	}

	store, cleanup, err := deps.ConnectArtifacts(ctx, s.cfg.Artifacts.NATSURL, s.cfg.Artifacts.Bucket)
	if err != nil {
		s.log.Warn(logFmtMirrorOffline, err)

		return nil
	}

	s.closers = append(s.closers, cleanup)
	s.log.Info(logFmtMirrorOnline, s.cfg.Artifacts.Bucket)

	return objectstore.NewMirror(store, s.log)
}

// Execute runs cmd with a context that SIGINT and SIGTERM cancel and
// returns the exit code for its outcome.
func Execute(cmd *cobra.Command, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return ExecuteContext(ctx, cmd, stderr)
}

// ExecuteContext runs cmd under ctx and returns the exit code.
func ExecuteContext(ctx context.Context, cmd *cobra.Command, stderr io.Writer) int {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)

	return ExitError
}

func banner() string {
	return strings.Repeat("=", 60)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func newSpeech(cfg *config.Config, apiKey string) (core.SpeechSynthesizer, error) {
	client, err := elevenlabs.NewClient(elevenlabs.Options{
		BaseURL:      cfg.ElevenLabs.BaseURL,
		APIKey:       apiKey,
		ModelID:      cfg.ElevenLabs.ModelID,
		OutputFormat: cfg.ElevenLabs.OutputFormat,
		Timeout:      seconds(cfg.ElevenLabs.TimeoutSeconds),
	})
	if err != nil {
		return nil, err
	}

	return client, nil
}

func newImages(cfg *config.Config, apiKey string) (core.ImageSynthesizer, core.ImageDownloader, error) {
	client, err := openai.NewClient(openai.Options{
		BaseURL: cfg.OpenAI.BaseURL,
		APIKey:  apiKey,
		Model:   cfg.OpenAI.Model,
		Size:    cfg.OpenAI.Size,
		Quality: cfg.OpenAI.Quality,
		Timeout: seconds(cfg.OpenAI.TimeoutSeconds),
	})
	if err != nil {
		return nil, nil, err
	}

	return client, openai.NewDownloader(seconds(cfg.OpenAI.TimeoutSeconds)), nil
}

func connectArtifacts(ctx context.Context, url, bucket string) (core.ObjectStore, func(), error) {
	store, cleanup, err := objectstore.Connect(ctx, url, bucket)
	if err != nil {
		return nil, nil, err
	}

	return store, cleanup, nil
}

// evidenceCredentials names the environment variables a backend needs.
func evidenceCredentials(backend string) ([]string, error) {
	switch backend {
	case "", BackendPostgREST:
		return []string{config.EnvSupabaseURL, config.EnvSupabaseServiceKey}, nil
	case BackendPostgres:
		return []string{config.EnvDatabaseURL}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

func newEvidenceStore(
	ctx context.Context,
	cfg *config.Config,
	creds config.Credentials,
) (core.EvidenceStore, func(), error) {
	if cfg.Evidence.Backend == BackendPostgres {
		store, err := postgres.Open(ctx, creds[config.EnvDatabaseURL], cfg.Evidence.Table, cfg.Evidence.PageSize)
		if err != nil {
			return nil, nil, err
		}

		return store, func() { _ = store.Close() }, nil
	}

	store, err := supabase.NewStore(supabase.Options{
		URL:      creds[config.EnvSupabaseURL],
		Key:      creds[config.EnvSupabaseServiceKey],
		Table:    cfg.Evidence.Table,
		PageSize: cfg.Evidence.PageSize,
		Timeout:  seconds(cfg.Evidence.TimeoutSeconds),
	})
	if err != nil {
		return nil, nil, err
	}

	return store, func() {}, nil
}
