package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gookit/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/scaii/sky-install/pkg/config"
	"github.com/scaii/sky-install/pkg/lock"
	"github.com/scaii/sky-install/pkg/platform"
	"github.com/scaii/sky-install/pkg/provision"
	"github.com/scaii/sky-install/pkg/source"
	"github.com/scaii/sky-install/pkg/stores"
	"github.com/scaii/sky-install/pkg/telemetry"
)

// appMode selects which shared resources a command needs.
type appMode struct {
	// history opens the run history database.
	history bool
	// mutate takes the installation lock and builds the orchestrator.
	mutate bool
}

// app is the wiring shared by the commands of one invocation.
type app struct {
	cfg       *config.Config
	layout    provision.Layout
	platform  platform.Platform
	telemetry *telemetry.Telemetry
	store     *stores.SQLiteStore
	lock      *lock.Lock
	out       io.Writer
	mode      appMode

	orchestrator *provision.Orchestrator
}

func newApp(cmd *cobra.Command, opts *globalOptions, mode appMode) (*app, error) {
	ctx := cmd.Context()

	cfgPath, explicit := opts.configPath, opts.configPath != ""
	if !explicit {
		home, err := defaultHome()
		if err != nil {
			return nil, err
		}
		cfgPath = config.DefaultPath(home)
	}

	cfg, err := config.Load(cfgPath, explicit)
	if err != nil {
		return nil, err
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	configureGlobalLogger(cfg.Logging, cmd.ErrOrStderr())

	layout, err := provision.ResolveLayout(cfg.Home)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		layout: layout,
		out:    cmd.OutOrStdout(),
		mode:   mode,
	}

	a.platform, err = platform.Current(a.out)
	if err != nil {
		return nil, err
	}

	a.telemetry, err = telemetry.NewTelemetryWithWriter(telemetryConfig(cfg, opts.version), cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	if mode.mutate && cfg.Lock.Enabled {
		a.lock, err = lock.Acquire(layout.LockPath())
		if err != nil {
			a.close(ctx)
			if errors.Is(err, lock.ErrLocked) {
				return nil, &provision.InstallError{Kind: provision.ErrorKindPrecondition, Err: err}
			}
			return nil, err
		}
	}

	if mode.history && cfg.History.Enabled {
		if err := a.openStore(ctx); err != nil {
			a.close(ctx)
			return nil, err
		}
	}

	if mode.mutate {
		a.orchestrator = provision.NewOrchestrator(a.installer(cmd.ErrOrStderr()), a.recorder(), a.telemetry)
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	path := a.cfg.History.Path
	if path == "" {
		path = a.layout.HistoryPath()
	}

	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return err
	}
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to migrate history: %w", err)
	}
	a.store = store
	return nil
}

// recorder returns the store as a Recorder, or nil when history is off.
func (a *app) recorder() provision.Recorder {
	if a.store == nil {
		return nil
	}
	return a.store
}

func (a *app) installer(progress io.Writer) *provision.Installer {
	if f, ok := progress.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		progress = nil
	}

	git := source.NewGit(a.platform, a.cfg.Tools.Git)
	return &provision.Installer{
		Layout:   a.layout,
		Platform: a.platform,
		Git:      git,
		Vendor: &source.Vendor{
			Git:        git,
			Downloader: source.NewDownloader(progress),
			Trees:      a.platform,
		},
		Cargo:  a.cfg.Tools.Cargo,
		Notify: a.notice,
	}
}

// close releases everything newApp acquired. It runs after the command
// even when the context was cancelled.
func (a *app) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if a.store != nil {
		if a.mode.mutate && a.cfg.History.Keep > 0 {
			if n, err := a.store.PruneRuns(ctx, a.cfg.History.Keep); err != nil {
				log.Warn().Err(err).Msg("Failed to prune run history")
			} else if n > 0 {
				log.Debug().Int64("runs", n).Msg("Pruned run history")
			}
		}
		if err := a.store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close run history")
		}
	}

	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to flush telemetry")
		}
	}

	if err := a.lock.Release(); err != nil {
		log.Warn().Err(err).Str("path", a.lock.Path()).Msg("Failed to release lock")
	}
}

func (a *app) notice(msg string) {
	fmt.Fprintln(a.out, color.Info.Sprint(msg))
}

func (a *app) warn(msg string) {
	fmt.Fprintln(a.out, color.Warn.Sprint(msg))
}

// configureGlobalLogger applies the configured level and format to the
// global zerolog logger used outside of a command pipeline.
func configureGlobalLogger(cfg config.LoggingConfig, w io.Writer) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
}

func telemetryConfig(cfg *config.Config, version string) *telemetry.Config {
	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceVersion = version
	tcfg.Logging.Level = cfg.Logging.Level
	tcfg.Logging.Format = cfg.Logging.Format
	tcfg.Tracing.Enabled = cfg.Tracing.Enabled
	tcfg.Tracing.Exporter = cfg.Tracing.Exporter
	tcfg.Tracing.Endpoint = cfg.Tracing.Endpoint
	tcfg.Metrics.Enabled = cfg.Metrics.Enabled
	tcfg.Metrics.Textfile = cfg.Metrics.Textfile
	return tcfg
}

// defaultHome is the home used to locate the config file before the
// config itself can override it.
func defaultHome() (string, error) {
	if home, ok := os.LookupEnv(config.EnvPrefix + "HOME"); ok && home != "" {
		return home, nil
	}
	layout, err := provision.ResolveLayout("")
	if err != nil {
		return "", err
	}
	return layout.Home, nil
}
