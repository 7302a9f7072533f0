// Package app wires together all adapters and domain logic. It resolves the
// workspace, loads the manifest, and lends each command the pieces it needs:
// engine client, history store, revision source, registry auth.
//
// Expensive members are opened on first use, so commands that never touch the
// engine (config, init, history) work without a running daemon.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/reiken/berth/internal/adapters/bbolt"
	"github.com/reiken/berth/internal/adapters/docker"
	"github.com/reiken/berth/internal/adapters/git"
	"github.com/reiken/berth/internal/manifest"
	"github.com/reiken/berth/internal/ports"
)

// Config holds initialization parameters for the App.
type Config struct {
	Dir   string // workspace directory (default: current directory)
	Debug bool   // emit structured debug logs on stderr
}

// App is the top-level container lending adapters to commands.
type App struct {
	Root  string // workspace root, absolute
	Paths *Paths
	Log   *slog.Logger

	mu       sync.Mutex
	manifest *manifest.Manifest
	engine   ports.Engine
	store    ports.Store
	vcs      ports.RevisionSource

	// Set by tests to bypass real registry calls.
	auth   ports.Authenticator
	verify ports.Verifier
}

// New resolves the workspace and prepares lazy members. It loads a `.env`
// file from the workspace root when one exists, so registry password
// variables can live next to the manifest instead of the shell profile.
func New(cfg Config) (*App, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("workspace %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace %s is not a directory", root)
	}

	log := newLogger(cfg.Debug)

	envFile := filepath.Join(root, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
		log.Debug("loaded environment file", "path", envFile)
	}

	return &App{
		Root:  root,
		Paths: NewPaths(root),
		Log:   log,
	}, nil
}

// newLogger returns a tinted debug logger, or one that discards everything.
// User-facing output never goes through here — commands print directly.
func newLogger(debug bool) *slog.Logger {
	if !debug {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.TimeOnly,
	}))
}

// Manifest loads berth.yaml from the workspace root. Cached after the first
// successful load. Returns manifest.ErrNotFound (wrapped) when the workspace
// has no manifest.
func (a *App) Manifest() (*manifest.Manifest, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.manifest != nil {
		return a.manifest, nil
	}
	m, err := manifest.Load(a.Root)
	if err != nil {
		return nil, err
	}
	a.manifest = m
	return m, nil
}

// Engine returns the container engine client, connecting on first use.
// Construction only builds the client; reachability is established by the
// first API call (or an explicit Ping).
func (a *App) Engine() (ports.Engine, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.engine != nil {
		return a.engine, nil
	}
	e, err := docker.New()
	if err != nil {
		return nil, fmt.Errorf("connect to container engine: %w", err)
	}
	a.Log.Debug("engine client ready")
	a.engine = e
	return e, nil
}

// Store opens the history database under .berth/, creating the state
// directory on first use.
func (a *App) Store() (ports.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store != nil {
		return a.store, nil
	}
	if err := a.Paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("prepare state directory: %w", err)
	}
	s, err := bbolt.NewStore(a.Paths.DB)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	a.Log.Debug("history store open", "path", a.Paths.DB)
	a.store = s
	return s, nil
}

// VCS returns the revision source for tag derivation.
func (a *App) VCS() ports.RevisionSource {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.vcs == nil {
		a.vcs = git.New()
	}
	return a.vcs
}

// Close releases the engine client and the history store. Safe to call when
// neither was ever opened.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var errs []error
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close engine: %w", err))
		}
		a.engine = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		a.store = nil
	}
	return errors.Join(errs...)
}
