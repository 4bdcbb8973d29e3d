// Package engine orchestrates starpin operations over one project.
// It wires workspace discovery, archive fetching, pin verification, and
// documentation checks together and records their outcomes in the state
// store.
package engine

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	sharedcfg "github.com/starpoint-labs/starpin/internal/config"
	"github.com/starpoint-labs/starpin/internal/fetch"
	"github.com/starpoint-labs/starpin/internal/graph"
	"github.com/starpoint-labs/starpin/internal/registry"
	"github.com/starpoint-labs/starpin/internal/state"
	"github.com/starpoint-labs/starpin/pkg/core"
)

// Engine coordinates audits of a pinned workspace.
type Engine struct {
	cfg    core.ProjectConfig
	logger *slog.Logger

	// State store (lazy opened)
	store   core.Store
	storeMu sync.Mutex

	// Populated by Discover
	ws        *core.Workspace
	pages     []*core.Page
	modules   []*core.Module
	resolver  *registry.SymbolRegistry
	depGraph  *graph.Graph
	pageGraph *graph.Graph
}

// Config holds engine configuration.
type Config struct {
	// Project is the resolved project configuration
	Project core.ProjectConfig
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine with a lazy state store. The store is only
// opened when an operation needs to read or record audit history, so
// purely informational commands never touch the database.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Debug("initializing engine",
		"workspace", cfg.Project.Workspace,
		"docs_dir", cfg.Project.DocsDir)

	return &Engine{
		cfg:       cfg.Project,
		logger:    logger,
		depGraph:  graph.New(),
		pageGraph: graph.New(),
	}
}

// ensureStore lazily opens the state store.
func (e *Engine) ensureStore() error {
	e.storeMu.Lock()
	defer e.storeMu.Unlock()

	if e.store != nil {
		return nil
	}

	var sc core.StateConfig
	if e.cfg.State != nil {
		sc = *e.cfg.State
	}
	if sc.DSN == "" && sc.Path == "" && (sc.Backend == "" || sc.Backend == "sqlite") {
		sc.Path = filepath.Join(e.ProjectDir(), sharedcfg.DefaultStateFile)
	}

	e.logger.Debug("opening state store", "backend", sc.Backend, "path", sc.Path)

	st, err := state.Open(sc)
	if err != nil {
		return err
	}
	e.store = st
	return nil
}

// Store returns the state store, opening it on first use.
func (e *Engine) Store() (core.Store, error) {
	if err := e.ensureStore(); err != nil {
		return nil, err
	}
	return e.store, nil
}

// Close releases all resources.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	e.storeMu.Lock()
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
		e.store = nil
	}
	e.storeMu.Unlock()
	if len(errs) > 0 {
		return fmt.Errorf("errors closing engine: %v", errs)
	}
	return nil
}

// ProjectDir returns the directory that contains the workspace file.
// Relative project paths (docs, cache, state) resolve against it.
func (e *Engine) ProjectDir() string {
	if e.cfg.Workspace == "" {
		return "."
	}
	return filepath.Dir(e.cfg.Workspace)
}

// LockPath returns the lockfile path next to the workspace file.
func (e *Engine) LockPath() string {
	return filepath.Join(e.ProjectDir(), "starpin.lock")
}

// CacheDir returns the artifact cache directory.
func (e *Engine) CacheDir() string {
	if e.cfg.CacheDir != "" {
		return e.cfg.CacheDir
	}
	return filepath.Join(e.ProjectDir(), sharedcfg.DefaultCacheDir)
}

// ProjectName identifies the project in run records and reports: the
// workspace(name=) value when discovery has seen one, otherwise the
// project directory name.
func (e *Engine) ProjectName() string {
	if e.ws != nil && e.ws.Name != "" {
		return e.ws.Name
	}
	abs, err := filepath.Abs(e.ProjectDir())
	if err != nil {
		return filepath.Base(e.ProjectDir())
	}
	return filepath.Base(abs)
}

// newFetcher builds a fetcher from the project fetch configuration.
func (e *Engine) newFetcher() *fetch.Fetcher {
	fc := fetch.Config{
		CacheDir: e.CacheDir(),
		Logger:   e.logger,
	}
	if c := e.cfg.Fetch; c != nil {
		fc.Concurrency = c.Concurrency
		fc.Retries = c.Retries
		fc.Timeout = time.Duration(c.TimeoutSec) * time.Second
		fc.MaxSize = int64(c.MaxSizeMB) << 20
		fc.Mirrors = c.Mirrors
		fc.Insecure = c.Insecure
	}
	return fetch.New(fc)
}

// --- Getters (public accessors) ---

// Workspace returns the parsed workspace, or nil before Discover.
func (e *Engine) Workspace() *core.Workspace {
	return e.ws
}

// Pages returns the parsed documentation stub pages.
func (e *Engine) Pages() []*core.Page {
	return e.pages
}

// Modules returns the scanned source modules.
func (e *Engine) Modules() []*core.Module {
	return e.modules
}

// Resolver returns the symbol registry, or nil before Discover.
func (e *Engine) Resolver() *registry.SymbolRegistry {
	return e.resolver
}

// DependencyGraph returns the workspace dependency graph.
func (e *Engine) DependencyGraph() *graph.Graph {
	return e.depGraph
}

// PageGraph returns the toctree reference graph.
func (e *Engine) PageGraph() *graph.Graph {
	return e.pageGraph
}
