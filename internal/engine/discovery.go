// discovery.go contains the unified discovery pass over the workspace
// file, the documentation tree, and the Python source roots.

package engine

import (
	"fmt"
	"os"
	"time"

	"github.com/starpoint-labs/starpin/internal/graph"
	"github.com/starpoint-labs/starpin/internal/pysrc"
	"github.com/starpoint-labs/starpin/internal/registry"
	"github.com/starpoint-labs/starpin/internal/rst"
	"github.com/starpoint-labs/starpin/internal/workspace"
)

// DiscoveryOptions configures the discovery pass.
type DiscoveryOptions struct {
	WorkspacePath string   // Override the configured workspace file
	DocsDir       string   // Override the configured docs directory
	SrcDirs       []string // Override the configured source roots
	SkipDocs      bool     // Parse only the workspace and sources
	SkipSources   bool     // Skip Python source scanning
}

// DiscoveryResult contains statistics about the discovery pass.
type DiscoveryResult struct {
	// Workspace
	Dependencies int
	Invocations  int

	// Docs
	Pages   int
	Entries int

	// Sources
	Modules       int
	PublicSymbols int

	// Errors (non-fatal)
	Errors []DiscoveryError

	// Timing
	Duration time.Duration
}

// DiscoveryError represents a non-fatal error during discovery.
type DiscoveryError struct {
	Path    string
	Type    string // "workspace", "docs", "source"
	Message string
}

// HasErrors returns true if any errors occurred.
func (r *DiscoveryResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Summary returns a human-readable summary.
func (r *DiscoveryResult) Summary() string {
	return fmt.Sprintf(
		"Dependencies: %d (%d macro invocations) | "+
			"Pages: %d (%d entries) | "+
			"Modules: %d (%d public symbols) | "+
			"Duration: %s",
		r.Dependencies, r.Invocations,
		r.Pages, r.Entries,
		r.Modules, r.PublicSymbols,
		r.Duration.Round(time.Millisecond),
	)
}

// Discover parses the workspace file, the documentation stubs, and the
// Python source roots, then builds the symbol registry and both graphs.
// This is the single source of truth for project state; it performs no
// network access and does not touch the state store.
func (e *Engine) Discover(opts DiscoveryOptions) (*DiscoveryResult, error) {
	start := time.Now()
	result := &DiscoveryResult{}

	e.logger.Info("starting discovery")

	// 1. Workspace declarations (required)
	if err := e.discoverWorkspace(opts, result); err != nil {
		return result, fmt.Errorf("workspace discovery failed: %w", err)
	}

	// 2. Documentation stub pages
	if !opts.SkipDocs {
		if err := e.discoverDocs(opts, result); err != nil {
			return result, fmt.Errorf("docs discovery failed: %w", err)
		}
	}

	// 3. Python source modules
	if !opts.SkipSources {
		if err := e.discoverSources(opts, result); err != nil {
			return result, fmt.Errorf("source discovery failed: %w", err)
		}
	}

	// 4. Symbol registry from the scanned modules. A nil resolver, not
	// an empty one, tells resolution consumers that no source tree was
	// scanned.
	if len(e.modules) > 0 {
		e.resolver = registry.Build(e.modules)
	} else {
		e.resolver = nil
	}

	// 5. Build both graphs from scratch
	if err := e.buildGraphs(); err != nil {
		return result, fmt.Errorf("graph construction failed: %w", err)
	}

	result.Duration = time.Since(start)

	e.logger.Info("discovery completed",
		"dependencies", result.Dependencies,
		"pages", result.Pages,
		"modules", result.Modules,
		"duration_ms", result.Duration.Milliseconds())

	return result, nil
}

// discoverWorkspace evaluates the workspace file into declarations.
func (e *Engine) discoverWorkspace(opts DiscoveryOptions, result *DiscoveryResult) error {
	path := e.cfg.Workspace
	if opts.WorkspacePath != "" {
		path = opts.WorkspacePath
	}
	if path == "" {
		return fmt.Errorf("no workspace file configured")
	}

	ws, err := workspace.Load(path)
	if err != nil {
		return err
	}
	e.ws = ws

	result.Dependencies = len(ws.Effective())
	result.Invocations = len(ws.Invocations)

	e.logger.Debug("workspace parsed",
		"path", path,
		"declarations", len(ws.Dependencies),
		"effective", result.Dependencies,
		"loads", len(ws.Loads))

	return nil
}

// discoverDocs walks the docs directory and parses every stub page.
// Unparseable pages are recorded as errors; the walk continues.
func (e *Engine) discoverDocs(opts DiscoveryOptions, result *DiscoveryResult) error {
	dir := e.cfg.DocsDir
	if opts.DocsDir != "" {
		dir = opts.DocsDir
	}
	if dir == "" {
		return nil // docs are optional
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		result.Errors = append(result.Errors, DiscoveryError{
			Path:    dir,
			Type:    "docs",
			Message: "docs directory does not exist",
		})
		return nil
	}

	e.pages = nil
	pages, err := rst.NewScanner(dir).ScanDir(dir, func(path string, perr error) {
		result.Errors = append(result.Errors, DiscoveryError{
			Path:    path,
			Type:    "docs",
			Message: perr.Error(),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to walk docs directory: %w", err)
	}

	e.pages = pages
	for _, page := range pages {
		result.Entries += len(page.Entries)
	}
	result.Pages = len(e.pages)

	e.logger.Debug("docs parsed",
		"dir", dir,
		"pages", result.Pages,
		"entries", result.Entries)

	return nil
}

// discoverSources scans each configured source root for Python modules.
func (e *Engine) discoverSources(opts DiscoveryOptions, result *DiscoveryResult) error {
	dirs := e.cfg.SrcDirs
	if len(opts.SrcDirs) > 0 {
		dirs = opts.SrcDirs
	}
	if len(dirs) == 0 {
		return nil // sources are optional
	}

	e.modules = nil

	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			result.Errors = append(result.Errors, DiscoveryError{
				Path:    dir,
				Type:    "source",
				Message: "source directory does not exist",
			})
			continue
		}

		scanner := pysrc.NewScanner(dir)
		modules, err := scanner.Scan()
		if err != nil {
			result.Errors = append(result.Errors, DiscoveryError{
				Path:    dir,
				Type:    "source",
				Message: err.Error(),
			})
			continue
		}
		e.modules = append(e.modules, modules...)
	}

	result.Modules = len(e.modules)
	for _, m := range e.modules {
		for _, sym := range m.Symbols {
			if sym.Public {
				result.PublicSymbols++
			}
		}
	}

	e.logger.Debug("sources scanned",
		"roots", len(dirs),
		"modules", result.Modules,
		"public_symbols", result.PublicSymbols)

	return nil
}

// buildGraphs rebuilds the dependency and page graphs.
func (e *Engine) buildGraphs() error {
	if e.ws != nil {
		g, err := graph.FromWorkspace(e.ws)
		if err != nil {
			return err
		}
		e.depGraph = g
	}

	pg, err := graph.FromPages(e.pages)
	if err != nil {
		return err
	}
	e.pageGraph = pg

	return nil
}
