// Package api serves project state over HTTP as JSON for dashboards.
//
// The server is read-only: it reports on the discovered workspace, the
// audit history in the state database, and documentation coverage. With
// watching enabled it re-discovers the project on file changes and pings
// subscribed clients over SSE.
package api

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/starpoint-labs/starpin/internal/engine"
	"github.com/starpoint-labs/starpin/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Server is the JSON API server.
type Server struct {
	// mu guards engine reads against concurrent re-discovery.
	mu        sync.RWMutex
	engine    *engine.Engine
	store     core.Store
	port      int
	watch     bool
	watchDirs []string
	workspace string
	logger    *slog.Logger
	notifier  *Notifier
}

// Config holds configuration for the API server.
type Config struct {
	Engine *engine.Engine
	Store  core.Store
	Port   int
	Watch  bool
	// WatchDirs are watched recursively when Watch is set.
	WatchDirs []string
	// Workspace is the workspace file path, used to match change events.
	Workspace string
	Logger    *slog.Logger
}

// NewServer creates a new API server instance.
func NewServer(cfg Config) *Server {
	return &Server{
		engine:    cfg.Engine,
		store:     cfg.Store,
		port:      cfg.Port,
		watch:     cfg.Watch,
		watchDirs: cfg.WatchDirs,
		workspace: cfg.Workspace,
		logger:    cfg.Logger,
		notifier:  NewNotifier(),
	}
}

// Serve starts the API server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting API server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)
	s.routes(r)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start file watcher if enabled
	if s.watch {
		eg.Go(func() error {
			return s.watchFiles(egctx)
		})
	}

	// Start HTTP server
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *Notifier {
	return s.notifier
}

// watchFiles watches the project directories and re-discovers on change.
func (s *Server) watchFiles(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range s.watchDirs {
		if err := watchDirRecursive(watcher, dir); err != nil {
			s.logger.Error("failed to watch directory", "dir", dir, "error", err)
			// Don't fail - continue without watching this dir
		}
	}

	// Debounce timer
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !s.relevantChange(event.Name) {
				continue
			}

			// Debounce
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				s.rediscover(name)
			})

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// relevantChange reports whether a changed path can affect discovery.
func (s *Server) relevantChange(name string) bool {
	switch filepath.Ext(name) {
	case ".rst", ".py", ".bzl":
		return true
	}
	return s.workspace != "" && filepath.Base(name) == filepath.Base(s.workspace)
}

func (s *Server) rediscover(name string) {
	s.logger.Debug("file changed, re-discovering", "file", name)

	s.mu.Lock()
	_, err := s.engine.Discover(engine.DiscoveryOptions{})
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("discover failed", "error", err)
		return
	}

	// Notify all SSE clients
	s.notifier.Broadcast()
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
