package commands

import (
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/starpoint-labs/starpin/internal/engine"
)

// WatchOptions holds options for the watch command.
type WatchOptions struct {
	Offline  bool
	Severity string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run checks when project files change",
		Long: `Watch the workspace file, docs directory, and source roots, and
re-run the audit when they change.

Events are debounced. Checks run offline by default so saving a file
does not trigger downloads; pass --offline=false to fetch missing
archives on each cycle. Press Ctrl+C to stop.`,
		Example: `  # Watch with offline checks
  starpin watch

  # Fetch missing archives on each cycle
  starpin watch --offline=false`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Offline, "offline", true, "Verify against cache and lockfile only")
	cmd.Flags().StringVar(&opts.Severity, "severity", "info", "Minimum severity to display: error, warning, info")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *WatchOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer
	logger := cmdCtx.Logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCycle := func() {
		result, auditErr := eng.Audit(ctx, engine.AuditOptions{Offline: opts.Offline})
		if result == nil {
			// Broken saves happen mid-edit; report and keep watching.
			r.Error(fmt.Sprintf("Check failed: %v", auditErr))
			return
		}
		out := buildCheckOutput(result, opts.Severity)
		checkText(r, result, out, auditErr == nil)
	}

	dirs := watchDirs(cfg.Workspace, cfg)
	r.Printf("Watching %s\n", strings.Join(dirs, ", "))

	runCycle()
	r.Muted("Waiting for changes...")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range dirs {
		if err := addWatchTree(watcher, dir); err != nil {
			logger.Error("failed to watch directory", "dir", dir, "error", err)
			// Don't fail - continue without watching this dir
		}
	}

	// Debounce timer
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			r.Println("")
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !relevantWatchEvent(event.Name, cfg.Workspace) {
				continue
			}

			// New directories need watching too
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addWatchTree(watcher, event.Name)
				}
			}

			// Debounce
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(200*time.Millisecond, func() {
				if ctx.Err() != nil {
					return
				}
				r.Println("")
				r.Muted(fmt.Sprintf("%s changed %s", time.Now().Format("15:04:05"), name))
				runCycle()
				r.Muted("Waiting for changes...")
			})

		case err := <-watcher.Errors:
			logger.Error("watcher error", "error", err)
		}
	}
}

// relevantWatchEvent reports whether a changed path can affect the audit.
func relevantWatchEvent(name, workspace string) bool {
	switch filepath.Ext(name) {
	case ".rst", ".py", ".bzl":
		return true
	}
	return workspace != "" && filepath.Base(name) == filepath.Base(workspace)
}

// addWatchTree adds a directory and all subdirectories to the watcher.
// A missing directory is not an error; it may appear later.
func addWatchTree(watcher *fsnotify.Watcher, dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
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
