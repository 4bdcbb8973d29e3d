package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/starpoint-labs/starpin/internal/api"
	"github.com/starpoint-labs/starpin/internal/cli/config"
	"github.com/starpoint-labs/starpin/internal/engine"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port  int
	Watch bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve project state as a JSON API",
		Long: `Start a local HTTP server exposing the project state as JSON.

The API reports the discovered workspace, the audit history from the
state database, documentation coverage, and lint findings. With
watching enabled the project is re-discovered on file changes and
connected clients are pinged over SSE at /api/events.

Endpoints:
  /api/status     project summary and the latest run
  /api/deps       effective declarations with verify status
  /api/runs       audit run history
  /api/coverage   per-module documentation coverage
  /api/findings   lint findings of the latest run`,
		Example: `  # Serve on the default port
  starpin serve

  # Custom port, no file watching
  starpin serve --port 3000 --watch=false`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 8765, "Port to serve on")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Re-discover the project on file changes")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer

	if _, err := eng.Discover(engine.DiscoveryOptions{}); err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	store, err := eng.Store()
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}

	wsPath := eng.Workspace().Path

	server := api.NewServer(api.Config{
		Engine:    eng,
		Store:     store,
		Port:      opts.Port,
		Watch:     opts.Watch,
		WatchDirs: watchDirs(wsPath, cmdCtx.Cfg),
		Workspace: wsPath,
		Logger:    cmdCtx.Logger,
	})

	r.Printf("Serving API on http://localhost:%d\n", opts.Port)
	r.Muted("Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx)
}

// watchDirs lists the directories whose contents feed discovery.
func watchDirs(wsPath string, cfg *config.Config) []string {
	seen := make(map[string]struct{})
	var dirs []string
	add := func(dir string) {
		if dir == "" {
			return
		}
		if _, ok := seen[dir]; ok {
			return
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}

	add(filepath.Dir(wsPath))
	add(cfg.DocsDir)
	for _, dir := range cfg.SrcDirs {
		add(dir)
	}
	return dirs
}
