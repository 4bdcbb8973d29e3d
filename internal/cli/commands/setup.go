package commands

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/starpoint-labs/starpin/internal/cli/config"
	"github.com/starpoint-labs/starpin/internal/cli/output"
	"github.com/starpoint-labs/starpin/internal/engine"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	cleanup := func() {
		_ = eng.Close()
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't need workspace or state access.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// Helper functions shared across commands

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	// Fallback: read from environment with defaults
	workspace := getEnvOrDefault("STARPIN_WORKSPACE", config.DefaultWorkspaceFile)
	docsDir := getEnvOrDefault("STARPIN_DOCS_DIR", config.DefaultDocsDir)
	cacheDir := getEnvOrDefault("STARPIN_CACHE_DIR", config.DefaultCacheDir)
	verbose := os.Getenv("STARPIN_VERBOSE") == "true"
	outputFormat := os.Getenv("STARPIN_OUTPUT")

	var srcDirs []string
	if v := os.Getenv("STARPIN_SRC_DIRS"); v != "" {
		for _, dir := range strings.Split(v, ",") {
			if dir = strings.TrimSpace(dir); dir != "" {
				srcDirs = append(srcDirs, dir)
			}
		}
	}

	cfg := &config.Config{
		Workspace:    workspace,
		DocsDir:      docsDir,
		SrcDirs:      srcDirs,
		CacheDir:     cacheDir,
		Verbose:      verbose,
		OutputFormat: outputFormat,
		ProjectRoot:  filepath.Dir(workspace),
	}
	if path := os.Getenv("STARPIN_STATE__PATH"); path != "" {
		cfg.State = &config.StateConfig{Path: path}
	}
	return cfg
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	// Ensure the state directory exists when a file path is configured
	if cfg.State != nil && cfg.State.Path != "" {
		stateDir := filepath.Dir(cfg.State.Path)
		if stateDir != "." && stateDir != "" {
			if err := os.MkdirAll(stateDir, 0750); err != nil {
				return nil, err
			}
		}
	}

	engineCfg := engine.Config{
		Project: cfg.Project(),
		Logger:  logger,
	}

	return engine.New(engineCfg), nil
}
