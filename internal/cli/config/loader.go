package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	sharedcfg "github.com/starpoint-labs/starpin/internal/config"
)

// loggerKey is used to store logger in context.
// This key is shared with root.go via both using the same type.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// findConfigFile finds the config file to use.
// Priority: explicit path > starpin.yaml > starpin.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(sharedcfg.ConfigFileName); err == nil {
		return sharedcfg.ConfigFileName
	}
	if _, err := os.Stat(sharedcfg.ConfigFileNameAlt); err == nil {
		return sharedcfg.ConfigFileNameAlt
	}
	return ""
}

// findProjectRootUpward searches upward from startDir for a starpin config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if sharedcfg.FindConfigFile(dir) != "" {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root from CLI flags and filesystem.
// Priority:
//  1. Explicit --project-dir flag
//  2. Infer from --workspace (the workspace file's directory)
//  3. Search upward from CWD for starpin.yaml
//  4. Current working directory
func inferProjectRoot(flags *pflag.FlagSet) string {
	// 1. Check explicit --project-dir
	if flags != nil {
		if projectDir, _ := flags.GetString("project-dir"); projectDir != "" && flags.Changed("project-dir") {
			abs, err := filepath.Abs(projectDir)
			if err == nil {
				return abs
			}
			return filepath.Clean(projectDir)
		}
	}

	// 2. Infer from --workspace: the file's directory is the root
	if flags != nil {
		if wsPath, _ := flags.GetString("workspace"); wsPath != "" && flags.Changed("workspace") {
			if abs, err := filepath.Abs(wsPath); err == nil {
				return filepath.Dir(abs)
			}
		}
	}

	// 3. Search upward from CWD for starpin.yaml
	if cwd, err := os.Getwd(); err == nil {
		if root := findProjectRootUpward(cwd); root != "" {
			return root
		}
	}

	// 4. Default to CWD
	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	// Infer project root from flags before loading config. This enables
	// the anchor pattern where --workspace testdata/WORKSPACE implies
	// the project root is testdata/.
	projectRoot := inferProjectRoot(flags)

	// Track paths that were explicitly provided as flags (relative to
	// the invocation directory, not the project root). They are made
	// absolute here so an inferred root does not resolve them twice.
	var flagWorkspace, flagDocsDir, flagCacheDir, flagState string
	var flagSrcDirs []string
	if flags != nil {
		if flags.Changed("workspace") {
			if v, _ := flags.GetString("workspace"); v != "" {
				flagWorkspace, _ = filepath.Abs(v)
			}
		}
		if flags.Changed("docs-dir") {
			if v, _ := flags.GetString("docs-dir"); v != "" {
				flagDocsDir, _ = filepath.Abs(v)
			}
		}
		if flags.Changed("cache-dir") {
			if v, _ := flags.GetString("cache-dir"); v != "" {
				flagCacheDir, _ = filepath.Abs(v)
			}
		}
		if flags.Changed("state") {
			if v, _ := flags.GetString("state"); v != "" {
				flagState, _ = filepath.Abs(v)
			}
		}
		if flags.Changed("src-dir") {
			vs, _ := flags.GetStringSlice("src-dir")
			for _, v := range vs {
				if abs, err := filepath.Abs(v); err == nil {
					flagSrcDirs = append(flagSrcDirs, abs)
				}
			}
		}
	}

	// If an explicit config file is provided, use its directory as project root
	// (unless a more specific hint was given via flags)
	if cfgFile != "" && projectRoot == inferProjectRoot(nil) {
		if absPath, err := filepath.Abs(cfgFile); err == nil {
			projectRoot = filepath.Dir(absPath)
		}
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"workspace": sharedcfg.DefaultWorkspaceFile,
		"docs_dir":  sharedcfg.DefaultDocsDir,
		"verbose":   false,
		"output":    DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	// Search in project root if no explicit config file provided
	if cfgFile == "" {
		for _, name := range []string{sharedcfg.ConfigFileName, sharedcfg.ConfigFileNameAlt} {
			candidate := filepath.Join(projectRoot, name)
			if _, err := os.Stat(candidate); err == nil {
				cfgFile = candidate
				break
			}
		}
	}
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (STARPIN_ prefix)
	// Transform: STARPIN_DOCS_DIR -> docs_dir. Double underscores nest:
	// STARPIN_STATE__BACKEND -> state.backend.
	if err := k.Load(env.Provider("STARPIN_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "STARPIN_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			// Transform kebab-case to snake_case for config keys
			key := strings.ReplaceAll(f.Name, "-", "_")

			switch key {
			case "src_dir":
				// The flag is singular and repeatable; the config key is the list
				return "src_dirs", posflag.FlagVal(flags, f)
			case "state":
				// The CLI uses --state for brevity; the config nests it
				return "state.path", posflag.FlagVal(flags, f)
			}

			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Set project root and resolve relative paths against it.
	// Flag-provided paths keep their pre-computed absolute form.
	cfg.ProjectRoot = projectRoot

	if flagWorkspace != "" {
		cfg.Workspace = flagWorkspace
	} else {
		cfg.Workspace = resolvePathRelativeTo(cfg.Workspace, projectRoot)
	}
	if flagDocsDir != "" {
		cfg.DocsDir = flagDocsDir
	} else {
		cfg.DocsDir = resolvePathRelativeTo(cfg.DocsDir, projectRoot)
	}
	if flagCacheDir != "" {
		cfg.CacheDir = flagCacheDir
	} else {
		cfg.CacheDir = resolvePathRelativeTo(cfg.CacheDir, projectRoot)
	}
	if len(flagSrcDirs) > 0 {
		cfg.SrcDirs = flagSrcDirs
	} else {
		for i, dir := range cfg.SrcDirs {
			cfg.SrcDirs[i] = resolvePathRelativeTo(dir, projectRoot)
		}
	}
	if cfg.State != nil {
		if flagState != "" {
			cfg.State.Path = flagState
		} else if cfg.State.DSN == "" {
			cfg.State.Path = resolvePathRelativeTo(cfg.State.Path, projectRoot)
		}
		// Expand ${VAR} credentials so secrets stay out of the file
		expandStateEnvVars(cfg.State)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandStateEnvVars expands environment variables in sensitive state fields.
func expandStateEnvVars(s *StateConfig) {
	if s == nil {
		return
	}
	s.User = expandEnvVars(s.User)
	s.Password = expandEnvVars(s.Password)
	s.Host = expandEnvVars(s.Host)
	s.Database = expandEnvVars(s.Database)
	s.DSN = expandEnvVars(s.DSN)
}
