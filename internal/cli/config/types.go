// Package config provides configuration management for the starpin CLI.
//
// It extends the shared configuration types from pkg/core with
// CLI-specific fields and the full load cascade: defaults, config file,
// environment variables, then flags. The shared types are re-exported
// via type aliases for convenience.
package config

import (
	sharedcfg "github.com/starpoint-labs/starpin/internal/config"
	"github.com/starpoint-labs/starpin/pkg/core"
)

// FetchConfig is an alias for the shared fetch configuration.
type FetchConfig = core.FetchConfig

// StateConfig is an alias for the shared state configuration.
type StateConfig = core.StateConfig

// LintConfig is an alias for the shared lint configuration.
type LintConfig = core.LintConfig

// RuleOptions is an alias for the shared rule options type.
type RuleOptions = core.RuleOptions

// ReportConfig is an alias for the shared report configuration.
type ReportConfig = core.ReportConfig

// Config holds all CLI configuration options.
type Config struct {
	Workspace    string        `koanf:"workspace"`
	DocsDir      string        `koanf:"docs_dir"`
	SrcDirs      []string      `koanf:"src_dirs"`
	CacheDir     string        `koanf:"cache_dir"`
	Verbose      bool          `koanf:"verbose"`
	OutputFormat string        `koanf:"output"`
	Fetch        *FetchConfig  `koanf:"fetch"`
	State        *StateConfig  `koanf:"state"`
	Lint         *LintConfig   `koanf:"lint"`
	Report       *ReportConfig `koanf:"report"`

	// ProjectRoot is the resolved project directory; never read from a
	// config source.
	ProjectRoot string `koanf:"-"`
}

// Project assembles the engine-facing project configuration.
func (c *Config) Project() core.ProjectConfig {
	return core.ProjectConfig{
		Workspace: c.Workspace,
		DocsDir:   c.DocsDir,
		SrcDirs:   c.SrcDirs,
		CacheDir:  c.CacheDir,
		Fetch:     c.Fetch,
		State:     c.State,
		Lint:      c.Lint,
		Report:    c.Report,
	}
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultWorkspaceFile = sharedcfg.DefaultWorkspaceFile
	DefaultDocsDir       = sharedcfg.DefaultDocsDir
	DefaultStateFile     = sharedcfg.DefaultStateFile
	DefaultCacheDir      = sharedcfg.DefaultCacheDir
	DefaultOutput        = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)
