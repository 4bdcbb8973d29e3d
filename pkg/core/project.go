package core

// ProjectConfig holds project-level configuration.
type ProjectConfig struct {
	Workspace string        `koanf:"workspace"`
	DocsDir   string        `koanf:"docs_dir"`
	SrcDirs   []string      `koanf:"src_dirs"`
	CacheDir  string        `koanf:"cache_dir"`
	Fetch     *FetchConfig  `koanf:"fetch"`
	State     *StateConfig  `koanf:"state"`
	Lint      *LintConfig   `koanf:"lint"`
	Report    *ReportConfig `koanf:"report"`
}

// FetchConfig holds archive download configuration.
type FetchConfig struct {
	// Concurrency bounds parallel downloads within one graph level
	Concurrency int `koanf:"concurrency"`
	// Retries per URL before moving to the next mirror
	Retries int `koanf:"retries"`
	// TimeoutSec is the per-request timeout in seconds
	TimeoutSec int `koanf:"timeout_sec"`
	// MaxSizeMB aborts downloads larger than this (0 = unlimited)
	MaxSizeMB int `koanf:"max_size_mb"`
	// Mirrors are base URLs tried before a dependency's own URLs;
	// the archive's path is appended to each
	Mirrors []string `koanf:"mirrors"`
	// Insecure permits plain-http URLs without a lint override
	Insecure bool `koanf:"insecure"`
}

// StateConfig holds audit state database configuration.
type StateConfig struct {
	// Backend selects the store implementation: sqlite (default), postgres
	Backend string `koanf:"backend"`

	// File-based backend (SQLite)
	Path string `koanf:"path"`

	// Network backend (Postgres)
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
	SSLMode  string `koanf:"sslmode"`

	// DSN overrides the assembled connection string when set
	DSN string `koanf:"dsn"`
}

// LintConfig holds lint rule configuration.
type LintConfig struct {
	// Disabled contains rule IDs to disable
	Disabled []string `koanf:"disabled"`

	// Severity maps rule ID to severity override (error, warning, info)
	Severity map[string]string `koanf:"severity"`

	// Rules contains rule-specific options
	Rules map[string]RuleOptions `koanf:"rules"`
}

// RuleOptions holds rule-specific configuration options.
type RuleOptions map[string]any

// ReportConfig holds report site configuration.
type ReportConfig struct {
	OutDir string `koanf:"out_dir"`
	Title  string `koanf:"title"`
}
