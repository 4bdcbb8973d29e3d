package config

// Default configuration values.
const (
	DefaultWorkspaceFile = "WORKSPACE"
	DefaultDocsDir       = "docs"
	DefaultStateFile     = ".starpin/state.db"
	DefaultCacheDir      = ".starpin/cache"
)
