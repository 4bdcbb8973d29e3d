package config

import (
	"fmt"
	"os"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Workspace == "" {
		return fmt.Errorf("workspace is required")
	}

	switch c.OutputFormat {
	case "", "auto", "text", "markdown", "json":
	default:
		return fmt.Errorf("invalid output format %q (valid: auto, text, markdown, json)", c.OutputFormat)
	}

	if c.State != nil {
		switch c.State.Backend {
		case "", "sqlite", "postgres":
		default:
			return fmt.Errorf("invalid state backend %q (valid: sqlite, postgres)", c.State.Backend)
		}
	}

	return nil
}

// ValidateWorkspaceFile checks that the workspace file exists.
// Only commands that read the workspace call this, so help and
// scaffolding commands work without one.
func (c *Config) ValidateWorkspaceFile() error {
	if _, err := os.Stat(c.Workspace); os.IsNotExist(err) {
		return fmt.Errorf("workspace file does not exist: %s\nHint: run starpin init, or point --workspace at your WORKSPACE file", c.Workspace)
	}
	return nil
}
