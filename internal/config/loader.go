// Package config holds the project configuration conventions shared by
// the CLI flag cascade and the engine: config file names, default
// locations, and config file lookup.
package config

import (
	"os"
	"path/filepath"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "starpin.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "starpin.yml"

// FindConfigFile finds the config file in the given directory.
// Returns empty string if not found.
func FindConfigFile(dir string) string {
	yamlPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}

	ymlPath := filepath.Join(dir, ConfigFileNameAlt)
	if _, err := os.Stat(ymlPath); err == nil {
		return ymlPath
	}

	return ""
}
