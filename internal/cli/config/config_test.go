package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestFlagSet registers the same persistent flags the root command does,
// so tests exercise the exact flag names the cascade sees in production.
func newTestFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("project-dir", "", "project root directory")
	flags.String("workspace", "", "path to the WORKSPACE file")
	flags.String("docs-dir", "", "documentation source directory")
	flags.StringSlice("src-dir", nil, "Python source directory (repeatable)")
	flags.String("cache-dir", "", "artifact cache directory")
	flags.String("state", "", "state database path")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.StringP("output", "o", "", "output format")
	return flags
}

// TestLoadConfig_Defaults verifies the built-in defaults when no config
// file, env vars, or path flags are present.
func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()

	tmpDir := t.TempDir()
	flags := newTestFlagSet()
	require.NoError(t, flags.Set("project-dir", tmpDir))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tmpDir, "WORKSPACE"), cfg.Workspace)
	assert.Equal(t, filepath.Join(tmpDir, "docs"), cfg.DocsDir)
	assert.Empty(t, cfg.SrcDirs, "no source dirs unless configured")
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, tmpDir, cfg.ProjectRoot)
	assert.Nil(t, cfg.State, "state config should be absent by default")
	assert.Empty(t, GetConfigFileUsed(), "no config file should be in use")
}

// TestLoadConfig_ConfigFile verifies values read from starpin.yaml and
// that relative paths resolve against the config file's directory.
func TestLoadConfig_ConfigFile(t *testing.T) {
	ResetConfig()

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "starpin.yaml")
	cfgContent := `workspace: WORKSPACE.bazel
docs_dir: documentation
src_dirs:
  - jax
  - jaxlib
output: markdown
verbose: true
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgContent), 0600))

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tmpDir, "WORKSPACE.bazel"), cfg.Workspace)
	assert.Equal(t, filepath.Join(tmpDir, "documentation"), cfg.DocsDir)
	assert.Equal(t, []string{
		filepath.Join(tmpDir, "jax"),
		filepath.Join(tmpDir, "jaxlib"),
	}, cfg.SrcDirs)
	assert.Equal(t, "markdown", cfg.OutputFormat)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, tmpDir, cfg.ProjectRoot, "explicit config file's directory should become the project root")
	assert.Equal(t, cfgPath, GetConfigFileUsed())
}

// TestLoadConfig_EnvPrecedenceOverFile tests that env vars override the
// config file.
func TestLoadConfig_EnvPrecedenceOverFile(t *testing.T) {
	ResetConfig()

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "starpin.yaml")
	cfgContent := `docs_dir: from_file
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgContent), 0600))

	require.NoError(t, os.Setenv("STARPIN_DOCS_DIR", "from_env"))
	defer func() { _ = os.Unsetenv("STARPIN_DOCS_DIR") }()

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tmpDir, "from_env"), cfg.DocsDir, "env var should override config file")
}

// TestLoadConfig_FlagPrecedence tests that flags override env vars and
// the config file.
func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "starpin.yaml")
	cfgContent := `docs_dir: from_file
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgContent), 0600))

	require.NoError(t, os.Setenv("STARPIN_DOCS_DIR", "from_env"))
	defer func() { _ = os.Unsetenv("STARPIN_DOCS_DIR") }()

	flagDocs := filepath.Join(tmpDir, "from_flag")
	flags := newTestFlagSet()
	require.NoError(t, flags.Set("docs-dir", flagDocs))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, flagDocs, cfg.DocsDir, "flag value should override config file and env var")
}

// TestLoadConfig_FlagNotSetUsesEnv tests that unset flags fall back to
// env vars.
func TestLoadConfig_FlagNotSetUsesEnv(t *testing.T) {
	ResetConfig()

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "starpin.yaml")
	cfgContent := `docs_dir: from_file
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgContent), 0600))

	require.NoError(t, os.Setenv("STARPIN_DOCS_DIR", "from_env"))
	defer func() { _ = os.Unsetenv("STARPIN_DOCS_DIR") }()

	// Registered but never set, so Changed is false
	flags := newTestFlagSet()

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tmpDir, "from_env"), cfg.DocsDir, "env var should be used when flag is not set")
}

// TestLoadConfig_EnvNesting tests that double underscores in env var
// names map to nested config keys.
func TestLoadConfig_EnvNesting(t *testing.T) {
	ResetConfig()

	require.NoError(t, os.Setenv("STARPIN_STATE__BACKEND", "postgres"))
	require.NoError(t, os.Setenv("STARPIN_STATE__HOST", "db.internal"))
	defer func() {
		_ = os.Unsetenv("STARPIN_STATE__BACKEND")
		_ = os.Unsetenv("STARPIN_STATE__HOST")
	}()

	flags := newTestFlagSet()
	require.NoError(t, flags.Set("project-dir", t.TempDir()))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	require.NotNil(t, cfg.State)
	assert.Equal(t, "postgres", cfg.State.Backend)
	assert.Equal(t, "db.internal", cfg.State.Host)
}

// TestLoadConfig_SrcDirFlag tests that the repeatable --src-dir flag
// maps onto the src_dirs list.
func TestLoadConfig_SrcDirFlag(t *testing.T) {
	ResetConfig()

	tmpDir := t.TempDir()
	dirA := filepath.Join(tmpDir, "jax")
	dirB := filepath.Join(tmpDir, "jaxlib")

	flags := newTestFlagSet()
	require.NoError(t, flags.Set("project-dir", tmpDir))
	require.NoError(t, flags.Set("src-dir", dirA))
	require.NoError(t, flags.Set("src-dir", dirB))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, []string{dirA, dirB}, cfg.SrcDirs)
}

// TestLoadConfig_StateFlag tests that --state sets the nested state
// database path.
func TestLoadConfig_StateFlag(t *testing.T) {
	ResetConfig()

	tmpDir := t.TempDir()
	statePath := filepath.Join(tmpDir, "custom", "state.db")

	flags := newTestFlagSet()
	require.NoError(t, flags.Set("project-dir", tmpDir))
	require.NoError(t, flags.Set("state", statePath))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	require.NotNil(t, cfg.State)
	assert.Equal(t, statePath, cfg.State.Path)
}

// TestLoadConfig_WorkspaceFlagAnchorsRoot tests that --workspace implies
// the project root when --project-dir is absent.
func TestLoadConfig_WorkspaceFlagAnchorsRoot(t *testing.T) {
	ResetConfig()

	tmpDir := t.TempDir()
	wsPath := filepath.Join(tmpDir, "WORKSPACE")
	require.NoError(t, os.WriteFile(wsPath, []byte(`workspace(name = "demo")`+"\n"), 0600))

	flags := newTestFlagSet()
	require.NoError(t, flags.Set("workspace", wsPath))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, wsPath, cfg.Workspace)
	assert.Equal(t, tmpDir, cfg.ProjectRoot, "workspace file's directory should anchor the project root")
	assert.Equal(t, filepath.Join(tmpDir, "docs"), cfg.DocsDir, "defaults should resolve against the anchored root")
}

// TestLoadConfig_StateCredentialExpansion tests ${VAR} expansion in
// state connection fields.
func TestLoadConfig_StateCredentialExpansion(t *testing.T) {
	ResetConfig()

	require.NoError(t, os.Setenv("TEST_STATE_USER", "auditor"))
	require.NoError(t, os.Setenv("TEST_STATE_PASSWORD", "secret123"))
	defer func() {
		_ = os.Unsetenv("TEST_STATE_USER")
		_ = os.Unsetenv("TEST_STATE_PASSWORD")
	}()

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "starpin.yaml")
	cfgContent := `state:
  backend: postgres
  host: localhost
  user: ${TEST_STATE_USER}
  password: ${TEST_STATE_PASSWORD}
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgContent), 0600))

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	require.NotNil(t, cfg.State)
	assert.Equal(t, "auditor", cfg.State.User)
	assert.Equal(t, "secret123", cfg.State.Password)
}

// TestLoadConfig_InvalidOutput tests that a bad output format fails
// validation during load.
func TestLoadConfig_InvalidOutput(t *testing.T) {
	ResetConfig()

	flags := newTestFlagSet()
	require.NoError(t, flags.Set("project-dir", t.TempDir()))
	require.NoError(t, flags.Set("output", "xml"))

	_, err := LoadConfig("", flags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

// TestExpandEnvVars tests the expandEnvVars function.
func TestExpandEnvVars(t *testing.T) {
	// Set test environment variables
	require.NoError(t, os.Setenv("TEST_VAR_ONE", "value_one"))
	require.NoError(t, os.Setenv("TEST_VAR_TWO", "value_two"))
	defer func() {
		_ = os.Unsetenv("TEST_VAR_ONE")
		_ = os.Unsetenv("TEST_VAR_TWO")
	}()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "single variable",
			input:    "${TEST_VAR_ONE}",
			expected: "value_one",
		},
		{
			name:     "multiple variables",
			input:    "${TEST_VAR_ONE}/${TEST_VAR_TWO}",
			expected: "value_one/value_two",
		},
		{
			name:     "variable in path",
			input:    "/path/to/${TEST_VAR_ONE}/file",
			expected: "/path/to/value_one/file",
		},
		{
			name:     "unset variable stays as-is",
			input:    "${UNSET_VARIABLE}",
			expected: "${UNSET_VARIABLE}",
		},
		{
			name:     "no variables",
			input:    "plain string",
			expected: "plain string",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "mixed set and unset",
			input:    "${TEST_VAR_ONE}:${UNSET_VAR}",
			expected: "value_one:${UNSET_VAR}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandEnvVars(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// TestConfig_Validate tests the Config.Validate method.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		errSubstr string
	}{
		{
			name:    "valid minimal",
			cfg:     Config{Workspace: "WORKSPACE"},
			wantErr: false,
		},
		{
			name:      "empty workspace",
			cfg:       Config{Workspace: ""},
			wantErr:   true,
			errSubstr: "workspace is required",
		},
		{
			name:    "valid output text",
			cfg:     Config{Workspace: "WORKSPACE", OutputFormat: "text"},
			wantErr: false,
		},
		{
			name:      "invalid output format",
			cfg:       Config{Workspace: "WORKSPACE", OutputFormat: "xml"},
			wantErr:   true,
			errSubstr: "invalid output format",
		},
		{
			name:    "valid sqlite backend",
			cfg:     Config{Workspace: "WORKSPACE", State: &StateConfig{Backend: "sqlite"}},
			wantErr: false,
		},
		{
			name:    "valid postgres backend",
			cfg:     Config{Workspace: "WORKSPACE", State: &StateConfig{Backend: "postgres"}},
			wantErr: false,
		},
		{
			name:      "unknown state backend",
			cfg:       Config{Workspace: "WORKSPACE", State: &StateConfig{Backend: "mysql"}},
			wantErr:   true,
			errSubstr: "invalid state backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err, "expected error but got nil")
				if tt.errSubstr != "" {
					assert.Contains(t, err.Error(), tt.errSubstr)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestConfig_ValidateWorkspaceFile tests workspace file existence checks.
func TestConfig_ValidateWorkspaceFile(t *testing.T) {
	t.Run("existing file", func(t *testing.T) {
		tmpDir := t.TempDir()
		wsPath := filepath.Join(tmpDir, "WORKSPACE")
		require.NoError(t, os.WriteFile(wsPath, []byte(`workspace(name = "demo")`+"\n"), 0600))

		cfg := &Config{Workspace: wsPath}
		assert.NoError(t, cfg.ValidateWorkspaceFile())
	})

	t.Run("missing file", func(t *testing.T) {
		cfg := &Config{Workspace: filepath.Join(t.TempDir(), "WORKSPACE")}
		err := cfg.ValidateWorkspaceFile()
		require.Error(t, err, "expected error for missing workspace")
		assert.Contains(t, err.Error(), "does not exist")
		assert.Contains(t, err.Error(), "starpin init", "error should hint at init")
	})
}

// TestResolvePathRelativeTo tests relative path resolution.
func TestResolvePathRelativeTo(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		baseDir  string
		expected string
	}{
		{
			name:     "empty path stays empty",
			path:     "",
			baseDir:  "/project",
			expected: "",
		},
		{
			name:     "absolute path unchanged",
			path:     "/abs/WORKSPACE",
			baseDir:  "/project",
			expected: "/abs/WORKSPACE",
		},
		{
			name:     "relative path joined",
			path:     "docs",
			baseDir:  "/project",
			expected: "/project/docs",
		},
		{
			name:     "nested relative path",
			path:     "build/WORKSPACE",
			baseDir:  "/project",
			expected: "/project/build/WORKSPACE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolvePathRelativeTo(tt.path, tt.baseDir)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// TestFindProjectRootUpward tests upward config file search.
func TestFindProjectRootUpward(t *testing.T) {
	t.Run("finds config in ancestor", func(t *testing.T) {
		tmpDir := t.TempDir()
		nested := filepath.Join(tmpDir, "a", "b", "c")
		require.NoError(t, os.MkdirAll(nested, 0750))

		cfgPath := filepath.Join(tmpDir, "starpin.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("docs_dir: docs\n"), 0600))

		got := findProjectRootUpward(nested)
		assert.Equal(t, tmpDir, got)
	})

	t.Run("returns empty when absent", func(t *testing.T) {
		got := findProjectRootUpward(t.TempDir())
		assert.Empty(t, got)
	})
}

// TestInferProjectRoot_ProjectDirFlag tests that --project-dir takes
// priority over all inference.
func TestInferProjectRoot_ProjectDirFlag(t *testing.T) {
	tmpDir := t.TempDir()

	flags := newTestFlagSet()
	require.NoError(t, flags.Set("project-dir", tmpDir))
	// A workspace flag would otherwise anchor the root elsewhere
	require.NoError(t, flags.Set("workspace", filepath.Join(t.TempDir(), "WORKSPACE")))

	got := inferProjectRoot(flags)
	assert.Equal(t, tmpDir, got)
}

// TestGetCurrentConfig tests config caching across a load.
func TestGetCurrentConfig(t *testing.T) {
	ResetConfig()
	assert.Nil(t, GetCurrentConfig(), "no config before loading")

	flags := newTestFlagSet()
	require.NoError(t, flags.Set("project-dir", t.TempDir()))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, cfg, GetCurrentConfig())
}

// TestConfig_Project tests the engine-facing projection.
func TestConfig_Project(t *testing.T) {
	cfg := &Config{
		Workspace: "/p/WORKSPACE",
		DocsDir:   "/p/docs",
		SrcDirs:   []string{"/p/jax"},
		CacheDir:  "/p/.starpin/cache",
		State:     &StateConfig{Backend: "sqlite", Path: "/p/.starpin/state.db"},
	}

	proj := cfg.Project()

	assert.Equal(t, "/p/WORKSPACE", proj.Workspace)
	assert.Equal(t, "/p/docs", proj.DocsDir)
	assert.Equal(t, []string{"/p/jax"}, proj.SrcDirs)
	assert.Equal(t, "/p/.starpin/cache", proj.CacheDir)
	require.NotNil(t, proj.State)
	assert.Equal(t, "sqlite", proj.State.Backend)
}

// TestGetLogger tests logger retrieval from context.
func TestGetLogger(t *testing.T) {
	t.Run("returns stored logger", func(t *testing.T) {
		logger := slog.New(slog.DiscardHandler)
		ctx := context.WithValue(context.Background(), LoggerKey(), logger)
		assert.Same(t, logger, GetLogger(ctx))
	})

	t.Run("falls back to discard logger", func(t *testing.T) {
		got := GetLogger(context.Background())
		require.NotNil(t, got, "fallback logger must not be nil")
	})
}
