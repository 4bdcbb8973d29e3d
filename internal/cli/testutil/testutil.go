// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/starpoint-labs/starpin/internal/cli/output"
)

// SetupTestProject creates a temporary project with a config file, a
// workspace, doc stub pages, and Python sources. The layout matches
// what 'starpin init --example' would produce.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	files := map[string]string{
		"starpin.yaml": `workspace: WORKSPACE
docs_dir: docs
src_dirs:
  - src
state:
  backend: sqlite
  path: .starpin/state.db
`,
		"WORKSPACE": `workspace(name = "jax")

http_archive(
    name = "org_tensorflow",
    sha256 = "f1bf2f4a101a7ffbc17bb5cc2974c978c7a3e57d70a0d7280f27e1665ab24560",
    strip_prefix = "tensorflow-0e6e7a118fee84b0a8d99f439ce24a49dd65f87c",
    urls = [
        "https://storage.googleapis.com/mirror.tensorflow.org/tensorflow/archive/v0.tar.gz",
        "https://github.com/tensorflow/tensorflow/archive/v0.tar.gz",
    ],
)

git_repository(
    name = "flatbuffers",
    remote = "https://github.com/google/flatbuffers.git",
    commit = "9e7e8cbe9f675123dd41b7c62868acad39188cae",
)

load("@org_tensorflow//tensorflow:workspace.bzl", "tf_workspace")

tf_workspace(path_prefix = "", tf_repo_name = "org_tensorflow")
`,
		"docs/index.rst": `JAX reference documentation
===========================

.. toctree::
  :maxdepth: 2

  jax.numpy
`,
		"docs/jax.numpy.rst": `jax.numpy package
=================

.. currentmodule:: jax.numpy

.. autosummary::
  :toctree: _autosummary

    tanh
    add
`,
		"src/jax/__init__.py": `from . import numpy

__version__ = '0.1.46'
`,
		"src/jax/numpy.py": `def tanh(x):
  return x

def add(x, y):
  return x + y

def _promote(x):
  return x
`,
	}

	for name, content := range files {
		path := filepath.Join(tmpDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a test renderer with the specified mode.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRenderer(out, errOut, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a test renderer in text mode.
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText)
}

// NewTestRendererMarkdown creates a test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown)
}

// NewTestRendererJSON creates a test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON)
}

// Output returns the combined stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
