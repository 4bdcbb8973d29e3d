package rst

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const moduleStub = `jax.numpy package
=================

.. currentmodule:: jax.numpy

.. automodule:: jax.numpy
  :members:

Mathematical functions
----------------------

.. autosummary::
  :toctree: _autosummary

    abs
    add
    multiply
`

func TestParseContentModuleStub(t *testing.T) {
	p := NewParser(".")
	page, err := p.ParseContent("jax.numpy.rst", moduleStub)
	require.NoError(t, err)

	assert.Equal(t, "jax.numpy", page.Path)
	assert.Equal(t, "jax.numpy package", page.Title)
	assert.Equal(t, "jax.numpy", page.Module)
	assert.Equal(t, []string{"members"}, page.AutodocOptions)

	require.Len(t, page.Sections, 2)
	assert.Equal(t, "jax.numpy package", page.Sections[0].Title)
	assert.Equal(t, 1, page.Sections[0].Pos.Line)
	assert.Equal(t, "Mathematical functions", page.Sections[1].Title)
	assert.Equal(t, 9, page.Sections[1].Pos.Line)

	require.Len(t, page.Entries, 3)

	abs := page.Entries[0]
	assert.Equal(t, "abs", abs.Name)
	assert.Equal(t, "jax.numpy", abs.Module)
	assert.Equal(t, "Mathematical functions", abs.Section)
	assert.Equal(t, "_autosummary", abs.Toctree)
	assert.Equal(t, 15, abs.Pos.Line)

	assert.Equal(t, "add", page.Entries[1].Name)
	assert.Equal(t, 16, page.Entries[1].Pos.Line)
	assert.Equal(t, "multiply", page.Entries[2].Name)
	assert.Equal(t, 17, page.Entries[2].Pos.Line)

	require.Len(t, page.Summaries, 1)
	assert.Equal(t, 3, page.Summaries[0].Entries)
	assert.Equal(t, "_autosummary", page.Summaries[0].Toctree)
	assert.Equal(t, 12, page.Summaries[0].Pos.Line)
	assert.Equal(t, 4, page.ModulePos.Line)
}

func TestParseContentEmptyAutosummary(t *testing.T) {
	content := `.. currentmodule:: jax.nn

.. autosummary::
  :toctree: _autosummary

Next section
------------
`
	p := NewParser(".")
	page, err := p.ParseContent("jax.nn.rst", content)
	require.NoError(t, err)

	assert.Empty(t, page.Entries)
	require.Len(t, page.Summaries, 1)
	assert.Equal(t, 0, page.Summaries[0].Entries)
	assert.Equal(t, 3, page.Summaries[0].Pos.Line)
}

func TestParseContentModuleSwitch(t *testing.T) {
	content := `.. currentmodule:: jax.numpy

.. autosummary::

    add

.. currentmodule:: jax.numpy.linalg

.. autosummary::

    norm
`
	p := NewParser(".")
	page, err := p.ParseContent("jax.numpy.rst", content)
	require.NoError(t, err)

	assert.Equal(t, "jax.numpy", page.Module)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "jax.numpy", page.Entries[0].Module)
	assert.Equal(t, "jax.numpy.linalg", page.Entries[1].Module)
}

func TestParseContentTocTree(t *testing.T) {
	content := `JAX reference documentation
===========================

.. toctree::
   :maxdepth: 1
   :caption: Tutorials

   notebooks/quickstart
   notebooks/autodiff_cookbook

.. toctree::
   :maxdepth: 3
   :caption: API documentation

   JAX <jax>
`
	p := NewParser(".")
	page, err := p.ParseContent("index.rst", content)
	require.NoError(t, err)

	assert.Equal(t, "JAX reference documentation", page.Title)
	require.Len(t, page.TocTrees, 2)

	tutorials := page.TocTrees[0]
	assert.Equal(t, "Tutorials", tutorials.Caption)
	assert.Equal(t, 1, tutorials.MaxDepth)
	assert.Equal(t, []string{"notebooks/quickstart", "notebooks/autodiff_cookbook"}, tutorials.Refs)
	assert.Equal(t, 4, tutorials.Pos.Line)

	api := page.TocTrees[1]
	assert.Equal(t, "API documentation", api.Caption)
	assert.Equal(t, 3, api.MaxDepth)
	// Display-title references resolve to the target
	assert.Equal(t, []string{"jax"}, api.Refs)
}

func TestParseContentFrontmatter(t *testing.T) {
	content := `---
title: Public API
module: jax.numpy
---
.. autosummary::

    tanh
`
	p := NewParser(".")
	page, err := p.ParseContent("api.rst", content)
	require.NoError(t, err)

	assert.True(t, page.HasFrontmatter)
	assert.Equal(t, "Public API", page.Title)
	assert.Equal(t, "jax.numpy", page.Module)

	require.Len(t, page.Entries, 1)
	assert.Equal(t, "tanh", page.Entries[0].Name)
	assert.Equal(t, "jax.numpy", page.Entries[0].Module)
	// Positions account for the stripped frontmatter lines
	assert.Equal(t, 7, page.Entries[0].Pos.Line)
}

func TestParseContentFrontmatterUnknownField(t *testing.T) {
	content := `---
title: Notes
unknown_thing: true
---
`
	p := NewParser(".")
	_, err := p.ParseContent("notes.rst", content)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
	assert.Contains(t, err.Error(), "notes.rst")
}

func TestParseContentOrphan(t *testing.T) {
	content := `:orphan:

Changelog
=========
`
	p := NewParser(".")
	page, err := p.ParseContent("changelog.rst", content)
	require.NoError(t, err)

	assert.True(t, page.Orphan)
	assert.Equal(t, "Changelog", page.Title)
}

func TestParseContentIgnoresUnknownDirectives(t *testing.T) {
	content := `Notes
=====

.. note::

   This block is prose, not entries.

.. autosummary::

    tanh
`
	p := NewParser(".")
	page, err := p.ParseContent("notes.rst", content)
	require.NoError(t, err)

	require.Len(t, page.Entries, 1)
	assert.Equal(t, "tanh", page.Entries[0].Name)
}

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "notes"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "_build"), 0o755))

	files := map[string]string{
		"index.rst":          "Index\n=====\n\n.. toctree::\n\n   jax.numpy\n   notes/async\n",
		"jax.numpy.rst":      moduleStub,
		"notes/async.rst":    "Async\n=====\n",
		"_build/ignored.rst": "Ignored\n=======\n",
		"notes/.hidden.rst":  "Hidden\n======\n",
		"notes/notafile.txt": "not rst",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, filepath.FromSlash(name)), []byte(content), 0o644))
	}

	s := NewScanner(dir)
	pages, err := s.ScanDir(dir, nil)
	require.NoError(t, err)

	require.Len(t, pages, 3)

	paths := make(map[string]bool)
	for _, page := range pages {
		paths[page.Path] = true
	}
	assert.True(t, paths["index"])
	assert.True(t, paths["jax.numpy"])
	assert.True(t, paths["notes/async"])
}

func TestScanDirCollectsParseErrors(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"good.rst": "Good\n====\n",
		"bad.rst":  "---\norphan: [unclosed\n---\nBad\n===\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	var failed []string
	pages, err := NewScanner(dir).ScanDir(dir, func(path string, perr error) {
		assert.Error(t, perr)
		failed = append(failed, path)
	})
	require.NoError(t, err)

	require.Len(t, pages, 1)
	assert.Equal(t, "good", pages[0].Path)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0], "bad.rst")
}

func TestScanDirStopsWithoutErrorHandler(t *testing.T) {
	dir := t.TempDir()
	content := "---\norphan: [unclosed\n---\nBad\n===\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.rst"), []byte(content), 0o644))

	_, err := NewScanner(dir).ScanDir(dir, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.rst")
}
