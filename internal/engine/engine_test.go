package engine

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starpoint-labs/starpin/internal/fetch"
	"github.com/starpoint-labs/starpin/internal/lockfile"
	"github.com/starpoint-labs/starpin/internal/testutil"
	"github.com/starpoint-labs/starpin/pkg/core"
)

const testWorkspace = `workspace(name = "jax")

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
`

var testDocs = map[string]string{
	"docs/index.rst": `JAX reference documentation
===========================

.. toctree::
  :maxdepth: 2

  jax.numpy
  jax.nn
`,
	"docs/jax.numpy.rst": `jax.numpy package
=================

.. currentmodule:: jax.numpy

.. autosummary::
  :toctree: _autosummary

    tanh
    add
`,
	"docs/jax.nn.rst": `jax.nn package
==============

.. currentmodule:: jax.nn

.. autosummary::
  :toctree: _autosummary

    relu
    softmax
`,
}

var testSources = map[string]string{
	"src/jax/__init__.py": `from . import nn
from . import numpy

__version__ = '0.1.46'
`,
	"src/jax/numpy.py": `def tanh(x):
  return x

def add(x, y):
  return x + y

def _promote(x):
  return x
`,
	"src/jax/nn.py": `def relu(x):
  return x

def softmax(x):
  return x
`,
}

// writeProject materializes a project tree in a temp dir.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

// basicProject assembles workspace, docs, and sources in one tree.
func basicProject(t *testing.T) string {
	t.Helper()
	files := map[string]string{"WORKSPACE": testWorkspace}
	for name, content := range testDocs {
		files[name] = content
	}
	for name, content := range testSources {
		files[name] = content
	}
	return writeProject(t, files)
}

func projectConfig(root string) core.ProjectConfig {
	return core.ProjectConfig{
		Workspace: filepath.Join(root, "WORKSPACE"),
		DocsDir:   filepath.Join(root, "docs"),
		SrcDirs:   []string{filepath.Join(root, "src")},
		CacheDir:  filepath.Join(root, "cache"),
		State: &core.StateConfig{
			Backend: "sqlite",
			Path:    filepath.Join(root, "state.db"),
		},
	}
}

func newTestEngine(t *testing.T, cfg core.ProjectConfig) *Engine {
	t.Helper()
	e := New(Config{Project: cfg, Logger: testutil.NewTestLogger(t)})
	t.Cleanup(func() {
		require.NoError(t, e.Close())
	})
	return e
}

// serveArchive builds a tar.gz with one file under a versioned prefix
// and serves it over HTTP. Returns the server, the archive URL path,
// and the archive digest.
func serveArchive(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jax_support.tar.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	body := "def helper():\n  return 1\n"
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "jax_support-1.0/helpers.py",
		Mode: 0o644,
		Size: int64(len(body)),
	}))
	_, err = tw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv, fetch.HashBytes(data)
}

// fetchableWorkspace declares one archive served by the test server and
// one git repository that cannot be fetched over HTTP.
func fetchableWorkspace(url, sha256 string) string {
	return fmt.Sprintf(`workspace(name = "jax")

http_archive(
    name = "jax_support",
    sha256 = "%s",
    strip_prefix = "jax_support-1.0",
    urls = ["%s/jax_support.tar.gz"],
)

git_repository(
    name = "flatbuffers",
    remote = "https://github.com/google/flatbuffers.git",
    commit = "9e7e8cbe9f675123dd41b7c62868acad39188cae",
)
`, sha256, url)
}

func checksByKind(checks []*core.Check, kind core.CheckKind) []*core.Check {
	var out []*core.Check
	for _, c := range checks {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func TestDiscover(t *testing.T) {
	root := basicProject(t)
	e := newTestEngine(t, projectConfig(root))

	result, err := e.Discover(DiscoveryOptions{})
	require.NoError(t, err)
	require.False(t, result.HasErrors(), "unexpected errors: %+v", result.Errors)

	assert.Equal(t, 2, result.Dependencies)
	assert.Equal(t, 1, result.Invocations)
	assert.Equal(t, 3, result.Pages)
	assert.Equal(t, 4, result.Entries)
	assert.Equal(t, 3, result.Modules)
	assert.Greater(t, result.PublicSymbols, 0)
	assert.Contains(t, result.Summary(), "Dependencies: 2")

	require.NotNil(t, e.Workspace())
	assert.Equal(t, "jax", e.Workspace().Name)

	require.NotNil(t, e.Resolver())
	sym, ok := e.Resolver().Resolve("jax.numpy", "tanh")
	require.True(t, ok)
	assert.Equal(t, core.SymbolFunction, sym.Kind)

	_, ok = e.DependencyGraph().Node("org_tensorflow")
	assert.True(t, ok)
	_, ok = e.DependencyGraph().Node("tf_workspace()")
	assert.True(t, ok)
	_, ok = e.PageGraph().Node("jax.numpy")
	assert.True(t, ok)
}

func TestDiscoverNoWorkspaceConfigured(t *testing.T) {
	e := newTestEngine(t, core.ProjectConfig{})

	_, err := e.Discover(DiscoveryOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no workspace file configured")
}

func TestDiscoverMissingWorkspaceFile(t *testing.T) {
	root := t.TempDir()
	e := newTestEngine(t, projectConfig(root))

	_, err := e.Discover(DiscoveryOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workspace discovery failed")
}

func TestDiscoverMissingOptionalDirs(t *testing.T) {
	root := writeProject(t, map[string]string{"WORKSPACE": testWorkspace})
	e := newTestEngine(t, projectConfig(root))

	result, err := e.Discover(DiscoveryOptions{})
	require.NoError(t, err)

	// Missing docs and source dirs are recorded, not fatal.
	require.True(t, result.HasErrors())
	types := make(map[string]int)
	for _, derr := range result.Errors {
		types[derr.Type]++
	}
	assert.Equal(t, 1, types["docs"])
	assert.Equal(t, 1, types["source"])

	assert.Equal(t, 2, result.Dependencies)
	assert.Zero(t, result.Pages)
	assert.Nil(t, e.Resolver())
}

func TestDiscoverSkipFlags(t *testing.T) {
	root := basicProject(t)
	e := newTestEngine(t, projectConfig(root))

	result, err := e.Discover(DiscoveryOptions{SkipDocs: true, SkipSources: true})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Dependencies)
	assert.Zero(t, result.Pages)
	assert.Zero(t, result.Modules)
	assert.Nil(t, e.Resolver())
}

func TestFetch(t *testing.T) {
	srv, digest := serveArchive(t)
	root := writeProject(t, map[string]string{
		"WORKSPACE": fetchableWorkspace(srv.URL, digest),
	})
	e := newTestEngine(t, projectConfig(root))

	_, err := e.Discover(DiscoveryOptions{})
	require.NoError(t, err)

	result, err := e.Fetch(context.Background(), FetchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Fetched())
	assert.Empty(t, result.Failed())
	assert.Equal(t, []string{"flatbuffers"}, result.Skipped)

	require.Len(t, result.Results, 1)
	res := result.Results[0]
	assert.Equal(t, "jax_support", res.Name)
	assert.Equal(t, digest, res.SHA256)
	assert.FileExists(t, res.Path)

	// The artifact is recorded for later runs.
	store, err := e.Store()
	require.NoError(t, err)
	artifact, err := store.GetArtifact("jax_support")
	require.NoError(t, err)
	require.NotNil(t, artifact)
	assert.Equal(t, digest, artifact.SHA256)

	// A second fetch is served from the cache.
	again, err := e.Fetch(context.Background(), FetchOptions{})
	require.NoError(t, err)
	require.Len(t, again.Results, 1)
	assert.True(t, again.Results[0].Cached)
}

func TestFetchUnknownDependency(t *testing.T) {
	root := basicProject(t)
	e := newTestEngine(t, projectConfig(root))

	_, err := e.Discover(DiscoveryOptions{})
	require.NoError(t, err)

	_, err = e.Fetch(context.Background(), FetchOptions{Deps: []string{"nope"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown dependency "nope"`)
}

func TestFetchRequiresDiscovery(t *testing.T) {
	root := basicProject(t)
	e := newTestEngine(t, projectConfig(root))

	_, err := e.Fetch(context.Background(), FetchOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workspace not discovered")
}

func TestFetchPlanLevels(t *testing.T) {
	// flatbuffers takes its build file from jax_support, so jax_support
	// must download in an earlier batch.
	content := `workspace(name = "jax")

http_archive(
    name = "jax_support",
    sha256 = "aaa",
    urls = ["https://example.com/support.tar.gz"],
)

http_archive(
    name = "flatbuffers",
    sha256 = "bbb",
    urls = ["https://example.com/flatbuffers.tar.gz"],
    build_file = "@jax_support//third_party:flatbuffers.BUILD",
)
`
	root := writeProject(t, map[string]string{"WORKSPACE": content})
	e := newTestEngine(t, projectConfig(root))

	_, err := e.Discover(DiscoveryOptions{SkipDocs: true, SkipSources: true})
	require.NoError(t, err)

	deps, skipped, err := e.selectDeps(nil, false)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, deps, 2)

	plan := e.fetchPlan(deps)
	require.Len(t, plan, 2)
	require.Len(t, plan[0], 1)
	assert.Equal(t, "jax_support", plan[0][0].Name)
	require.Len(t, plan[1], 1)
	assert.Equal(t, "flatbuffers", plan[1][0].Name)
}

func TestFetchExtract(t *testing.T) {
	srv, digest := serveArchive(t)
	root := writeProject(t, map[string]string{
		"WORKSPACE": fetchableWorkspace(srv.URL, digest),
	})
	e := newTestEngine(t, projectConfig(root))

	_, err := e.Discover(DiscoveryOptions{})
	require.NoError(t, err)

	result, err := e.Fetch(context.Background(), FetchOptions{Extract: true})
	require.NoError(t, err)

	dest, ok := result.Extracted["jax_support"]
	require.True(t, ok)
	// strip_prefix removes the versioned top-level directory
	assert.FileExists(t, filepath.Join(dest, "helpers.py"))
}

func TestVerify(t *testing.T) {
	srv, digest := serveArchive(t)
	root := writeProject(t, map[string]string{
		"WORKSPACE": fetchableWorkspace(srv.URL, digest),
	})
	e := newTestEngine(t, projectConfig(root))

	_, err := e.Discover(DiscoveryOptions{})
	require.NoError(t, err)

	// Before fetching: the archive is missing, the git pin is fine.
	result, err := e.Verify()
	require.NoError(t, err)
	require.Len(t, result.Checks, 2)
	assert.False(t, result.LockPresent)

	byName := make(map[string]*Verification)
	for _, v := range result.Checks {
		byName[v.Name] = v
	}
	assert.Equal(t, VerifyMissing, byName["jax_support"].Status)
	assert.Equal(t, VerifyOK, byName["flatbuffers"].Status)
	assert.True(t, result.OK(), "missing artifacts are warnings, not failures")

	// After fetching everything verifies clean.
	_, err = e.Fetch(context.Background(), FetchOptions{})
	require.NoError(t, err)

	result, err = e.Verify()
	require.NoError(t, err)
	for _, v := range result.Checks {
		assert.Equal(t, VerifyOK, v.Status, "dependency %s", v.Name)
	}

	// Corrupt the cached artifact; verification must catch it.
	cache := fetch.NewCache(e.CacheDir())
	require.NoError(t, os.WriteFile(cache.Path(digest), []byte("tampered"), 0o644))

	result, err = e.Verify()
	require.NoError(t, err)
	require.Len(t, result.Failed(), 1)
	failed := result.Failed()[0]
	assert.Equal(t, "jax_support", failed.Name)
	assert.Equal(t, VerifyMismatch, failed.Status)
	assert.NotEqual(t, digest, failed.Actual)
	assert.False(t, result.OK())
}

func TestVerifyUnpinnedAndDrift(t *testing.T) {
	root := writeProject(t, map[string]string{
		"WORKSPACE": `workspace(name = "jax")

http_archive(
    name = "org_tensorflow",
    urls = ["https://github.com/tensorflow/tensorflow/archive/v0.tar.gz"],
)
`,
	})
	e := newTestEngine(t, projectConfig(root))

	_, err := e.Discover(DiscoveryOptions{})
	require.NoError(t, err)

	result, err := e.Verify()
	require.NoError(t, err)
	require.Len(t, result.Checks, 1)
	assert.Equal(t, VerifyUnpinned, result.Checks[0].Status)
	require.Len(t, result.Warnings(), 1)

	// A lockfile that pins a sha the workspace stopped declaring, plus
	// an entry for a dependency that no longer exists.
	lock := &lockfile.Lock{
		Version: 1,
		Dependencies: []lockfile.Entry{
			{Name: "org_tensorflow", Kind: "http_archive", SHA256: "aaaa"},
			{Name: "gone", Kind: "http_archive", SHA256: "bbbb"},
		},
	}
	require.NoError(t, lockfile.Write(e.LockPath(), lock))

	result, err = e.Verify()
	require.NoError(t, err)
	assert.True(t, result.LockPresent)

	byName := make(map[string]*Verification)
	for _, v := range result.Checks {
		byName[v.Name] = v
	}
	// Unpinned wins over drift: there is no declared sha to compare.
	assert.Equal(t, VerifyUnpinned, byName["org_tensorflow"].Status)
	require.NotNil(t, byName["gone"])
	assert.Equal(t, VerifyDrift, byName["gone"].Status)
	assert.Contains(t, byName["gone"].Detail, "no longer declared")
}

func TestWriteLockAndCheckLock(t *testing.T) {
	root := basicProject(t)
	e := newTestEngine(t, projectConfig(root))

	_, err := e.Discover(DiscoveryOptions{})
	require.NoError(t, err)

	// No lockfile yet: checking is an error, writing creates one.
	_, err = e.CheckLock()
	require.Error(t, err)

	outcome, err := e.WriteLock()
	require.NoError(t, err)
	assert.Nil(t, outcome.Diff)
	assert.FileExists(t, outcome.Path)
	require.Len(t, outcome.Lock.Dependencies, 2)

	// Same declarations: no drift.
	diff, err := e.CheckLock()
	require.NoError(t, err)
	assert.True(t, diff.Empty())

	// Change a pin and re-discover: drift shows up field by field.
	changed := []byte(testWorkspaceWithSHA("1111111111111111111111111111111111111111111111111111111111111111"))
	require.NoError(t, os.WriteFile(filepath.Join(root, "WORKSPACE"), changed, 0o644))
	_, err = e.Discover(DiscoveryOptions{})
	require.NoError(t, err)

	diff, err = e.CheckLock()
	require.NoError(t, err)
	require.Len(t, diff.Changed, 1)
	assert.Equal(t, "org_tensorflow", diff.Changed[0].Name)
	assert.Equal(t, "sha256", diff.Changed[0].Field)

	outcome, err = e.WriteLock()
	require.NoError(t, err)
	require.NotNil(t, outcome.Diff)
	assert.Len(t, outcome.Diff.Changed, 1)
}

// testWorkspaceWithSHA rewrites the tensorflow pin.
func testWorkspaceWithSHA(sha string) string {
	return fmt.Sprintf(`workspace(name = "jax")

http_archive(
    name = "org_tensorflow",
    sha256 = "%s",
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
`, sha)
}

func TestCheckDocs(t *testing.T) {
	root := basicProject(t)
	e := newTestEngine(t, projectConfig(root))

	_, err := e.Discover(DiscoveryOptions{})
	require.NoError(t, err)

	result, err := e.CheckDocs()
	require.NoError(t, err)

	assert.Equal(t, 3, result.Pages)
	assert.Equal(t, 4, result.Entries)
	assert.Equal(t, 4, result.Resolved)
	assert.True(t, result.OK())
}

func TestCheckDocsIssues(t *testing.T) {
	files := map[string]string{"WORKSPACE": testWorkspace}
	for name, content := range testSources {
		files[name] = content
	}
	files["docs/index.rst"] = testDocs["docs/index.rst"]
	files["docs/jax.numpy.rst"] = `jax.numpy package
=================

.. currentmodule:: jax.numpy

.. autosummary::
  :toctree: _autosummary

    tanh
    tahn
`
	files["docs/jax.nn.rst"] = `jax.nn package
==============

.. currentmodule:: jax.experimental

.. autosummary::
  :toctree: _autosummary

    relu
`
	root := writeProject(t, files)
	e := newTestEngine(t, projectConfig(root))

	_, err := e.Discover(DiscoveryOptions{})
	require.NoError(t, err)

	result, err := e.CheckDocs()
	require.NoError(t, err)

	assert.Equal(t, 3, result.Entries)
	assert.Equal(t, 1, result.Resolved)
	require.Len(t, result.Issues, 2)
	assert.False(t, result.OK())

	typo := result.IssuesForPage("jax.numpy")
	require.Len(t, typo, 1)
	assert.Equal(t, "tahn", typo[0].Entry)
	assert.Contains(t, typo[0].Reason, "not importable from jax.numpy")
	assert.Contains(t, typo[0].Suggestions, "tanh")
	assert.Contains(t, typo[0].String(), "did you mean")

	unknown := result.IssuesForPage("jax.nn")
	require.Len(t, unknown, 1)
	assert.Contains(t, unknown[0].Reason, "jax.experimental is not importable")
}

func TestCheckDocsRequiresSources(t *testing.T) {
	root := basicProject(t)
	e := newTestEngine(t, projectConfig(root))

	_, err := e.Discover(DiscoveryOptions{SkipSources: true})
	require.NoError(t, err)

	_, err = e.CheckDocs()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sources not discovered")
}

func TestCoverage(t *testing.T) {
	root := basicProject(t)
	e := newTestEngine(t, projectConfig(root))

	_, err := e.Discover(DiscoveryOptions{})
	require.NoError(t, err)

	result, err := e.Coverage()
	require.NoError(t, err)

	byModule := make(map[string]*ModuleCoverage)
	for _, cov := range result.Modules {
		byModule[cov.Module] = cov
	}

	numpy := byModule["jax.numpy"]
	require.NotNil(t, numpy)
	assert.Equal(t, 2, numpy.Public)
	assert.Equal(t, 2, numpy.Documented)
	assert.Empty(t, numpy.Missing)
	assert.InDelta(t, 100.0, numpy.Percent(), 0.01)

	// The jax package re-exports nn and numpy; neither is listed on
	// any page.
	jax := byModule["jax"]
	require.NotNil(t, jax)
	assert.Equal(t, []string{"nn", "numpy"}, jax.Missing)

	assert.Equal(t, result.TotalDocumented, result.TotalPublic-len(jax.Missing))
	assert.Less(t, result.Percent(), 100.0)
}

func TestLint(t *testing.T) {
	root := basicProject(t)
	e := newTestEngine(t, projectConfig(root))

	_, err := e.Discover(DiscoveryOptions{})
	require.NoError(t, err)

	result, err := e.Lint()
	require.NoError(t, err)

	errors, _, _ := result.Counts()
	assert.Zero(t, errors, "fixture should lint clean of errors: %+v", result.Diagnostics)

	// flatbuffers is declared but nothing loads from it.
	var sawUnused bool
	for _, d := range result.Diagnostics {
		if d.RuleID == "W006" && d.Target == "flatbuffers" {
			sawUnused = true
		}
	}
	assert.True(t, sawUnused)
}

func TestLintDisabledRule(t *testing.T) {
	root := basicProject(t)
	cfg := projectConfig(root)
	cfg.Lint = &core.LintConfig{Disabled: []string{"W006"}}
	e := newTestEngine(t, cfg)

	_, err := e.Discover(DiscoveryOptions{})
	require.NoError(t, err)

	result, err := e.Lint()
	require.NoError(t, err)
	for _, d := range result.Diagnostics {
		assert.NotEqual(t, "W006", d.RuleID)
	}
}

func TestAudit(t *testing.T) {
	srv, digest := serveArchive(t)
	files := map[string]string{
		"WORKSPACE": fetchableWorkspace(srv.URL, digest),
	}
	for name, content := range testDocs {
		files[name] = content
	}
	for name, content := range testSources {
		files[name] = content
	}
	root := writeProject(t, files)

	cfg := projectConfig(root)
	// The test server speaks plain HTTP.
	cfg.Lint = &core.LintConfig{Disabled: []string{"W002", "W003"}}
	e := newTestEngine(t, cfg)

	result, err := e.Audit(context.Background(), AuditOptions{})
	require.NoError(t, err)

	require.NotNil(t, result.Run)
	assert.Equal(t, core.RunStatusCompleted, result.Run.Status)
	assert.Equal(t, "jax", result.Run.Project)
	require.NotNil(t, result.Run.CompletedAt)

	store, err := e.Store()
	require.NoError(t, err)

	checks, err := store.GetChecksForRun(result.Run.ID)
	require.NoError(t, err)

	fetchChecks := checksByKind(checks, core.CheckFetch)
	require.Len(t, fetchChecks, 2)
	statuses := make(map[string]core.CheckStatus)
	for _, c := range fetchChecks {
		statuses[c.Target] = c.Status
	}
	assert.Equal(t, core.CheckStatusOK, statuses["jax_support"])
	assert.Equal(t, core.CheckStatusSkipped, statuses["flatbuffers"])

	verifyChecks := checksByKind(checks, core.CheckVerify)
	require.Len(t, verifyChecks, 2)
	for _, c := range verifyChecks {
		assert.Equal(t, core.CheckStatusOK, c.Status, "verify %s", c.Target)
	}

	docsChecks := checksByKind(checks, core.CheckDocs)
	require.Len(t, docsChecks, 3)
	for _, c := range docsChecks {
		assert.Equal(t, core.CheckStatusOK, c.Status, "docs %s", c.Target)
	}

	// Lint findings are attached to the run; both declarations are
	// unused, nothing loads from them.
	findings, err := store.GetFindingsForRun(result.Run.ID)
	require.NoError(t, err)
	var unused int
	for _, f := range findings {
		if f.RuleID == "W006" {
			unused++
		}
	}
	assert.Equal(t, 2, unused)

	// The symbol cache reflects the scan.
	symbols, err := store.GetModuleSymbols("jax.numpy")
	require.NoError(t, err)
	assert.Len(t, symbols, 3)

	// The run shows up as the latest for the project.
	latest, err := store.GetLatestRun("jax")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, result.Run.ID, latest.ID)
}

func TestAuditChecksumFailure(t *testing.T) {
	srv, _ := serveArchive(t)
	files := map[string]string{
		"WORKSPACE": fetchableWorkspace(srv.URL,
			"deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"),
	}
	for name, content := range testDocs {
		files[name] = content
	}
	for name, content := range testSources {
		files[name] = content
	}
	root := writeProject(t, files)

	cfg := projectConfig(root)
	cfg.Lint = &core.LintConfig{Disabled: []string{"W002", "W003"}}
	e := newTestEngine(t, cfg)

	result, err := e.Audit(context.Background(), AuditOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit failed")

	require.NotNil(t, result.Run)
	assert.Equal(t, core.RunStatusFailed, result.Run.Status)
	assert.Contains(t, result.Run.Error, "failed to fetch")

	store, serr := e.Store()
	require.NoError(t, serr)
	checks, cerr := store.GetChecksForRun(result.Run.ID)
	require.NoError(t, cerr)

	fetchChecks := checksByKind(checks, core.CheckFetch)
	var failed *core.Check
	for _, c := range fetchChecks {
		if c.Target == "jax_support" {
			failed = c
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, core.CheckStatusFailed, failed.Status)
	assert.Contains(t, failed.Error, "checksum mismatch")
}

func TestAuditOffline(t *testing.T) {
	root := basicProject(t)
	e := newTestEngine(t, projectConfig(root))

	result, err := e.Audit(context.Background(), AuditOptions{Offline: true})
	require.NoError(t, err)

	assert.Nil(t, result.Fetch)
	require.NotNil(t, result.Verify)
	assert.Equal(t, core.RunStatusCompleted, result.Run.Status)

	store, serr := e.Store()
	require.NoError(t, serr)
	checks, cerr := store.GetChecksForRun(result.Run.ID)
	require.NoError(t, cerr)

	assert.Empty(t, checksByKind(checks, core.CheckFetch))

	// Nothing was ever fetched: the archive verify row is skipped.
	verifyChecks := checksByKind(checks, core.CheckVerify)
	statuses := make(map[string]core.CheckStatus)
	for _, c := range verifyChecks {
		statuses[c.Target] = c.Status
	}
	assert.Equal(t, core.CheckStatusSkipped, statuses["org_tensorflow"])
	assert.Equal(t, core.CheckStatusOK, statuses["flatbuffers"])
}

func TestProjectPaths(t *testing.T) {
	e := newTestEngine(t, core.ProjectConfig{Workspace: "/work/jax/WORKSPACE"})

	assert.Equal(t, "/work/jax", e.ProjectDir())
	assert.Equal(t, filepath.Join("/work/jax", "starpin.lock"), e.LockPath())
	assert.Equal(t, filepath.Join("/work/jax", ".starpin", "cache"), e.CacheDir())

	override := newTestEngine(t, core.ProjectConfig{
		Workspace: "/work/jax/WORKSPACE",
		CacheDir:  "/var/cache/starpin",
	})
	assert.Equal(t, "/var/cache/starpin", override.CacheDir())
}
