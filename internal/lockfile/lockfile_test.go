package lockfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lockTime = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

func pinnedWorkspace() *core.Workspace {
	return &core.Workspace{
		Name: "jax",
		Path: "WORKSPACE",
		Dependencies: []*core.Dependency{
			{
				Name:   "org_tensorflow",
				Kind:   core.DepHTTPArchive,
				SHA256: "f1bf2f4a031e6dbe48f6cb99fb85045a7a0a1fcd4010961ba7a4cc264ae8b1a2",
				URLs:   []string{"https://github.com/tensorflow/tensorflow/archive/0e6e7a1.tar.gz"},

				StripPrefix: "tensorflow-0e6e7a1",
			},
			{
				Name:   "io_bazel_rules_closure",
				Kind:   core.DepHTTPArchive,
				SHA256: "5b00383d08dd71f28503736db0500b6fb4dda47489ff5fc6bed42557c07c6ba9",
				URLs:   []string{"https://github.com/bazelbuild/rules_closure/archive/308b05b.tar.gz"},
			},
			{
				Name:   "com_google_absl",
				Kind:   core.DepGitRepository,
				Remote: "https://github.com/abseil/abseil-cpp.git",
				Commit: "389ec3f906f018661a5308458d623d01f96d7b23",
			},
		},
	}
}

func TestFromWorkspace(t *testing.T) {
	lock := FromWorkspace(pinnedWorkspace(), lockTime)

	assert.Equal(t, Version, lock.Version)
	assert.Equal(t, "jax", lock.Workspace)
	require.Len(t, lock.Dependencies, 3)

	// Entries are sorted by name regardless of declaration order.
	assert.Equal(t, "com_google_absl", lock.Dependencies[0].Name)
	assert.Equal(t, "io_bazel_rules_closure", lock.Dependencies[1].Name)
	assert.Equal(t, "org_tensorflow", lock.Dependencies[2].Name)

	tf := lock.Dependencies[2]
	assert.Equal(t, "http_archive", tf.Kind)
	assert.Equal(t, "tensorflow-0e6e7a1", tf.StripPrefix)

	absl := lock.Dependencies[0]
	assert.Equal(t, "git_repository", absl.Kind)
	assert.Equal(t, "389ec3f906f018661a5308458d623d01f96d7b23", absl.Commit)
	assert.Empty(t, absl.SHA256)
}

func TestFromWorkspaceLastDeclarationWins(t *testing.T) {
	ws := &core.Workspace{
		Name: "jax",
		Dependencies: []*core.Dependency{
			{Name: "org_tensorflow", Kind: core.DepHTTPArchive, SHA256: "aaa"},
			{Name: "org_tensorflow", Kind: core.DepHTTPArchive, SHA256: "bbb"},
		},
	}
	lock := FromWorkspace(ws, lockTime)
	require.Len(t, lock.Dependencies, 1)
	assert.Equal(t, "bbb", lock.Dependencies[0].SHA256)
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "starpin.lock")
	lock := FromWorkspace(pinnedWorkspace(), lockTime)

	require.NoError(t, Write(path, lock))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, lock.Version, got.Version)
	assert.Equal(t, lock.Workspace, got.Workspace)
	assert.True(t, got.Generated.Equal(lockTime))
	assert.Equal(t, lock.Dependencies, got.Dependencies)

	entry, ok := got.Entry("org_tensorflow")
	require.True(t, ok)
	assert.Equal(t, "tensorflow-0e6e7a1", entry.StripPrefix)
	_, ok = got.Entry("nonexistent")
	assert.False(t, ok)
}

func TestWriteDeterministic(t *testing.T) {
	dir := t.TempDir()
	lock := FromWorkspace(pinnedWorkspace(), lockTime)

	pathA := filepath.Join(dir, "a.lock")
	pathB := filepath.Join(dir, "b.lock")
	require.NoError(t, Write(pathA, lock))
	require.NoError(t, Write(pathB, lock))

	a, err := os.ReadFile(pathA)
	require.NoError(t, err)
	b, err := os.ReadFile(pathB)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestReadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "starpin.lock")
	content := "version: 1\ngenerated: 2026-08-26T12:00:00Z\nextra_field: true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Read(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse lockfile")
}

func TestReadRejectsWrongVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "starpin.lock")
	content := "version: 99\ngenerated: 2026-08-26T12:00:00Z\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Read(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version 99")
}

func TestReadIfPresent(t *testing.T) {
	_, err := ReadIfPresent(filepath.Join(t.TempDir(), "starpin.lock"))
	require.ErrorIs(t, err, ErrNoLockfile)
}

func TestDiff(t *testing.T) {
	oldLock := FromWorkspace(pinnedWorkspace(), lockTime)

	ws := pinnedWorkspace()
	// Bump tensorflow's pin, drop closure, add a new archive.
	ws.Dependencies[0].SHA256 = "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
	ws.Dependencies[0].URLs = []string{"https://github.com/tensorflow/tensorflow/archive/abc1234.tar.gz"}
	ws.Dependencies = append(ws.Dependencies[:1], ws.Dependencies[2:]...)
	ws.Dependencies = append(ws.Dependencies, &core.Dependency{
		Name:   "pybind11",
		Kind:   core.DepHTTPArchive,
		SHA256: "1111111111111111111111111111111111111111111111111111111111111111",
	})
	newLock := FromWorkspace(ws, lockTime.Add(time.Hour))

	d := Diff(oldLock, newLock)
	assert.False(t, d.Empty())
	assert.Equal(t, []string{"pybind11"}, d.Added)
	assert.Equal(t, []string{"io_bazel_rules_closure"}, d.Removed)

	require.Len(t, d.Changed, 2)
	assert.Equal(t, "org_tensorflow", d.Changed[0].Name)
	assert.Equal(t, "sha256", d.Changed[0].Field)
	assert.Equal(t, "urls", d.Changed[1].Field)
}

func TestDiffEmpty(t *testing.T) {
	a := FromWorkspace(pinnedWorkspace(), lockTime)
	b := FromWorkspace(pinnedWorkspace(), lockTime.Add(time.Hour))
	assert.True(t, Diff(a, b).Empty())
}
