package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tarEntry struct {
	name string
	body string
	typ  byte
	link string
}

func writeTarGz(t *testing.T, name string, entries []tarEntry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o644}
		switch e.typ {
		case tar.TypeDir:
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
		case tar.TypeSymlink:
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.link
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.body))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func writeZip(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for entry, body := range files {
		w, err := zw.Create(entry)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func sourceTarball(t *testing.T) string {
	return writeTarGz(t, "jax.tar.gz", []tarEntry{
		{name: "jax-jax-0.1.46/", typ: tar.TypeDir},
		{name: "jax-jax-0.1.46/setup.py", body: "from setuptools import setup\n"},
		{name: "jax-jax-0.1.46/jax/", typ: tar.TypeDir},
		{name: "jax-jax-0.1.46/jax/__init__.py", body: "from .api import grad\n"},
	})
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"jax-0.1.46.tar.gz", FormatTarGz},
		{"rules_closure.tgz", FormatTarGz},
		{"protobuf-3.6.1.zip", FormatZip},
		{"https://github.com/tensorflow/tensorflow/archive/0e6e7a1.tar.gz", FormatTarGz},
		{"artifact.tar.bz2", FormatUnknown},
		{"artifact", FormatUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectFormat(tt.name), tt.name)
	}
}

func TestListTarGz(t *testing.T) {
	entries, format, err := List(sourceTarball(t))
	require.NoError(t, err)
	assert.Equal(t, FormatTarGz, format)
	require.Len(t, entries, 4)

	assert.Equal(t, "jax-jax-0.1.46", entries[0].Name)
	assert.True(t, entries[0].Dir)
	assert.Equal(t, "jax-jax-0.1.46/setup.py", entries[1].Name)
	assert.False(t, entries[1].Dir)
	assert.Equal(t, int64(len("from setuptools import setup\n")), entries[1].Size)
}

func TestListZip(t *testing.T) {
	path := writeZip(t, "protobuf.zip", map[string]string{
		"protobuf-3.6.1/README.md":      "protobuf\n",
		"protobuf-3.6.1/src/message.cc": "// message\n",
	})

	entries, format, err := List(path)
	require.NoError(t, err)
	assert.Equal(t, FormatZip, format)

	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = true
	}
	assert.True(t, names["protobuf-3.6.1/README.md"])
	assert.True(t, names["protobuf-3.6.1/src/message.cc"])
}

func TestListSniffsContent(t *testing.T) {
	// Cache entries are named by digest, with no extension to go on.
	src := sourceTarball(t)
	bare := filepath.Join(t.TempDir(), "0e6e7a1cd5145711c8586fca4a1e7755a10f1d3a0c10236a3a30a25f6e3335a0")
	content, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(bare, content, 0o644))

	entries, format, err := List(bare)
	require.NoError(t, err)
	assert.Equal(t, FormatTarGz, format)
	assert.NotEmpty(t, entries)
}

func TestListUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.tar.bz2")
	require.NoError(t, os.WriteFile(path, []byte("BZh91AY"), 0o644))

	_, _, err := List(path)
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "artifact.tar.bz2", formatErr.Name)
}

func TestTopLevelPrefix(t *testing.T) {
	uniform := []Entry{
		{Name: "jax-jax-0.1.46", Dir: true},
		{Name: "jax-jax-0.1.46/setup.py"},
		{Name: "jax-jax-0.1.46/jax/__init__.py"},
	}
	assert.Equal(t, "jax-jax-0.1.46", TopLevelPrefix(uniform))

	mixed := []Entry{
		{Name: "jax-jax-0.1.46/setup.py"},
		{Name: "other/README.md"},
	}
	assert.Equal(t, "", TopLevelPrefix(mixed))

	rootFile := []Entry{
		{Name: "README.md"},
		{Name: "src/main.cc"},
	}
	assert.Equal(t, "", TopLevelPrefix(rootFile))
}

func TestValidateStripPrefix(t *testing.T) {
	entries := []Entry{
		{Name: "jax-jax-0.1.46", Dir: true},
		{Name: "jax-jax-0.1.46/setup.py"},
	}

	require.NoError(t, ValidateStripPrefix(entries, ""))
	require.NoError(t, ValidateStripPrefix(entries, "jax-jax-0.1.46"))

	err := ValidateStripPrefix(entries, "jax-0.1.46")
	var prefixErr *PrefixError
	require.ErrorAs(t, err, &prefixErr)
	assert.Equal(t, "jax-0.1.46", prefixErr.Prefix)
	assert.Equal(t, "jax-jax-0.1.46", prefixErr.Found)
	assert.Contains(t, err.Error(), `archive uses prefix "jax-jax-0.1.46"`)
}

func TestExtractTarGzWithStripPrefix(t *testing.T) {
	dest := t.TempDir()
	require.NoError(t, Extract(sourceTarball(t), dest, "jax-jax-0.1.46"))

	setup, err := os.ReadFile(filepath.Join(dest, "setup.py"))
	require.NoError(t, err)
	assert.Equal(t, "from setuptools import setup\n", string(setup))

	_, err = os.Stat(filepath.Join(dest, "jax", "__init__.py"))
	require.NoError(t, err)

	// The prefix directory itself must not reappear under dest.
	_, err = os.Stat(filepath.Join(dest, "jax-jax-0.1.46"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractZip(t *testing.T) {
	path := writeZip(t, "protobuf.zip", map[string]string{
		"protobuf-3.6.1/README.md": "protobuf\n",
	})
	dest := t.TempDir()
	require.NoError(t, Extract(path, dest, ""))

	readme, err := os.ReadFile(filepath.Join(dest, "protobuf-3.6.1", "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "protobuf\n", string(readme))
}

func TestExtractRejectsTraversal(t *testing.T) {
	path := writeTarGz(t, "evil.tar.gz", []tarEntry{
		{name: "../evil.txt", body: "escaped"},
	})
	dest := filepath.Join(t.TempDir(), "dest")

	err := Extract(path, dest, "")
	var unsafeErr *UnsafePathError
	require.ErrorAs(t, err, &unsafeErr)

	_, statErr := os.Stat(filepath.Join(filepath.Dir(dest), "evil.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtractRejectsAbsolutePath(t *testing.T) {
	path := writeTarGz(t, "evil.tar.gz", []tarEntry{
		{name: "/tmp/evil.txt", body: "escaped"},
	})

	err := Extract(path, t.TempDir(), "")
	var unsafeErr *UnsafePathError
	require.ErrorAs(t, err, &unsafeErr)
}

func TestExtractSymlinks(t *testing.T) {
	safe := writeTarGz(t, "safe.tar.gz", []tarEntry{
		{name: "pkg/real.py", body: "x = 1\n"},
		{name: "pkg/alias.py", typ: tar.TypeSymlink, link: "real.py"},
	})
	dest := t.TempDir()
	require.NoError(t, Extract(safe, dest, ""))
	target, err := os.Readlink(filepath.Join(dest, "pkg", "alias.py"))
	require.NoError(t, err)
	assert.Equal(t, "real.py", target)

	escape := writeTarGz(t, "escape.tar.gz", []tarEntry{
		{name: "pkg/out", typ: tar.TypeSymlink, link: "../../outside"},
	})
	err = Extract(escape, t.TempDir(), "")
	var unsafeErr *UnsafePathError
	require.ErrorAs(t, err, &unsafeErr)
}
