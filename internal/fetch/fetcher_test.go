package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var archiveBytes = []byte("fake tarball contents for jax-0.1.46")

func archiveDep(urls ...string) *core.Dependency {
	return &core.Dependency{
		Name:   "org_tensorflow",
		Kind:   core.DepHTTPArchive,
		SHA256: HashBytes(archiveBytes),
		URLs:   urls,
	}
}

func TestFetchDependency(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(archiveBytes)
	}))
	defer srv.Close()

	f := New(Config{CacheDir: t.TempDir()})
	res, err := f.FetchDependency(context.Background(), archiveDep(srv.URL+"/jax.tar.gz"))
	require.NoError(t, err)

	assert.Equal(t, "org_tensorflow", res.Name)
	assert.Equal(t, HashBytes(archiveBytes), res.SHA256)
	assert.Equal(t, int64(len(archiveBytes)), res.Size)
	assert.False(t, res.Cached)
	assert.Equal(t, int32(1), hits.Load())

	stored, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, archiveBytes, stored)
}

func TestFetchDependencyCacheHit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(archiveBytes)
	}))
	defer srv.Close()

	f := New(Config{CacheDir: t.TempDir()})
	dep := archiveDep(srv.URL + "/jax.tar.gz")

	_, err := f.FetchDependency(context.Background(), dep)
	require.NoError(t, err)

	res, err := f.FetchDependency(context.Background(), dep)
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, int32(1), hits.Load(), "second fetch must not touch the network")
}

func TestFetchDependencyChecksumMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tampered bytes"))
	}))
	defer srv.Close()

	f := New(Config{CacheDir: t.TempDir()})
	dep := archiveDep(srv.URL + "/jax.tar.gz")

	_, err := f.FetchDependency(context.Background(), dep)
	require.Error(t, err)

	var checksumErr *ChecksumError
	require.ErrorAs(t, err, &checksumErr)
	assert.Equal(t, dep.SHA256, checksumErr.Declared)
	assert.Equal(t, HashBytes([]byte("tampered bytes")), checksumErr.Actual)

	// The mismatched artifact must not poison the cache.
	assert.False(t, f.Cache().Has(checksumErr.Actual))
}

func TestFetchDependencyMirrorFallback(t *testing.T) {
	var badHits atomic.Int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		badHits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archiveBytes)
	}))
	defer good.Close()

	f := New(Config{CacheDir: t.TempDir()})
	res, err := f.FetchDependency(context.Background(), archiveDep(bad.URL+"/jax.tar.gz", good.URL+"/jax.tar.gz"))
	require.NoError(t, err)
	assert.Equal(t, good.URL+"/jax.tar.gz", res.URL)
	assert.Equal(t, int32(1), badHits.Load())
}

func TestFetchDependencyRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(archiveBytes)
	}))
	defer srv.Close()

	f := New(Config{CacheDir: t.TempDir(), Retries: 1})
	_, err := f.FetchDependency(context.Background(), archiveDep(srv.URL+"/jax.tar.gz"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchDependencyAllURLsFail(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := New(Config{CacheDir: t.TempDir()})
	_, err := f.FetchDependency(context.Background(), archiveDep(srv.URL+"/a.tar.gz", srv.URL+"/b.tar.gz"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all urls failed")

	var dlErr *DownloadError
	require.ErrorAs(t, err, &dlErr)
	assert.Equal(t, http.StatusNotFound, dlErr.Status)
}

func TestFetchDependencySizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archiveBytes)
	}))
	defer srv.Close()

	f := New(Config{CacheDir: t.TempDir(), MaxSize: 8})
	dep := archiveDep(srv.URL + "/jax.tar.gz")
	dep.SHA256 = ""

	_, err := f.FetchDependency(context.Background(), dep)
	var sizeErr *SizeError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, int64(8), sizeErr.Limit)
}

func TestFetchDependencyUnpinnedReportsDigest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archiveBytes)
	}))
	defer srv.Close()

	f := New(Config{CacheDir: t.TempDir()})
	dep := archiveDep(srv.URL + "/jax.tar.gz")
	dep.SHA256 = ""

	res, err := f.FetchDependency(context.Background(), dep)
	require.NoError(t, err)
	assert.Equal(t, HashBytes(archiveBytes), res.SHA256)
	assert.True(t, f.Cache().Has(res.SHA256))
}

func TestFetchDependencyGitRepository(t *testing.T) {
	f := New(Config{CacheDir: t.TempDir()})
	_, err := f.FetchDependency(context.Background(), &core.Dependency{
		Name:   "com_google_absl",
		Kind:   core.DepGitRepository,
		Remote: "https://github.com/abseil/abseil-cpp.git",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not fetched over HTTP")
}

func TestFetchDependencyContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	f := New(Config{CacheDir: t.TempDir()})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.FetchDependency(ctx, archiveDep(srv.URL+"/jax.tar.gz"))
	require.Error(t, err)
}

func TestFetchAll(t *testing.T) {
	payloads := map[string][]byte{
		"/closure.tar.gz": []byte("closure rules"),
		"/tf.tar.gz":      []byte("tensorflow sources"),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := payloads[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	deps := []*core.Dependency{
		{Name: "io_bazel_rules_closure", Kind: core.DepHTTPArchive, SHA256: HashBytes(payloads["/closure.tar.gz"]), URLs: []string{srv.URL + "/closure.tar.gz"}},
		{Name: "missing", Kind: core.DepHTTPArchive, URLs: []string{srv.URL + "/nope.tar.gz"}},
		{Name: "org_tensorflow", Kind: core.DepHTTPArchive, SHA256: HashBytes(payloads["/tf.tar.gz"]), URLs: []string{srv.URL + "/tf.tar.gz"}},
	}

	f := New(Config{CacheDir: t.TempDir(), Concurrency: 2})
	results, err := f.FetchAll(context.Background(), deps)
	require.Error(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "io_bazel_rules_closure", results[0].Name)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.Equal(t, "org_tensorflow", results[2].Name)
	assert.NoError(t, results[2].Err)
}

func TestCandidateURLs(t *testing.T) {
	f := New(Config{Mirrors: []string{"https://mirror.example.com/cache/"}})
	dep := &core.Dependency{
		Name: "org_tensorflow",
		Kind: core.DepHTTPArchive,
		URLs: []string{"https://github.com/tensorflow/tensorflow/archive/0e6e7a1.tar.gz"},
	}
	assert.Equal(t, []string{
		"https://mirror.example.com/cache/tensorflow/tensorflow/archive/0e6e7a1.tar.gz",
		"https://github.com/tensorflow/tensorflow/archive/0e6e7a1.tar.gz",
	}, f.candidateURLs(dep))
}
