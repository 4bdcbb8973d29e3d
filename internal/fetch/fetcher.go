// Package fetch downloads declared archives, verifies their checksums,
// and fills a content-addressed cache. Each dependency's URL list is a
// mirror chain tried in order; transport failures move to the next
// mirror, checksum mismatches fail hard.
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starpoint-labs/starpin/pkg/core"
)

// Config controls fetcher behavior. Zero values select defaults.
type Config struct {
	// CacheDir is the root of the content-addressed cache.
	CacheDir string
	// Concurrency bounds parallel downloads in FetchAll, clamped to [1,16].
	Concurrency int
	// Retries is the number of re-attempts per URL after the first try.
	Retries int
	// Timeout applies per HTTP request.
	Timeout time.Duration
	// MaxSize rejects artifacts larger than this many bytes when positive.
	MaxSize int64
	// Mirrors are base URLs tried before each dependency's declared URLs,
	// with the declared URL's path appended.
	Mirrors []string
	// Insecure skips TLS certificate verification.
	Insecure bool
	// Logger receives download progress. Defaults to discard.
	Logger *slog.Logger
}

// Fetcher downloads and verifies workspace artifacts.
type Fetcher struct {
	client      *http.Client
	cache       *Cache
	concurrency int
	retries     int
	maxSize     int64
	mirrors     []string
	logger      *slog.Logger
}

// Result describes the outcome of fetching one dependency.
type Result struct {
	// Name of the dependency.
	Name string
	// URL that served the artifact, empty on cache hits.
	URL string
	// Path of the artifact in the cache.
	Path string
	// SHA256 is the actual digest of the fetched bytes.
	SHA256 string
	// Size in bytes.
	Size int64
	// Cached is true when the artifact was already in the cache.
	Cached bool
	// Duration of the fetch, zero on cache hits.
	Duration time.Duration
	// Err is set when this dependency could not be fetched.
	Err error
}

// ChecksumError reports bytes that do not match the declared SHA-256.
type ChecksumError struct {
	Name     string
	URL      string
	Declared string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s from %s: declared %s, got %s", e.Name, e.URL, e.Declared, e.Actual)
}

// DownloadError reports an HTTP response that was not usable.
type DownloadError struct {
	URL    string
	Status int
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: unexpected status %d", e.URL, e.Status)
}

// SizeError reports an artifact exceeding the configured size limit.
type SizeError struct {
	URL   string
	Limit int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("download %s: artifact exceeds size limit of %d bytes", e.URL, e.Limit)
}

// New creates a fetcher with defaults filled in.
func New(cfg Config) *Fetcher {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 4
	}
	if cfg.Concurrency > 16 {
		cfg.Concurrency = 16
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	transport := http.DefaultTransport
	if cfg.Insecure {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // G402: opt-in via config for mirrors with private CAs
		transport = t
	}

	return &Fetcher{
		client:      &http.Client{Timeout: cfg.Timeout, Transport: transport},
		cache:       NewCache(cfg.CacheDir),
		concurrency: cfg.Concurrency,
		retries:     cfg.Retries,
		maxSize:     cfg.MaxSize,
		mirrors:     cfg.Mirrors,
		logger:      cfg.Logger,
	}
}

// Cache exposes the fetcher's content-addressed cache.
func (f *Fetcher) Cache() *Cache {
	return f.cache
}

// FetchDependency downloads one http_archive dependency, serving from
// the cache when the declared digest is already present. The returned
// result carries the actual digest, which callers use to pin
// dependencies declared without one.
func (f *Fetcher) FetchDependency(ctx context.Context, dep *core.Dependency) (*Result, error) {
	if dep.Kind != core.DepHTTPArchive {
		return nil, fmt.Errorf("dependency %s: %s is not fetched over HTTP", dep.Name, dep.Kind)
	}
	if len(dep.URLs) == 0 {
		return nil, fmt.Errorf("dependency %s: no urls declared", dep.Name)
	}

	if dep.SHA256 != "" && f.cache.Has(dep.SHA256) {
		path := f.cache.Path(dep.SHA256)
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cache entry for %s: %w", dep.Name, err)
		}
		f.logger.Debug("cache hit", "name", dep.Name, "sha256", dep.SHA256)
		return &Result{Name: dep.Name, Path: path, SHA256: dep.SHA256, Size: info.Size(), Cached: true}, nil
	}

	var errs []error
	for _, candidate := range f.candidateURLs(dep) {
		start := time.Now()
		res, err := f.fetchURL(ctx, dep, candidate)
		if err == nil {
			res.Duration = time.Since(start)
			f.logger.Info("fetched",
				"name", dep.Name,
				"url", candidate,
				"sha256", res.SHA256,
				"bytes", res.Size,
				"duration", res.Duration)
			return res, nil
		}

		// A digest mismatch is never retried on another mirror: the
		// declaration and the artifact disagree, and a mirror that
		// happens to serve matching bytes would only mask that.
		var checksumErr *ChecksumError
		if errors.As(err, &checksumErr) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.logger.Warn("fetch failed, trying next mirror", "name", dep.Name, "url", candidate, "error", err)
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("dependency %s: all urls failed: %w", dep.Name, errors.Join(errs...))
}

// FetchAll downloads every fetchable dependency with bounded
// concurrency. Results keep the input order and record per-dependency
// failures; the returned error joins them.
func (f *Fetcher) FetchAll(ctx context.Context, deps []*core.Dependency) ([]*Result, error) {
	results := make([]*Result, len(deps))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, dep := range deps {
		g.Go(func() error {
			res, err := f.FetchDependency(ctx, dep)
			if err != nil {
				results[i] = &Result{Name: dep.Name, Err: err}
				// Cancellation stops the whole batch, a single bad
				// dependency does not.
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	var errs []error
	for _, res := range results {
		if res != nil && res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Name, res.Err))
		}
	}
	return results, errors.Join(errs...)
}

// candidateURLs builds the mirror chain: configured mirrors first, each
// carrying the declared URL's path, then the declared URLs themselves.
func (f *Fetcher) candidateURLs(dep *core.Dependency) []string {
	var candidates []string
	seen := make(map[string]struct{})
	add := func(u string) {
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		candidates = append(candidates, u)
	}

	for _, mirror := range f.mirrors {
		for _, declared := range dep.URLs {
			parsed, err := url.Parse(declared)
			if err != nil {
				continue
			}
			add(strings.TrimSuffix(mirror, "/") + parsed.Path)
		}
	}
	for _, declared := range dep.URLs {
		add(declared)
	}
	return candidates
}

// fetchURL downloads one URL with retries, verifies the declared digest,
// and moves the artifact into the cache.
func (f *Fetcher) fetchURL(ctx context.Context, dep *core.Dependency, rawURL string) (*Result, error) {
	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt*500) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		res, err := f.fetchOnce(ctx, dep, rawURL)
		if err == nil {
			return res, nil
		}
		// Mismatched bytes and oversized artifacts will not improve on
		// a retry of the same URL.
		var checksumErr *ChecksumError
		var sizeErr *SizeError
		if errors.As(err, &checksumErr) || errors.As(err, &sizeErr) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	if f.retries > 0 {
		return nil, fmt.Errorf("failed after %d retries: %w", f.retries, lastErr)
	}
	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, dep *core.Dependency, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &DownloadError{URL: rawURL, Status: resp.StatusCode}
	}

	body := io.Reader(resp.Body)
	if f.maxSize > 0 {
		body = io.LimitReader(resp.Body, f.maxSize+1)
	}

	digest, size, tmpPath, err := f.cache.write(body)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}
	if f.maxSize > 0 && size > f.maxSize {
		_ = os.Remove(tmpPath)
		return nil, &SizeError{URL: rawURL, Limit: f.maxSize}
	}
	if dep.SHA256 != "" && digest != dep.SHA256 {
		_ = os.Remove(tmpPath)
		return nil, &ChecksumError{Name: dep.Name, URL: rawURL, Declared: dep.SHA256, Actual: digest}
	}

	path, err := f.cache.commit(tmpPath, digest)
	if err != nil {
		return nil, fmt.Errorf("cache %s: %w", rawURL, err)
	}
	return &Result{Name: dep.Name, URL: rawURL, Path: path, SHA256: digest, Size: size}, nil
}
