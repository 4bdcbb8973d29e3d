package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Cache is a content-addressed artifact store. Entries live under
// <dir>/sha256/<digest> and are written atomically, so a digest that
// exists on disk names exactly the bytes it was stored under.
type Cache struct {
	dir string
}

// NewCache creates a cache rooted at dir. The directory is created
// lazily on first write.
func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	return c.dir
}

// Path returns where an artifact with the given digest lives.
func (c *Cache) Path(digest string) string {
	return filepath.Join(c.dir, "sha256", digest)
}

// Has reports whether the digest is present.
func (c *Cache) Has(digest string) bool {
	if digest == "" {
		return false
	}
	_, err := os.Stat(c.Path(digest))
	return err == nil
}

// Open opens a cached artifact for reading.
func (c *Cache) Open(digest string) (*os.File, error) {
	f, err := os.Open(c.Path(digest))
	if err != nil {
		return nil, fmt.Errorf("open cache entry %s: %w", digest, err)
	}
	return f, nil
}

// Verify rehashes a cached entry and reports corruption.
func (c *Cache) Verify(digest string) error {
	actual, _, err := HashFile(c.Path(digest))
	if err != nil {
		return err
	}
	if actual != digest {
		return fmt.Errorf("cache entry %s is corrupt: content hashes to %s", digest, actual)
	}
	return nil
}

// Entries lists all cached digests.
func (c *Cache) Entries() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(c.dir, "sha256"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}
	var digests []string
	for _, e := range entries {
		if !e.IsDir() {
			digests = append(digests, e.Name())
		}
	}
	return digests, nil
}

// Size returns the total bytes and entry count of the cache.
func (c *Cache) Size() (int64, int, error) {
	digests, err := c.Entries()
	if err != nil {
		return 0, 0, err
	}
	var total int64
	for _, d := range digests {
		info, err := os.Stat(c.Path(d))
		if err != nil {
			return 0, 0, err
		}
		total += info.Size()
	}
	return total, len(digests), nil
}

// Prune removes cached entries whose digests are not in keep, returning
// how many were removed.
func (c *Cache) Prune(keep map[string]bool) (int, error) {
	digests, err := c.Entries()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, d := range digests {
		if keep[d] {
			continue
		}
		if err := os.Remove(c.Path(d)); err != nil {
			return removed, fmt.Errorf("prune cache entry %s: %w", d, err)
		}
		removed++
	}
	return removed, nil
}

// write streams a reader to a temp file while hashing it, returning the
// digest, size, and temp path. The caller either commits or removes the
// temp file.
func (c *Cache) write(r io.Reader) (digest string, size int64, tmpPath string, err error) {
	dir := filepath.Join(c.dir, "sha256")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", 0, "", fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "fetch-*.tmp")
	if err != nil {
		return "", 0, "", fmt.Errorf("create temp file: %w", err)
	}

	hasher := sha256.New()
	size, err = io.Copy(io.MultiWriter(tmp, hasher), r)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", 0, "", fmt.Errorf("stream artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", 0, "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, "", fmt.Errorf("close temp file: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), size, tmp.Name(), nil
}

// commit renames a written temp file to its content address.
func (c *Cache) commit(tmpPath, digest string) (string, error) {
	dest := c.Path(digest)
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	return dest, nil
}

// HashFile computes the SHA-256 of a file by streaming it.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path) //nolint:gosec // G304: callers hash files they already manage
	if err != nil {
		return "", 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	hasher := sha256.New()
	size, err := io.Copy(hasher, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), size, nil
}

// HashBytes computes the SHA-256 of a byte slice.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
