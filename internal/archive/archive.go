// Package archive lists and extracts the artifact formats workspace
// declarations point at: gzip-compressed tarballs and zip files. Entry
// paths are validated before anything touches the filesystem, so a
// crafted archive cannot write outside its extraction root.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Format identifies a supported archive container.
type Format int

const (
	FormatUnknown Format = iota
	FormatTarGz
	FormatZip
)

func (f Format) String() string {
	switch f {
	case FormatTarGz:
		return "tar.gz"
	case FormatZip:
		return "zip"
	default:
		return "unknown"
	}
}

// Entry is one member of an archive, with a slash-separated name.
type Entry struct {
	Name string
	Size int64
	Dir  bool
}

// FormatError reports an archive whose container format is not handled.
type FormatError struct {
	Name string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unsupported archive format: %s", e.Name)
}

// PrefixError reports a strip_prefix that does not match the archive
// layout. Found carries the prefix the archive actually has, when there
// is a single one.
type PrefixError struct {
	Prefix string
	Found  string
	Entry  string
}

func (e *PrefixError) Error() string {
	if e.Found != "" {
		return fmt.Sprintf("strip_prefix %q does not match archive entry %q (archive uses prefix %q)", e.Prefix, e.Entry, e.Found)
	}
	return fmt.Sprintf("strip_prefix %q does not match archive entry %q", e.Prefix, e.Entry)
}

// UnsafePathError reports an entry that would escape the extraction
// root.
type UnsafePathError struct {
	Name string
}

func (e *UnsafePathError) Error() string {
	return fmt.Sprintf("archive entry has unsafe path: %s", e.Name)
}

// DetectFormat infers the container format from a file name or URL.
func DetectFormat(name string) Format {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGz
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip
	default:
		return FormatUnknown
	}
}

// DetectContentFormat sniffs the container format from leading bytes,
// for cache entries whose names carry no extension.
func DetectContentFormat(path string) (Format, error) {
	f, err := os.Open(path) //nolint:gosec // G304: callers pass paths they already manage
	if err != nil {
		return FormatUnknown, err
	}
	defer func() { _ = f.Close() }()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return FormatUnknown, nil //nolint:nilerr // too short to be any archive
	}
	switch {
	case magic[0] == 0x1f && magic[1] == 0x8b:
		return FormatTarGz, nil
	case magic[0] == 'P' && magic[1] == 'K':
		return FormatZip, nil
	default:
		return FormatUnknown, nil
	}
}

// List returns the entries of an archive file. The format is taken from
// the file name and, failing that, sniffed from the content.
func List(archivePath string) ([]Entry, Format, error) {
	format := DetectFormat(archivePath)
	if format == FormatUnknown {
		var err error
		format, err = DetectContentFormat(archivePath)
		if err != nil {
			return nil, FormatUnknown, err
		}
	}

	switch format {
	case FormatTarGz:
		entries, err := listTarGz(archivePath)
		return entries, format, err
	case FormatZip:
		entries, err := listZip(archivePath)
		return entries, format, err
	default:
		return nil, FormatUnknown, &FormatError{Name: filepath.Base(archivePath)}
	}
}

func listTarGz(archivePath string) ([]Entry, error) {
	f, err := os.Open(archivePath) //nolint:gosec // G304: callers pass paths they already manage
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read gzip stream: %w", err)
	}
	defer func() { _ = gz.Close() }()

	var entries []Entry
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar stream: %w", err)
		}
		name := strings.TrimSuffix(hdr.Name, "/")
		if name == "" {
			continue
		}
		entries = append(entries, Entry{
			Name: name,
			Size: hdr.Size,
			Dir:  hdr.Typeflag == tar.TypeDir,
		})
	}
	return entries, nil
}

func listZip(archivePath string) ([]Entry, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("read zip: %w", err)
	}
	defer func() { _ = zr.Close() }()

	var entries []Entry
	for _, f := range zr.File {
		name := strings.TrimSuffix(f.Name, "/")
		if name == "" {
			continue
		}
		entries = append(entries, Entry{
			Name: name,
			Size: int64(f.UncompressedSize64), //nolint:gosec // G115: sizes beyond int64 do not occur in real archives
			Dir:  f.FileInfo().IsDir(),
		})
	}
	return entries, nil
}

// TopLevelPrefix returns the single first path component shared by all
// entries, or "" when the archive has none.
func TopLevelPrefix(entries []Entry) string {
	prefix := ""
	for _, e := range entries {
		first, _, found := strings.Cut(e.Name, "/")
		if !found && !e.Dir {
			// A file at the root means there is no uniform prefix.
			return ""
		}
		if prefix == "" {
			prefix = first
			continue
		}
		if first != prefix {
			return ""
		}
	}
	return prefix
}

// ValidateStripPrefix checks that every entry sits under the declared
// prefix. An empty prefix always validates.
func ValidateStripPrefix(entries []Entry, prefix string) error {
	if prefix == "" {
		return nil
	}
	for _, e := range entries {
		if e.Name == prefix || strings.HasPrefix(e.Name, prefix+"/") {
			continue
		}
		return &PrefixError{Prefix: prefix, Found: TopLevelPrefix(entries), Entry: e.Name}
	}
	return nil
}

// Extract unpacks an archive into dest, removing stripPrefix from every
// entry path. Entries that would land outside dest are rejected.
func Extract(archivePath, dest, stripPrefix string) error {
	format := DetectFormat(archivePath)
	if format == FormatUnknown {
		var err error
		format, err = DetectContentFormat(archivePath)
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(dest, 0o750); err != nil {
		return fmt.Errorf("create extraction root: %w", err)
	}

	switch format {
	case FormatTarGz:
		return extractTarGz(archivePath, dest, stripPrefix)
	case FormatZip:
		return extractZip(archivePath, dest, stripPrefix)
	default:
		return &FormatError{Name: filepath.Base(archivePath)}
	}
}

func extractTarGz(archivePath, dest, stripPrefix string) error {
	f, err := os.Open(archivePath) //nolint:gosec // G304: callers pass paths they already manage
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("read gzip stream: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar stream: %w", err)
		}

		rel, keep, err := entryTarget(hdr.Name, stripPrefix)
		if err != nil {
			return err
		}
		if !keep {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(rel))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o750); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if !linkStaysInside(rel, hdr.Linkname) {
				return &UnsafePathError{Name: hdr.Name + " -> " + hdr.Linkname}
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		default:
			// Devices, fifos, and hard links have no place in source
			// archives.
		}
	}
}

func extractZip(archivePath, dest, stripPrefix string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("read zip: %w", err)
	}
	defer func() { _ = zr.Close() }()

	for _, zf := range zr.File {
		rel, keep, err := entryTarget(zf.Name, stripPrefix)
		if err != nil {
			return err
		}
		if !keep {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(rel))

		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o750); err != nil {
				return err
			}
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return fmt.Errorf("open zip entry %s: %w", zf.Name, err)
		}
		err = writeEntry(target, rc, zf.FileInfo().Mode())
		_ = rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// entryTarget strips the prefix from an entry name and rejects names
// that would escape the extraction root. keep is false for the prefix
// directory itself and for entries outside the prefix.
func entryTarget(name, stripPrefix string) (rel string, keep bool, err error) {
	name = strings.TrimSuffix(name, "/")
	if name == "" {
		return "", false, nil
	}
	if path.IsAbs(name) || !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", false, &UnsafePathError{Name: name}
	}
	if stripPrefix != "" {
		if name == stripPrefix {
			return "", false, nil
		}
		rest, ok := strings.CutPrefix(name, stripPrefix+"/")
		if !ok {
			return "", false, nil
		}
		name = rest
	}
	if name == "" {
		return "", false, nil
	}
	return name, true, nil
}

// writeEntry streams one regular file to disk.
func writeEntry(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm()&0o755) //nolint:gosec // G304: target is validated against the extraction root
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil { //nolint:gosec // G110: archive sizes are bounded upstream by the fetch size limit
		_ = out.Close()
		return err
	}
	return out.Close()
}

// linkStaysInside reports whether a symlink at rel pointing at target
// resolves inside the extraction root.
func linkStaysInside(rel, target string) bool {
	if target == "" || path.IsAbs(target) || filepath.IsAbs(target) {
		return false
	}
	resolved := path.Join(path.Dir(rel), target)
	return filepath.IsLocal(filepath.FromSlash(resolved))
}
