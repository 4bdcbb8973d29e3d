// Package lockfile reads and writes starpin.lock, the pinned record of
// every workspace dependency. The file is YAML, sorted by dependency
// name, so regenerating it from an unchanged workspace is a no-op in
// version control.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starpoint-labs/starpin/pkg/core"
)

// Version is the current lockfile schema version.
const Version = 1

// Lock is the on-disk lockfile model.
type Lock struct {
	Version      int       `yaml:"version"`
	Workspace    string    `yaml:"workspace,omitempty"`
	Generated    time.Time `yaml:"generated"`
	Dependencies []Entry   `yaml:"dependencies"`
}

// Entry pins one dependency.
type Entry struct {
	Name        string   `yaml:"name"`
	Kind        string   `yaml:"kind"`
	SHA256      string   `yaml:"sha256,omitempty"`
	URLs        []string `yaml:"urls,omitempty"`
	StripPrefix string   `yaml:"strip_prefix,omitempty"`
	Remote      string   `yaml:"remote,omitempty"`
	Commit      string   `yaml:"commit,omitempty"`
	Tag         string   `yaml:"tag,omitempty"`
}

// Change records one field of one dependency differing between two
// lockfiles.
type Change struct {
	Name  string
	Field string
	Old   string
	New   string
}

// DiffResult summarizes how two lockfiles differ.
type DiffResult struct {
	Added   []string
	Removed []string
	Changed []Change
}

// Empty reports whether the two lockfiles agree.
func (d *DiffResult) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// FromWorkspace builds a lock from the workspace's effective
// dependencies, sorted by name.
func FromWorkspace(ws *core.Workspace, generated time.Time) *Lock {
	deps := ws.Effective()
	entries := make([]Entry, 0, len(deps))
	for _, dep := range deps {
		entries = append(entries, Entry{
			Name:        dep.Name,
			Kind:        string(dep.Kind),
			SHA256:      dep.SHA256,
			URLs:        dep.URLs,
			StripPrefix: dep.StripPrefix,
			Remote:      dep.Remote,
			Commit:      dep.Commit,
			Tag:         dep.Tag,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return &Lock{
		Version:      Version,
		Workspace:    ws.Name,
		Generated:    generated.UTC(),
		Dependencies: entries,
	}
}

// Entry returns the pinned entry for a dependency name.
func (l *Lock) Entry(name string) (Entry, bool) {
	for _, e := range l.Dependencies {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Write marshals the lock and replaces path atomically.
func Write(path string, lock *Lock) error {
	data, err := yaml.Marshal(lock)
	if err != nil {
		return fmt.Errorf("marshal lockfile: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".starpin-lock-*.tmp")
	if err != nil {
		return fmt.Errorf("write lockfile: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write lockfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write lockfile: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write lockfile: %w", err)
	}
	return nil
}

// Read parses a lockfile. Unknown fields are rejected so a corrupted or
// hand-edited lock fails loudly instead of silently dropping pins.
func Read(path string) (*Lock, error) {
	f, err := os.Open(path) //nolint:gosec // G304: the lockfile path comes from project configuration
	if err != nil {
		return nil, fmt.Errorf("read lockfile: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var lock Lock
	if err := dec.Decode(&lock); err != nil {
		return nil, fmt.Errorf("parse lockfile %s: %w", filepath.Base(path), err)
	}
	if lock.Version != Version {
		return nil, fmt.Errorf("lockfile %s has unsupported version %d (want %d)", filepath.Base(path), lock.Version, Version)
	}
	return &lock, nil
}

// Exists reports whether a lockfile is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ErrNoLockfile distinguishes a missing lock from a corrupt one.
var ErrNoLockfile = errors.New("no lockfile")

// ReadIfPresent reads a lockfile, returning ErrNoLockfile when the file
// does not exist.
func ReadIfPresent(path string) (*Lock, error) {
	if !Exists(path) {
		return nil, fmt.Errorf("%w at %s", ErrNoLockfile, path)
	}
	return Read(path)
}

// Diff compares two lockfiles dependency by dependency.
func Diff(old, updated *Lock) *DiffResult {
	oldByName := make(map[string]Entry, len(old.Dependencies))
	for _, e := range old.Dependencies {
		oldByName[e.Name] = e
	}
	newByName := make(map[string]Entry, len(updated.Dependencies))
	for _, e := range updated.Dependencies {
		newByName[e.Name] = e
	}

	d := &DiffResult{}
	for name, newEntry := range newByName {
		oldEntry, ok := oldByName[name]
		if !ok {
			d.Added = append(d.Added, name)
			continue
		}
		d.Changed = append(d.Changed, diffEntries(name, oldEntry, newEntry)...)
	}
	for name := range oldByName {
		if _, ok := newByName[name]; !ok {
			d.Removed = append(d.Removed, name)
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Slice(d.Changed, func(i, j int) bool {
		if d.Changed[i].Name != d.Changed[j].Name {
			return d.Changed[i].Name < d.Changed[j].Name
		}
		return d.Changed[i].Field < d.Changed[j].Field
	})
	return d
}

func diffEntries(name string, old, updated Entry) []Change {
	var changes []Change
	field := func(f, oldVal, newVal string) {
		if oldVal != newVal {
			changes = append(changes, Change{Name: name, Field: f, Old: oldVal, New: newVal})
		}
	}
	field("kind", old.Kind, updated.Kind)
	field("sha256", old.SHA256, updated.SHA256)
	field("strip_prefix", old.StripPrefix, updated.StripPrefix)
	field("remote", old.Remote, updated.Remote)
	field("commit", old.Commit, updated.Commit)
	field("tag", old.Tag, updated.Tag)
	field("urls", strings.Join(old.URLs, " "), strings.Join(updated.URLs, " "))
	return changes
}
