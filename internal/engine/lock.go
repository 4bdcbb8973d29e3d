// lock.go - lockfile generation and drift checking

package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/starpoint-labs/starpin/internal/lockfile"
)

// LockOutcome describes a lockfile write.
type LockOutcome struct {
	Lock *lockfile.Lock
	// Diff against the previous lockfile, nil when none existed.
	Diff *lockfile.DiffResult
	Path string
}

// WriteLock regenerates the lockfile from the effective declarations
// and reports how it moved relative to the previous one.
func (e *Engine) WriteLock() (*LockOutcome, error) {
	if e.ws == nil {
		return nil, fmt.Errorf("workspace not discovered, call Discover first")
	}

	updated := lockfile.FromWorkspace(e.ws, time.Now())
	outcome := &LockOutcome{Lock: updated, Path: e.LockPath()}

	old, err := lockfile.ReadIfPresent(outcome.Path)
	if err != nil && !errors.Is(err, lockfile.ErrNoLockfile) {
		return nil, fmt.Errorf("failed to read existing lockfile: %w", err)
	}
	if old != nil {
		outcome.Diff = lockfile.Diff(old, updated)
	}

	if err := lockfile.Write(outcome.Path, updated); err != nil {
		return nil, err
	}

	e.logger.Info("lockfile written",
		"path", outcome.Path,
		"dependencies", len(updated.Dependencies))

	return outcome, nil
}

// CheckLock reports how the lockfile on disk disagrees with the current
// declarations, without writing anything. A missing lockfile is an
// error here: there is nothing to check against.
func (e *Engine) CheckLock() (*lockfile.DiffResult, error) {
	if e.ws == nil {
		return nil, fmt.Errorf("workspace not discovered, call Discover first")
	}

	old, err := lockfile.ReadIfPresent(e.LockPath())
	if err != nil {
		return nil, err
	}

	updated := lockfile.FromWorkspace(e.ws, time.Now())
	return lockfile.Diff(old, updated), nil
}
