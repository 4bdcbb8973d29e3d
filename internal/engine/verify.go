// verify.go - offline pin verification against the cache and lockfile

package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/starpoint-labs/starpin/internal/fetch"
	"github.com/starpoint-labs/starpin/internal/lockfile"
	"github.com/starpoint-labs/starpin/pkg/core"
)

// VerifyStatus classifies the pin state of one dependency.
type VerifyStatus string

// Verification status constants.
const (
	// VerifyOK means declaration, lockfile, and cached content agree.
	VerifyOK VerifyStatus = "ok"
	// VerifyMismatch means the cached artifact does not hash to the
	// declared digest.
	VerifyMismatch VerifyStatus = "mismatch"
	// VerifyMissing means the artifact has not been fetched yet.
	VerifyMissing VerifyStatus = "missing"
	// VerifyUnpinned means the declaration fixes no exact content.
	VerifyUnpinned VerifyStatus = "unpinned"
	// VerifyDrift means the lockfile disagrees with the declaration.
	VerifyDrift VerifyStatus = "drift"
)

// Verification is the outcome for a single dependency.
type Verification struct {
	Name   string
	Kind   core.DependencyKind
	Status VerifyStatus
	// Declared is the pin from the workspace: a sha256 for archives,
	// a commit for git repositories.
	Declared string
	// Locked is the corresponding pin from the lockfile, if present.
	Locked string
	// Actual is the digest the cached artifact hashes to, if re-hashed.
	Actual string
	Detail string
}

// VerifyResult describes the outcome of a verification pass.
type VerifyResult struct {
	Checks      []*Verification
	LockPresent bool
	Duration    time.Duration
}

// Failed returns the verifications that indicate broken pins: checksum
// mismatches and lock drift.
func (r *VerifyResult) Failed() []*Verification {
	var failed []*Verification
	for _, v := range r.Checks {
		if v.Status == VerifyMismatch || v.Status == VerifyDrift {
			failed = append(failed, v)
		}
	}
	return failed
}

// Warnings returns the verifications that could not assert anything:
// unpinned declarations and artifacts not yet fetched.
func (r *VerifyResult) Warnings() []*Verification {
	var warns []*Verification
	for _, v := range r.Checks {
		if v.Status == VerifyMissing || v.Status == VerifyUnpinned {
			warns = append(warns, v)
		}
	}
	return warns
}

// OK reports whether no verification failed. Missing and unpinned
// entries do not fail a pass; they surface as warnings.
func (r *VerifyResult) OK() bool {
	return len(r.Failed()) == 0
}

// Verify checks every effective declaration against the artifact cache
// and the lockfile, entirely offline. Cached archives are re-hashed so
// a corrupted cache cannot hide behind its filename.
func (e *Engine) Verify() (*VerifyResult, error) {
	if e.ws == nil {
		return nil, fmt.Errorf("workspace not discovered, call Discover first")
	}

	start := time.Now()
	result := &VerifyResult{}

	lock, err := lockfile.ReadIfPresent(e.LockPath())
	if err != nil && !errors.Is(err, lockfile.ErrNoLockfile) {
		return nil, fmt.Errorf("failed to read lockfile: %w", err)
	}
	result.LockPresent = lock != nil

	cache := fetch.NewCache(e.CacheDir())
	effective := e.ws.Effective()

	e.logger.Info("starting verification",
		"dependencies", len(effective),
		"lock_present", result.LockPresent)

	declared := make(map[string]bool, len(effective))
	for _, dep := range effective {
		declared[dep.Name] = true
		result.Checks = append(result.Checks, e.verifyDep(dep, lock, cache))
	}

	// Lock entries that no longer correspond to a declaration are drift:
	// the lockfile promises a pin the workspace stopped making.
	if lock != nil {
		for _, entry := range lock.Dependencies {
			if declared[entry.Name] {
				continue
			}
			locked := entry.SHA256
			if locked == "" {
				locked = entry.Commit
			}
			result.Checks = append(result.Checks, &Verification{
				Name:   entry.Name,
				Kind:   core.DependencyKind(entry.Kind),
				Status: VerifyDrift,
				Locked: locked,
				Detail: "locked but no longer declared",
			})
		}
	}

	result.Duration = time.Since(start)

	e.logger.Info("verification completed",
		"checked", len(result.Checks),
		"failed", len(result.Failed()),
		"warnings", len(result.Warnings()),
		"duration_ms", result.Duration.Milliseconds())

	return result, nil
}

// verifyDep classifies one declaration.
func (e *Engine) verifyDep(dep *core.Dependency, lock *lockfile.Lock, cache *fetch.Cache) *Verification {
	v := &Verification{Name: dep.Name, Kind: dep.Kind}

	var locked lockfile.Entry
	hasLock := false
	if lock != nil {
		locked, hasLock = lock.Entry(dep.Name)
	}

	if dep.Kind == core.DepGitRepository {
		v.Declared = dep.Commit
		if hasLock {
			v.Locked = locked.Commit
		}
		switch {
		case dep.Commit == "":
			v.Status = VerifyUnpinned
			if dep.Tag != "" {
				v.Detail = fmt.Sprintf("pinned only by tag %q, tags can move", dep.Tag)
			} else {
				v.Detail = "no commit pinned"
			}
		case hasLock && locked.Commit != dep.Commit:
			v.Status = VerifyDrift
			v.Detail = "declared commit differs from lock"
		default:
			v.Status = VerifyOK
			v.Detail = "commit pin; content not re-hashed offline"
		}
		return v
	}

	v.Declared = dep.SHA256
	if hasLock {
		v.Locked = locked.SHA256
	}

	switch {
	case dep.SHA256 == "":
		v.Status = VerifyUnpinned
		v.Detail = "no sha256 declared"
	case hasLock && locked.SHA256 != dep.SHA256:
		v.Status = VerifyDrift
		v.Detail = "declared sha256 differs from lock"
	case !cache.Has(dep.SHA256):
		v.Status = VerifyMissing
		v.Detail = "artifact not in cache, run fetch first"
	default:
		actual, _, err := fetch.HashFile(cache.Path(dep.SHA256))
		if err != nil {
			v.Status = VerifyMissing
			v.Detail = fmt.Sprintf("cannot read cached artifact: %v", err)
			break
		}
		v.Actual = actual
		if actual != dep.SHA256 {
			v.Status = VerifyMismatch
			v.Detail = "cached artifact does not hash to the declared sha256"
		} else {
			v.Status = VerifyOK
		}
	}
	return v
}
