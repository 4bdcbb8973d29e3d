// fetch.go - archive download orchestration

package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/starpoint-labs/starpin/internal/archive"
	"github.com/starpoint-labs/starpin/internal/fetch"
	"github.com/starpoint-labs/starpin/internal/graph"
	"github.com/starpoint-labs/starpin/pkg/core"
)

// FetchOptions selects which dependencies to fetch.
type FetchOptions struct {
	// Deps restricts fetching to the named dependencies. Empty fetches all.
	Deps []string
	// Downstream also fetches dependents of the selected names.
	Downstream bool
	// Extract unpacks each fetched archive under the cache extract dir,
	// honoring strip_prefix.
	Extract bool
}

// FetchResult describes the outcome of a fetch pass.
type FetchResult struct {
	// Results in fetch order (prerequisite levels first), one per
	// attempted dependency.
	Results []*fetch.Result
	// Skipped lists dependencies that are not fetched over HTTP.
	Skipped []string
	// Extracted maps dependency names to their extraction directories.
	Extracted map[string]string

	Duration time.Duration
}

// Fetched counts successfully downloaded dependencies, cache hits included.
func (r *FetchResult) Fetched() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the results that carry an error.
func (r *FetchResult) Failed() []*fetch.Result {
	var failed []*fetch.Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Fetch downloads the selected dependencies into the artifact cache and
// records each successful download in the state store. The returned
// error joins the per-dependency failures; the result carries the full
// per-dependency breakdown either way.
func (e *Engine) Fetch(ctx context.Context, opts FetchOptions) (*FetchResult, error) {
	if e.ws == nil {
		return nil, fmt.Errorf("workspace not discovered, call Discover first")
	}
	if err := e.ensureStore(); err != nil {
		return nil, err
	}

	deps, skipped, err := e.selectDeps(opts.Deps, opts.Downstream)
	if err != nil {
		return nil, err
	}

	result := &FetchResult{Skipped: skipped}
	if len(deps) == 0 {
		e.logger.Info("nothing to fetch", "skipped", len(skipped))
		return result, nil
	}

	e.logger.Info("starting fetch", "dependencies", len(deps), "skipped", len(skipped))

	fetcher := e.newFetcher()
	start := time.Now()

	// Repositories referenced by other declarations (build file and
	// patch labels) download before their dependents, level by level.
	var results []*fetch.Result
	var fetchErr error
	for _, batch := range e.fetchPlan(deps) {
		res, err := fetcher.FetchAll(ctx, batch)
		results = append(results, res...)
		if err != nil {
			fetchErr = errors.Join(fetchErr, err)
			if ctx.Err() != nil {
				break
			}
		}
	}
	result.Results = results
	result.Duration = time.Since(start)

	for _, res := range results {
		if res.Err != nil {
			continue
		}
		if err := e.store.SaveArtifact(&core.Artifact{
			Name:   res.Name,
			URL:    res.URL,
			SHA256: res.SHA256,
			Size:   res.Size,
		}); err != nil {
			e.logger.Warn("failed to record artifact", "name", res.Name, "error", err)
		}
	}

	if opts.Extract {
		result.Extracted = e.extractResults(deps, results)
	}

	e.logger.Info("fetch completed",
		"fetched", result.Fetched(),
		"failed", len(result.Failed()),
		"duration_ms", result.Duration.Milliseconds())

	return result, fetchErr
}

// fetchPlan orders the selected dependencies into DAG level batches.
// Cyclic graphs fall back to a single flat batch; the cycle surfaces
// through lint and the graph command, not as a fetch error.
func (e *Engine) fetchPlan(deps []*core.Dependency) [][]*core.Dependency {
	byName := make(map[string]*core.Dependency, len(deps))
	for _, d := range deps {
		byName[d.Name] = d
	}

	levels, err := e.depGraph.Levels()
	if err != nil {
		return [][]*core.Dependency{deps}
	}

	var plan [][]*core.Dependency
	seen := make(map[string]bool, len(deps))
	for _, level := range levels {
		var batch []*core.Dependency
		for _, id := range level {
			if d, ok := byName[id]; ok && !seen[id] {
				seen[id] = true
				batch = append(batch, d)
			}
		}
		if len(batch) > 0 {
			plan = append(plan, batch)
		}
	}

	// Selection entries absent from the graph still fetch, last.
	var rest []*core.Dependency
	for _, d := range deps {
		if !seen[d.Name] {
			rest = append(rest, d)
		}
	}
	if len(rest) > 0 {
		plan = append(plan, rest)
	}
	return plan
}

// selectDeps resolves a name selection against the effective dependency
// set. Dependencies that cannot be fetched over HTTP (git repositories,
// declarations without urls) are reported as skipped, not errors.
func (e *Engine) selectDeps(names []string, downstream bool) ([]*core.Dependency, []string, error) {
	effective := e.ws.Effective()

	byName := make(map[string]*core.Dependency, len(effective))
	for _, d := range effective {
		byName[d.Name] = d
	}

	selected := make([]string, 0, len(effective))
	if len(names) == 0 {
		for _, d := range effective {
			selected = append(selected, d.Name)
		}
	} else {
		for _, n := range names {
			if _, ok := byName[n]; !ok {
				return nil, nil, fmt.Errorf("unknown dependency %q", n)
			}
		}
		selected = names
		if downstream {
			selected = e.depGraph.Downstream(selected)
		}
	}

	var deps []*core.Dependency
	var skipped []string
	for _, name := range selected {
		if graph.IsInvocationID(name) {
			continue // macro invocations are graph nodes, not archives
		}
		d, ok := byName[name]
		if !ok {
			continue
		}
		if d.Kind != core.DepHTTPArchive || len(d.URLs) == 0 {
			skipped = append(skipped, name)
			continue
		}
		deps = append(deps, d)
	}
	return deps, skipped, nil
}

// extractResults unpacks every successfully fetched archive next to the
// cache, one directory per dependency. Extraction failures are logged
// and attached to the result entry so a single bad archive does not
// abort the pass.
func (e *Engine) extractResults(deps []*core.Dependency, results []*fetch.Result) map[string]string {
	byName := make(map[string]*core.Dependency, len(deps))
	for _, d := range deps {
		byName[d.Name] = d
	}

	extractRoot := filepath.Join(e.CacheDir(), "extract")
	extracted := make(map[string]string)

	for _, res := range results {
		if res.Err != nil {
			continue
		}
		dep := byName[res.Name]
		if dep == nil {
			continue
		}

		dest := filepath.Join(extractRoot, dep.Name)
		if err := archive.Extract(res.Path, dest, dep.StripPrefix); err != nil {
			e.logger.Warn("extraction failed", "name", dep.Name, "error", err)
			res.Err = fmt.Errorf("extract %s: %w", dep.Name, err)
			continue
		}
		extracted[dep.Name] = dest
		e.logger.Debug("extracted archive", "name", dep.Name, "dest", dest)
	}

	return extracted
}
