// docs.go - documentation stub checking and coverage

package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/starpoint-labs/starpin/pkg/lint/docs"
)

// DocIssue describes one autosummary entry that will not render.
type DocIssue struct {
	// Page is the page path relative to the docs directory.
	Page string
	// Entry is the identifier as written.
	Entry string
	// Module is the module the entry was resolved against, if any.
	Module string
	Pos    core.Position
	Reason string
	// Suggestions lists near-miss symbol names from the module surface.
	Suggestions []string
}

func (i *DocIssue) String() string {
	s := fmt.Sprintf("%s: %s: %s", i.Pos, i.Entry, i.Reason)
	if len(i.Suggestions) > 0 {
		s += fmt.Sprintf(" (did you mean %s?)", strings.Join(i.Suggestions, ", "))
	}
	return s
}

// DocsCheckResult describes the outcome of resolving every entry.
type DocsCheckResult struct {
	Pages    int
	Entries  int
	Resolved int
	Issues   []*DocIssue
	Duration time.Duration
}

// OK reports whether every entry resolved.
func (r *DocsCheckResult) OK() bool {
	return len(r.Issues) == 0
}

// IssuesForPage returns the issues found on one page.
func (r *DocsCheckResult) IssuesForPage(page string) []*DocIssue {
	var issues []*DocIssue
	for _, issue := range r.Issues {
		if issue.Page == page {
			issues = append(issues, issue)
		}
	}
	return issues
}

// CheckDocs resolves every autosummary entry against the scanned source
// surface: each listed identifier must exist as an importable attribute
// of the module in scope. Private names resolve; whether they belong in
// the docs is a lint concern, not a resolution failure.
func (e *Engine) CheckDocs() (*DocsCheckResult, error) {
	if e.resolver == nil {
		return nil, fmt.Errorf("sources not discovered, call Discover first")
	}

	start := time.Now()
	result := &DocsCheckResult{Pages: len(e.pages)}

	for _, page := range e.pages {
		for _, entry := range page.Entries {
			result.Entries++
			if issue := e.checkEntry(page, entry); issue != nil {
				result.Issues = append(result.Issues, issue)
			} else {
				result.Resolved++
			}
		}
	}

	result.Duration = time.Since(start)

	e.logger.Info("docs check completed",
		"pages", result.Pages,
		"entries", result.Entries,
		"resolved", result.Resolved,
		"issues", len(result.Issues),
		"duration_ms", result.Duration.Milliseconds())

	return result, nil
}

// checkEntry resolves one entry, or explains why it cannot.
func (e *Engine) checkEntry(page *core.Page, entry *core.Entry) *DocIssue {
	issue := &DocIssue{
		Page:   page.Path,
		Entry:  entry.Name,
		Module: entry.Module,
		Pos:    entry.Pos,
	}

	qualified := strings.Contains(entry.Name, ".")

	if entry.Module == "" {
		if qualified {
			if _, ok := e.resolver.ResolveQualified(entry.Name); ok {
				return nil
			}
			issue.Reason = "does not resolve against any scanned module"
			return issue
		}
		issue.Reason = "no module in scope, add a currentmodule or automodule directive"
		return issue
	}

	if _, ok := e.resolver.Module(entry.Module); !ok && !qualified {
		issue.Reason = fmt.Sprintf("module %s is not importable", entry.Module)
		return issue
	}

	if _, ok := e.resolver.Resolve(entry.Module, entry.Name); ok {
		return nil
	}

	issue.Reason = fmt.Sprintf("not importable from %s", entry.Module)
	if !qualified {
		issue.Suggestions = e.resolver.Suggest(entry.Module, entry.Name)
	}
	return issue
}

// ModuleCoverage summarizes how much of one module's public surface the
// documentation lists.
type ModuleCoverage struct {
	Module string
	// Public counts public symbols in the scanned surface.
	Public int
	// Documented counts public symbols listed on some page, directly
	// or through an alias.
	Documented int
	// Missing lists public symbols no page mentions.
	Missing []string
	// Extra lists entries attributed to this module that do not resolve.
	Extra []string
}

// Percent returns documentation coverage as a percentage.
func (c *ModuleCoverage) Percent() float64 {
	if c.Public == 0 {
		return 100.0
	}
	return float64(c.Documented) / float64(c.Public) * 100.0
}

// CoverageResult aggregates coverage over every scanned module.
type CoverageResult struct {
	Modules         []*ModuleCoverage
	TotalPublic     int
	TotalDocumented int
	Duration        time.Duration
}

// Percent returns overall documentation coverage as a percentage.
func (r *CoverageResult) Percent() float64 {
	if r.TotalPublic == 0 {
		return 100.0
	}
	return float64(r.TotalDocumented) / float64(r.TotalPublic) * 100.0
}

// Coverage computes per-module documentation coverage: which public
// symbols the stub pages list, which they miss, and which entries do
// not resolve at all.
func (e *Engine) Coverage() (*CoverageResult, error) {
	if e.resolver == nil {
		return nil, fmt.Errorf("sources not discovered, call Discover first")
	}

	start := time.Now()

	check, err := e.CheckDocs()
	if err != nil {
		return nil, err
	}
	extraByModule := make(map[string][]string)
	for _, issue := range check.Issues {
		if issue.Module == "" {
			continue
		}
		extraByModule[issue.Module] = append(extraByModule[issue.Module], issue.Entry)
	}

	docsCtx := docs.NewContext(e.pages, e.resolver)
	result := &CoverageResult{}

	for _, path := range e.resolver.ModulePaths() {
		cov := &ModuleCoverage{
			Module: path,
			Extra:  extraByModule[path],
		}
		for _, sym := range e.resolver.Surface(path) {
			if !sym.Public {
				continue
			}
			cov.Public++
			if docsCtx.Documented(path, sym.Name) {
				cov.Documented++
			} else {
				cov.Missing = append(cov.Missing, sym.Name)
			}
		}
		sort.Strings(cov.Missing)
		result.Modules = append(result.Modules, cov)
		result.TotalPublic += cov.Public
		result.TotalDocumented += cov.Documented
	}

	result.Duration = time.Since(start)

	e.logger.Info("coverage computed",
		"modules", len(result.Modules),
		"public", result.TotalPublic,
		"documented", result.TotalDocumented)

	return result, nil
}
