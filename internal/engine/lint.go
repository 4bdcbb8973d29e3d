// lint.go - rule evaluation over the discovered project

package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/starpoint-labs/starpin/pkg/lint"
	"github.com/starpoint-labs/starpin/pkg/lint/docs"
	"github.com/starpoint-labs/starpin/pkg/lint/workspace"

	// Register the built-in rule sets.
	_ "github.com/starpoint-labs/starpin/pkg/lint/docs/rules"
	_ "github.com/starpoint-labs/starpin/pkg/lint/workspace/rules"
)

// LintResult holds every diagnostic the rule sets produced.
type LintResult struct {
	Diagnostics []lint.Diagnostic
	Duration    time.Duration
}

// Counts tallies diagnostics by severity.
func (r *LintResult) Counts() (errors, warnings, infos int) {
	for _, d := range r.Diagnostics {
		switch d.Severity {
		case core.SeverityError:
			errors++
		case core.SeverityWarning:
			warnings++
		default:
			infos++
		}
	}
	return errors, warnings, infos
}

// Lint runs the workspace and docs rule sets with the project's rule
// configuration applied. Diagnostics come back ordered by position so
// repeated runs render identically.
func (e *Engine) Lint() (*LintResult, error) {
	if e.ws == nil {
		return nil, fmt.Errorf("workspace not discovered, call Discover first")
	}

	start := time.Now()
	config := lint.FromProjectConfig(e.cfg.Lint)

	diagnostics := workspace.NewAnalyzer(config).Analyze(e.ws)

	// A typed nil resolver must not reach the docs rules as a non-nil
	// interface.
	var resolver lint.Resolver
	if e.resolver != nil {
		resolver = e.resolver
	}
	diagnostics = append(diagnostics, docs.NewAnalyzer(config).Analyze(e.pages, resolver)...)

	sort.SliceStable(diagnostics, func(i, j int) bool {
		a, b := diagnostics[i], diagnostics[j]
		if a.Pos.File != b.Pos.File {
			return a.Pos.File < b.Pos.File
		}
		if a.Pos.Line != b.Pos.Line {
			return a.Pos.Line < b.Pos.Line
		}
		return a.RuleID < b.RuleID
	})

	result := &LintResult{
		Diagnostics: diagnostics,
		Duration:    time.Since(start),
	}

	errors, warnings, infos := result.Counts()
	e.logger.Info("lint completed",
		"errors", errors,
		"warnings", warnings,
		"infos", infos,
		"duration_ms", result.Duration.Milliseconds())

	return result, nil
}
