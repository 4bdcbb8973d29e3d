// audit.go - full audit orchestration, recorded in the state store

package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/starpoint-labs/starpin/pkg/core"
)

// AuditOptions configures a full audit.
type AuditOptions struct {
	// Discovery options are passed through to the discovery pass.
	Discovery DiscoveryOptions
	// Offline skips fetching; verification runs against whatever the
	// cache already holds.
	Offline bool
}

// AuditResult aggregates the outcome of every audit stage.
type AuditResult struct {
	Run       *core.Run
	Discovery *DiscoveryResult
	Fetch     *FetchResult
	Verify    *VerifyResult
	Docs      *DocsCheckResult
	Lint      *LintResult
	Findings  []*core.Finding
}

// Audit runs the whole pipeline in two phases. Phase 1 parses and
// validates everything offline: discovery, lint, and docs resolution.
// Phase 2 executes the network work: fetching archives and verifying
// pins. Every stage is recorded against a single run, with one check
// row per dependency and per page, so `starpin list` can replay what
// happened.
//
// A failed check marks the run failed; the error return mirrors that.
// Infrastructure failures (store unavailable, workspace unparseable)
// abort before a run is created.
func (e *Engine) Audit(ctx context.Context, opts AuditOptions) (*AuditResult, error) {
	e.logger.Info("starting audit", "offline", opts.Offline)

	// Phase 1: parse and validate everything before any network work.
	disc, err := e.Discover(opts.Discovery)
	if err != nil {
		return nil, err
	}

	lintRes, err := e.Lint()
	if err != nil {
		return nil, err
	}

	var docsRes *DocsCheckResult
	if e.resolver != nil {
		docsRes, err = e.CheckDocs()
		if err != nil {
			return nil, err
		}
	}

	if err := e.ensureStore(); err != nil {
		return nil, err
	}

	run, err := e.store.CreateRun(e.ProjectName())
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	e.logger.Debug("created run", "run_id", run.ID)

	result := &AuditResult{
		Run:       run,
		Discovery: disc,
		Lint:      lintRes,
		Docs:      docsRes,
	}

	// Cache the scanned surface so later commands can query symbols
	// without re-scanning the source tree.
	e.persistSymbols()

	var failures []string

	// Phase 2: fetch, then verify what the cache holds.
	if !opts.Offline {
		fetchRes, fetchErr := e.Fetch(ctx, FetchOptions{})
		result.Fetch = fetchRes
		e.recordFetchChecks(run.ID, fetchRes)
		if fetchErr != nil && fetchRes != nil {
			failures = append(failures, fmt.Sprintf("%d dependencies failed to fetch", len(fetchRes.Failed())))
		}
	}

	verifyRes, err := e.Verify()
	if err != nil {
		_ = e.store.CompleteRun(run.ID, core.RunStatusFailed, err.Error())
		run, _ = e.store.GetRun(run.ID)
		result.Run = run
		return result, err
	}
	result.Verify = verifyRes
	e.recordVerifyChecks(run.ID, verifyRes)
	if failed := verifyRes.Failed(); len(failed) > 0 {
		failures = append(failures, fmt.Sprintf("%d pins failed verification", len(failed)))
	}

	if docsRes != nil {
		e.recordDocsChecks(run.ID, docsRes)
		if len(docsRes.Issues) > 0 {
			failures = append(failures, fmt.Sprintf("%d unresolved docs entries", len(docsRes.Issues)))
		}
	}

	result.Findings = findingsFromDiagnostics(run.ID, lintRes)
	if err := e.store.SaveFindings(run.ID, result.Findings); err != nil {
		e.logger.Warn("failed to save findings", "error", err)
	}
	if errors, _, _ := lintRes.Counts(); errors > 0 {
		failures = append(failures, fmt.Sprintf("%d lint errors", errors))
	}

	var auditErr error
	if len(failures) > 0 {
		msg := strings.Join(failures, "; ")
		e.logger.Info("audit failed", "run_id", run.ID, "error", msg)
		_ = e.store.CompleteRun(run.ID, core.RunStatusFailed, msg)
		auditErr = fmt.Errorf("audit failed: %s", msg)
	} else {
		e.logger.Info("audit completed", "run_id", run.ID)
		_ = e.store.CompleteRun(run.ID, core.RunStatusCompleted, "")
	}

	run, _ = e.store.GetRun(run.ID)
	result.Run = run
	return result, auditErr
}

// recordFetchChecks writes one fetch check row per dependency.
func (e *Engine) recordFetchChecks(runID string, res *FetchResult) {
	if res == nil {
		return
	}
	for _, r := range res.Results {
		check := &core.Check{RunID: runID, Kind: core.CheckFetch, Target: r.Name}
		if err := e.store.RecordCheck(check); err != nil {
			e.logger.Warn("failed to record check", "target", r.Name, "error", err)
			continue
		}
		status := core.CheckStatusOK
		errMsg := ""
		if r.Err != nil {
			status = core.CheckStatusFailed
			errMsg = r.Err.Error()
		}
		_ = e.store.UpdateCheck(check.ID, status, r.Duration.Milliseconds(), errMsg)
	}
	for _, name := range res.Skipped {
		check := &core.Check{RunID: runID, Kind: core.CheckFetch, Target: name}
		if err := e.store.RecordCheck(check); err != nil {
			continue
		}
		_ = e.store.UpdateCheck(check.ID, core.CheckStatusSkipped, 0, "not fetched over HTTP")
	}
}

// recordVerifyChecks writes one verify check row per dependency.
// Missing and unpinned entries record as skipped, they assert nothing.
func (e *Engine) recordVerifyChecks(runID string, res *VerifyResult) {
	for _, v := range res.Checks {
		check := &core.Check{RunID: runID, Kind: core.CheckVerify, Target: v.Name}
		if err := e.store.RecordCheck(check); err != nil {
			e.logger.Warn("failed to record check", "target", v.Name, "error", err)
			continue
		}
		var status core.CheckStatus
		errMsg := ""
		switch v.Status {
		case VerifyOK:
			status = core.CheckStatusOK
		case VerifyMismatch, VerifyDrift:
			status = core.CheckStatusFailed
			errMsg = v.Detail
		default:
			status = core.CheckStatusSkipped
			errMsg = v.Detail
		}
		_ = e.store.UpdateCheck(check.ID, status, 0, errMsg)
	}
}

// recordDocsChecks writes one docs check row per page.
func (e *Engine) recordDocsChecks(runID string, res *DocsCheckResult) {
	for _, page := range e.pages {
		check := &core.Check{RunID: runID, Kind: core.CheckDocs, Target: page.Path}
		if err := e.store.RecordCheck(check); err != nil {
			e.logger.Warn("failed to record check", "target", page.Path, "error", err)
			continue
		}
		issues := res.IssuesForPage(page.Path)
		if len(issues) == 0 {
			_ = e.store.UpdateCheck(check.ID, core.CheckStatusOK, 0, "")
			continue
		}
		_ = e.store.UpdateCheck(check.ID, core.CheckStatusFailed, 0,
			fmt.Sprintf("%d unresolved entries", len(issues)))
	}
}

// persistSymbols refreshes the symbol cache to match the current scan,
// dropping modules that disappeared from the source tree.
func (e *Engine) persistSymbols() {
	current := make(map[string]bool, len(e.modules))
	for _, m := range e.modules {
		current[m.Path] = true
		if err := e.store.SaveModuleSymbols(m.Path, m.Symbols); err != nil {
			e.logger.Warn("failed to cache module symbols", "module", m.Path, "error", err)
			return
		}
	}

	cached, err := e.store.ListModulePaths()
	if err != nil {
		return
	}
	for _, path := range cached {
		if !current[path] {
			_ = e.store.DeleteModuleSymbols(path)
		}
	}
}

// findingsFromDiagnostics converts lint diagnostics to stored findings.
func findingsFromDiagnostics(runID string, res *LintResult) []*core.Finding {
	findings := make([]*core.Finding, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		findings = append(findings, &core.Finding{
			RunID:    runID,
			RuleID:   d.RuleID,
			Severity: d.Severity,
			Message:  d.Message,
			File:     d.Pos.File,
			Line:     d.Pos.Line,
		})
	}
	return findings
}
