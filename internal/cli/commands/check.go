package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/starpoint-labs/starpin/internal/cli/output"
	"github.com/starpoint-labs/starpin/internal/engine"
	"github.com/starpoint-labs/starpin/pkg/core"
)

// CheckOptions holds options for the check command.
type CheckOptions struct {
	Offline  bool   // Skip fetching, verify against the cache only
	Severity string // Minimum severity to display: error, warning, info
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the full audit: fetch, verify, docs, and lint",
		Long: `Run every check against the project and record the results.

The audit parses the workspace, lints the declarations, resolves every
documentation stub entry against the scanned sources, fetches any
missing archives, and verifies each pin against its declared digest.
Results are recorded in the state database for 'starpin list' and
'starpin query'.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run the full audit
  starpin check

  # Verify against the cache without network access
  starpin check --offline

  # Show only errors
  starpin check --severity error

  # Machine-readable results
  starpin check --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "Skip fetching, verify against the cache only")
	cmd.Flags().StringVar(&opts.Severity, "severity", "info", "Minimum severity to display: error, warning, info")

	return cmd
}

func runCheck(cmd *cobra.Command, opts *CheckOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer

	var spinner *output.Spinner
	if r.IsTTY() {
		spinner = r.NewSpinner("Running checks...")
		spinner.Start()
	}

	result, auditErr := eng.Audit(cmd.Context(), engine.AuditOptions{Offline: opts.Offline})
	if result == nil {
		if spinner != nil {
			spinner.Fail("Check failed")
		}
		return auditErr
	}
	if spinner != nil {
		if auditErr != nil {
			spinner.Fail("Checks failed")
		} else {
			spinner.Success("Checks passed")
		}
	}

	checkOutput := buildCheckOutput(result, opts.Severity)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(checkOutput); err != nil {
			return err
		}
	case output.ModeMarkdown:
		checkMarkdown(r, result, checkOutput)
	default:
		checkText(r, result, checkOutput, auditErr == nil)
	}

	return auditErr
}

func buildCheckOutput(result *engine.AuditResult, severity string) output.CheckOutput {
	out := output.CheckOutput{}

	if result.Run != nil {
		out.Run = &output.RunInfo{
			ID:      result.Run.ID,
			Project: result.Run.Project,
			Status:  string(result.Run.Status),
		}
	}
	if result.Fetch != nil {
		cached := countCached(result.Fetch)
		out.Fetch = &output.FetchSummary{
			Total:      len(result.Fetch.Results) + len(result.Fetch.Skipped),
			Downloaded: result.Fetch.Fetched() - cached,
			Cached:     cached,
			Failed:     len(result.Fetch.Failed()),
		}
	}
	if result.Verify != nil {
		ok := 0
		for _, c := range result.Verify.Checks {
			if c.Status == engine.VerifyOK {
				ok++
			}
		}
		out.Verify = &output.VerifySummary{
			Total:       len(result.Verify.Checks),
			OK:          ok,
			Failed:      len(result.Verify.Failed()),
			LockPresent: result.Verify.LockPresent,
		}
	}
	if result.Docs != nil {
		out.Docs = &output.DocsSummary{
			Pages:    result.Docs.Pages,
			Entries:  result.Docs.Entries,
			Resolved: result.Docs.Resolved,
			Issues:   len(result.Docs.Issues),
		}
	}

	threshold, ok := core.ParseSeverity(severity)
	if !ok {
		threshold = core.SeverityInfo
	}
	if result.Lint != nil {
		for _, d := range result.Lint.Diagnostics {
			switch d.Severity {
			case core.SeverityError:
				out.Summary.Errors++
			case core.SeverityWarning:
				out.Summary.Warnings++
			default:
				out.Summary.Infos++
			}
			if d.Severity > threshold {
				continue
			}
			out.Findings = append(out.Findings, output.FindingInfo{
				RuleID:   d.RuleID,
				Severity: d.Severity.String(),
				Message:  d.Message,
				File:     d.Pos.File,
				Line:     d.Pos.Line,
			})
		}
	}

	return out
}

func countCached(res *engine.FetchResult) int {
	n := 0
	for _, r := range res.Results {
		if r.Err == nil && r.Cached {
			n++
		}
	}
	return n
}

func checkText(r *output.Renderer, result *engine.AuditResult, out output.CheckOutput, passed bool) {
	// Stage failures come first so they are impossible to miss.
	if result.Fetch != nil {
		for _, f := range result.Fetch.Failed() {
			r.StatusLine(f.Name, "error", f.Err.Error())
		}
	}
	if result.Verify != nil {
		for _, v := range result.Verify.Failed() {
			r.StatusLine(v.Name, "error", v.Detail)
		}
	}
	if result.Docs != nil {
		for _, issue := range result.Docs.Issues {
			detail := issue.Reason
			if len(issue.Suggestions) > 0 {
				detail += fmt.Sprintf(", did you mean %s?", strings.Join(issue.Suggestions, ", "))
			}
			r.StatusLine(fmt.Sprintf("%s: %s", issue.Page, issue.Entry), "error", detail)
		}
	}

	renderFindings(r, out.Findings)

	parts := []string{}
	if out.Fetch != nil {
		parts = append(parts, fmt.Sprintf("%d fetched", out.Fetch.Downloaded+out.Fetch.Cached))
	}
	if out.Verify != nil {
		parts = append(parts, fmt.Sprintf("%d/%d pins verified", out.Verify.OK, out.Verify.Total))
	}
	if out.Docs != nil {
		parts = append(parts, fmt.Sprintf("%d/%d docs entries resolved", out.Docs.Resolved, out.Docs.Entries))
	}
	if total := out.Summary.Errors + out.Summary.Warnings + out.Summary.Infos; total > 0 {
		parts = append(parts, fmt.Sprintf("%d findings", total))
	}
	if len(parts) > 0 {
		r.Printf("Summary: %s\n", strings.Join(parts, ", "))
	}

	if passed {
		r.Success("All checks passed")
	} else {
		r.Error("Checks failed")
	}
	if out.Run != nil {
		r.Muted(fmt.Sprintf("Run %s recorded", out.Run.ID))
	}
}

// renderFindings prints lint diagnostics grouped by file, one aligned
// line per finding.
func renderFindings(r *output.Renderer, findings []output.FindingInfo) {
	if len(findings) == 0 {
		return
	}

	byFile := map[string][]output.FindingInfo{}
	var order []string
	for _, f := range findings {
		if _, seen := byFile[f.File]; !seen {
			order = append(order, f.File)
		}
		byFile[f.File] = append(byFile[f.File], f)
	}

	for _, file := range order {
		name := file
		if name == "" {
			name = "(project)"
		}
		r.Println(r.Styles().RepoName.Render(name))
		for _, f := range byFile[file] {
			loc := fmt.Sprintf("%d", f.Line)
			if f.Line == 0 {
				loc = "-"
			}
			r.Printf("  %s  %s  %s  %s\n",
				r.Styles().Muted.Render(fmt.Sprintf("%-4s", loc)),
				severityStyle(r, f.Severity),
				r.Styles().Bold.Render(f.RuleID),
				f.Message,
			)
		}
		r.Println("")
	}
}

func severityStyle(r *output.Renderer, severity string) string {
	switch severity {
	case "error":
		return r.Styles().Error.Render("error  ")
	case "warning":
		return r.Styles().Warning.Render("warning")
	case "info":
		return r.Styles().Info.Render("info   ")
	default:
		return r.Styles().Muted.Render("unknown")
	}
}

func checkMarkdown(r *output.Renderer, result *engine.AuditResult, out output.CheckOutput) {
	r.Println(output.FormatHeader(1, "Check Results"))
	r.Println("")
	if out.Run != nil {
		r.Println(output.FormatKeyValue("Run", out.Run.ID))
		r.Println(output.FormatKeyValue("Status", out.Run.Status))
	}
	if out.Fetch != nil {
		r.Println(output.FormatKeyValue("Fetched", fmt.Sprintf("%d downloaded, %d cached, %d failed",
			out.Fetch.Downloaded, out.Fetch.Cached, out.Fetch.Failed)))
	}
	if out.Verify != nil {
		r.Println(output.FormatKeyValue("Pins verified", fmt.Sprintf("%d/%d", out.Verify.OK, out.Verify.Total)))
	}
	if out.Docs != nil {
		r.Println(output.FormatKeyValue("Docs entries resolved", fmt.Sprintf("%d/%d", out.Docs.Resolved, out.Docs.Entries)))
	}
	r.Println(output.FormatKeyValue("Findings", fmt.Sprintf("%d errors, %d warnings, %d infos",
		out.Summary.Errors, out.Summary.Warnings, out.Summary.Infos)))
	r.Println("")

	if result.Verify != nil && len(result.Verify.Failed()) > 0 {
		r.Println(output.FormatHeader(2, "Failed Pins"))
		r.Println("")
		for _, v := range result.Verify.Failed() {
			r.Printf("- %s: %s\n", v.Name, v.Detail)
		}
		r.Println("")
	}
	if result.Docs != nil && len(result.Docs.Issues) > 0 {
		r.Println(output.FormatHeader(2, "Unresolved Docs Entries"))
		r.Println("")
		for _, issue := range result.Docs.Issues {
			r.Printf("- %s: `%s` (%s)\n", issue.Page, issue.Entry, issue.Reason)
		}
		r.Println("")
	}
	if len(out.Findings) > 0 {
		r.Println(output.FormatHeader(2, "Findings"))
		r.Println("")
		for _, f := range out.Findings {
			loc := f.File
			if f.Line > 0 {
				loc = fmt.Sprintf("%s:%d", f.File, f.Line)
			}
			r.Printf("- **%s** (%s) %s: %s\n", f.RuleID, f.Severity, loc, f.Message)
		}
		r.Println("")
	}
}
