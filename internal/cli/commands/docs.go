package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/starpoint-labs/starpin/internal/cli/output"
	"github.com/starpoint-labs/starpin/internal/engine"
)

// NewDocsCommand creates the docs command with subcommands.
func NewDocsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Check and maintain documentation stub pages",
		Long: `Work with the reStructuredText stub pages under the docs directory.

Subcommands resolve every autosummary entry against the scanned
sources, measure how much of the public surface the pages list, and
import reference pages from a rendered documentation site.`,
	}

	cmd.AddCommand(newDocsCheckCommand())
	cmd.AddCommand(newDocsCoverageCommand())
	cmd.AddCommand(newDocsImportCommand())

	return cmd
}

func newDocsCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Resolve every stub entry against the sources",
		Long: `Check that every identifier listed under an autosummary directive
exists as an importable attribute of the module in scope.

Entries that fail to resolve are reported with the nearest matching
symbol names, so typos are cheap to fix.`,
		Example: `  # Check all stub pages
  starpin docs check

  # Machine-readable issues
  starpin docs check --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDocsCheck(cmd)
		},
	}
}

func newDocsCoverageCommand() *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Report how much of the public surface the pages list",
		Long: `Compute per-module documentation coverage.

A public symbol counts as documented when some stub page lists it,
directly or through an alias. Use --threshold to fail the command when
overall coverage drops below a percentage.`,
		Example: `  # Show coverage per module
  starpin docs coverage

  # Fail below 90% overall coverage (CI)
  starpin docs coverage --threshold 90`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDocsCoverage(cmd, threshold)
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Fail when overall coverage is below this percentage")

	return cmd
}

func runDocsCheck(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer

	if _, err := eng.Discover(engine.DiscoveryOptions{}); err != nil {
		return fmt.Errorf("failed to discover project: %w", err)
	}

	result, err := eng.CheckDocs()
	if err != nil {
		return err
	}

	docsOutput := buildDocsCheckOutput(result)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(docsOutput); err != nil {
			return err
		}
	case output.ModeMarkdown:
		docsCheckMarkdown(r, docsOutput)
	default:
		docsCheckText(r, docsOutput)
	}

	if len(result.Issues) > 0 {
		return fmt.Errorf("%d of %d docs entries failed to resolve", len(result.Issues), result.Entries)
	}
	return nil
}

func buildDocsCheckOutput(result *engine.DocsCheckResult) output.DocsCheckOutput {
	out := output.DocsCheckOutput{
		Pages:    result.Pages,
		Entries:  result.Entries,
		Resolved: result.Resolved,
	}
	for _, issue := range result.Issues {
		out.Issues = append(out.Issues, output.DocsIssue{
			Page:        issue.Page,
			Entry:       issue.Entry,
			Module:      issue.Module,
			Reason:      issue.Reason,
			Suggestions: issue.Suggestions,
			File:        issue.Pos.File,
			Line:        issue.Pos.Line,
		})
	}
	return out
}

func docsCheckText(r *output.Renderer, out output.DocsCheckOutput) {
	for _, issue := range out.Issues {
		detail := issue.Reason
		if len(issue.Suggestions) > 0 {
			detail += fmt.Sprintf(", did you mean %s?", strings.Join(issue.Suggestions, ", "))
		}
		r.StatusLine(fmt.Sprintf("%s: %s", issue.Page, issue.Entry), "error", detail)
	}

	if len(out.Issues) == 0 {
		r.Success(fmt.Sprintf("All %d entries resolved across %d pages", out.Entries, out.Pages))
	} else {
		r.Error(fmt.Sprintf("%d of %d entries failed to resolve", len(out.Issues), out.Entries))
	}
}

func docsCheckMarkdown(r *output.Renderer, out output.DocsCheckOutput) {
	r.Println(output.FormatHeader(1, "Docs Check"))
	r.Println("")
	r.Println(output.FormatKeyValue("Pages", fmt.Sprintf("%d", out.Pages)))
	r.Println(output.FormatKeyValue("Entries", fmt.Sprintf("%d", out.Entries)))
	r.Println(output.FormatKeyValue("Resolved", fmt.Sprintf("%d", out.Resolved)))
	r.Println("")

	if len(out.Issues) == 0 {
		r.Println("All entries resolved.")
		return
	}

	r.Println(output.FormatHeader(2, "Unresolved Entries"))
	r.Println("")
	for _, issue := range out.Issues {
		line := fmt.Sprintf("- %s: `%s` (%s)", issue.Page, issue.Entry, issue.Reason)
		if len(issue.Suggestions) > 0 {
			line += fmt.Sprintf(" did you mean `%s`?", strings.Join(issue.Suggestions, "`, `"))
		}
		r.Println(line)
	}
	r.Println("")
}

func runDocsCoverage(cmd *cobra.Command, threshold float64) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer

	if _, err := eng.Discover(engine.DiscoveryOptions{}); err != nil {
		return fmt.Errorf("failed to discover project: %w", err)
	}

	result, err := eng.Coverage()
	if err != nil {
		return err
	}

	covOutput := buildCoverageOutput(result)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(covOutput); err != nil {
			return err
		}
	case output.ModeMarkdown:
		coverageTable(r, covOutput, true)
	default:
		coverageTable(r, covOutput, false)
	}

	if threshold > 0 && covOutput.Percent < threshold {
		return fmt.Errorf("coverage %.1f%% is below threshold %.1f%%", covOutput.Percent, threshold)
	}
	return nil
}

func buildCoverageOutput(result *engine.CoverageResult) output.CoverageOutput {
	out := output.CoverageOutput{
		TotalPublic:     result.TotalPublic,
		TotalDocumented: result.TotalDocumented,
		Percent:         result.Percent(),
	}
	for _, m := range result.Modules {
		out.Modules = append(out.Modules, output.ModuleCoverageInfo{
			Module:     m.Module,
			Public:     m.Public,
			Documented: m.Documented,
			Percent:    m.Percent(),
			Missing:    m.Missing,
			Extra:      m.Extra,
		})
	}
	return out
}

func coverageTable(r *output.Renderer, out output.CoverageOutput, markdown bool) {
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Module", "Public", "Documented", "Coverage", "Missing"})

	for _, m := range out.Modules {
		t.AppendRow(table.Row{
			m.Module,
			m.Public,
			m.Documented,
			fmt.Sprintf("%.1f%%", m.Percent),
			summarizeSymbols(m.Missing, 3),
		})
	}
	t.AppendFooter(table.Row{
		"total",
		out.TotalPublic,
		out.TotalDocumented,
		fmt.Sprintf("%.1f%%", out.Percent),
		"",
	})

	if markdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
}

// summarizeSymbols joins up to max names, then counts the rest.
func summarizeSymbols(names []string, max int) string {
	if len(names) == 0 {
		return ""
	}
	if len(names) <= max {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(names[:max], ", "), len(names)-max)
}
