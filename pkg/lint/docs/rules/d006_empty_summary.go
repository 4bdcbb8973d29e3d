package rules

import (
	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/starpoint-labs/starpin/pkg/lint"
	"github.com/starpoint-labs/starpin/pkg/lint/docs"
)

func init() {
	docs.Register(EmptySummary)
}

// EmptySummary flags autosummary directives that list nothing.
var EmptySummary = docs.RuleDef{
	ID:          "D006",
	Name:        "hygiene.empty_summary",
	Group:       "hygiene",
	Description: "autosummary directives should list at least one entry.",
	Severity:    core.SeverityWarning,
	Check:       checkEmptySummary,

	Rationale: `An autosummary with no entries generates nothing. It is usually
left behind when the last entry was moved to another page, or the entries were
indented so they no longer parse as part of the directive.`,

	Fix: "Add entries under the directive or delete it.",
}

func checkEmptySummary(ctx lint.DocsContext, _ map[string]any) []lint.Diagnostic {
	var diagnostics []lint.Diagnostic

	for _, page := range ctx.Pages() {
		for _, block := range page.Summaries {
			if block.Entries > 0 {
				continue
			}
			diagnostics = append(diagnostics, lint.Diagnostic{
				RuleID:           "D006",
				Severity:         core.SeverityWarning,
				Message:          "autosummary directive lists no entries",
				Pos:              block.Pos,
				Target:           page.Path,
				DocumentationURL: lint.BuildDocURL("D006"),
				ImpactScore:      lint.ImpactLow.Int(),
				AutoFixable:      false,
			})
		}
	}

	return diagnostics
}
