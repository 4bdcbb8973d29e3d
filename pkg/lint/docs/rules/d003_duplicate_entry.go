package rules

import (
	"fmt"

	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/starpoint-labs/starpin/pkg/lint"
	"github.com/starpoint-labs/starpin/pkg/lint/docs"
)

func init() {
	docs.Register(DuplicateEntry)
}

// DuplicateEntry flags the same symbol listed more than once on one page.
// Listing a symbol on several pages is normal; listing it twice on the
// same page is an editing mistake.
var DuplicateEntry = docs.RuleDef{
	ID:          "D003",
	Name:        "hygiene.duplicate_entry",
	Group:       "hygiene",
	Description: "Each symbol should appear at most once per page.",
	Severity:    core.SeverityWarning,
	Check:       checkDuplicateEntry,

	BadExample: `.. autosummary::
  :toctree: _autosummary

    tanh
    absolute
    tanh`,

	GoodExample: `.. autosummary::
  :toctree: _autosummary

    absolute
    tanh`,
}

func checkDuplicateEntry(ctx lint.DocsContext, _ map[string]any) []lint.Diagnostic {
	var diagnostics []lint.Diagnostic

	for _, page := range ctx.Pages() {
		seen := make(map[string]*core.Entry)
		for _, entry := range page.Entries {
			key := entry.Module + "." + entry.Name
			prev, dup := seen[key]
			if !dup {
				seen[key] = entry
				continue
			}
			diagnostics = append(diagnostics, lint.Diagnostic{
				RuleID:           "D003",
				Severity:         core.SeverityWarning,
				Message:          fmt.Sprintf("%s is listed more than once on this page", entry.Name),
				Pos:              entry.Pos,
				Target:           key,
				DocumentationURL: lint.BuildDocURL("D003"),
				ImpactScore:      lint.ImpactLow.Int(),
				AutoFixable:      false,
				RelatedInfo: []lint.RelatedInfo{{
					Pos:     prev.Pos,
					Message: "first listed here",
				}},
			})
		}
	}

	return diagnostics
}
