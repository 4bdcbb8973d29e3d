package rules

import (
	"fmt"

	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/starpoint-labs/starpin/pkg/lint"
	"github.com/starpoint-labs/starpin/pkg/lint/workspace"
)

func init() {
	workspace.Register(DuplicateName)
}

// DuplicateName flags repository names declared more than once.
var DuplicateName = workspace.RuleDef{
	ID:          "W004",
	Name:        "hygiene.duplicate_name",
	Group:       "hygiene",
	Description: "Each repository name should be declared exactly once.",
	Severity:    core.SeverityWarning,
	Check:       checkDuplicateName,

	Rationale: `When a name is declared twice the last declaration silently wins.
The earlier pin still reads as authoritative to anyone auditing the file, so the
checksum being verified is not the one they reviewed.`,

	BadExample: `http_archive(name = "com_google_absl", sha256 = "aaa...", urls = [...])
http_archive(name = "com_google_absl", sha256 = "bbb...", urls = [...])`,

	GoodExample: `http_archive(name = "com_google_absl", sha256 = "bbb...", urls = [...])`,

	Fix: "Delete the superseded declarations and keep a single pin per name.",
}

func checkDuplicateName(ctx lint.WorkspaceContext, _ map[string]any) []lint.Diagnostic {
	first := make(map[string]*core.Dependency)

	var diagnostics []lint.Diagnostic
	for _, dep := range ctx.Declarations() {
		prev, seen := first[dep.Name]
		if !seen {
			first[dep.Name] = dep
			continue
		}
		diagnostics = append(diagnostics, lint.Diagnostic{
			RuleID:           "W004",
			Severity:         core.SeverityWarning,
			Message:          fmt.Sprintf("repository %q is declared more than once; the last declaration wins", dep.Name),
			Pos:              dep.DeclaredAt,
			Target:           dep.Name,
			DocumentationURL: lint.BuildDocURL("W004"),
			ImpactScore:      lint.ImpactMedium.Int(),
			AutoFixable:      false,
			RelatedInfo: []lint.RelatedInfo{{
				Pos:     prev.DeclaredAt,
				Message: "first declared here",
			}},
		})
	}

	return diagnostics
}
