package rules

import (
	"fmt"

	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/starpoint-labs/starpin/pkg/lint"
	"github.com/starpoint-labs/starpin/pkg/lint/workspace"
)

func init() {
	workspace.Register(UnusedDependency)
}

// UnusedDependency flags repositories that nothing in the workspace file
// references. Build files outside the workspace may still use them, so
// this stays informational.
var UnusedDependency = workspace.RuleDef{
	ID:          "W006",
	Name:        "hygiene.unused_dependency",
	Group:       "hygiene",
	Description: "Declared repositories should be loaded from or wired by an invocation.",
	Severity:    core.SeverityInfo,
	Check:       checkUnusedDependency,
	ConfigKeys:  []string{"ignore"},

	Rationale: `Pins that nothing references keep getting fetched, verified, and
upgraded for no consumer. They usually survive a migration that removed the last
load() without removing the declaration.`,

	BadExample: `http_archive(name = "six_archive", sha256 = "...", urls = [...])
# no load("@six_archive//...") anywhere`,

	GoodExample: `http_archive(name = "six_archive", sha256 = "...", urls = [...])
load("@six_archive//:six.bzl", "six_library")`,

	Fix: "Remove the declaration, or add the repository to the ignore option if build files outside the workspace use it.",
}

func checkUnusedDependency(ctx lint.WorkspaceContext, opts map[string]any) []lint.Diagnostic {
	ignore := lint.GetStringSliceOption(opts, "ignore", nil)
	ignoreSet := make(map[string]bool, len(ignore))
	for _, name := range ignore {
		ignoreSet[name] = true
	}

	var diagnostics []lint.Diagnostic
	for _, dep := range ctx.Dependencies() {
		if ignoreSet[dep.Name] || ctx.RepoUsed(dep.Name) {
			continue
		}
		diagnostics = append(diagnostics, lint.Diagnostic{
			RuleID:           "W006",
			Severity:         core.SeverityInfo,
			Message:          fmt.Sprintf("repository %q is never loaded from or referenced; it may be unused", dep.Name),
			Pos:              dep.DeclaredAt,
			Target:           dep.Name,
			DocumentationURL: lint.BuildDocURL("W006"),
			ImpactScore:      lint.ImpactLow.Int(),
			AutoFixable:      false,
		})
	}

	return diagnostics
}
