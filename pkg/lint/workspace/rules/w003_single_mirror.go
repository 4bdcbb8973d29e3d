package rules

import (
	"fmt"

	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/starpoint-labs/starpin/pkg/lint"
	"github.com/starpoint-labs/starpin/pkg/lint/workspace"
)

func init() {
	workspace.Register(SingleMirror)
}

// SingleMirror flags archives that depend on a single download location.
var SingleMirror = workspace.RuleDef{
	ID:          "W003",
	Name:        "mirrors.single_url",
	Group:       "mirrors",
	Description: "http_archive declarations should list more than one download URL.",
	Severity:    core.SeverityWarning,
	Check:       checkSingleMirror,
	ConfigKeys:  []string{"min_urls"},

	Rationale: `Archives hosted at a single location disappear when the host does.
Listing a mirror first and the upstream URL second keeps builds working through
outages and rate limits without changing the pinned content.`,

	BadExample: `http_archive(
    name = "io_bazel_rules_closure",
    sha256 = "43c9b882fa921923bcba764453f4058d102bece35a37c9f6383c713004aacff1",
    urls = ["https://github.com/bazelbuild/rules_closure/archive/9889e39.tar.gz"],
)`,

	GoodExample: `http_archive(
    name = "io_bazel_rules_closure",
    sha256 = "43c9b882fa921923bcba764453f4058d102bece35a37c9f6383c713004aacff1",
    urls = [
        "https://mirror.bazel.build/github.com/bazelbuild/rules_closure/archive/9889e39.tar.gz",
        "https://github.com/bazelbuild/rules_closure/archive/9889e39.tar.gz",
    ],
)`,
}

const defaultMinURLs = 2

func checkSingleMirror(ctx lint.WorkspaceContext, opts map[string]any) []lint.Diagnostic {
	minURLs := lint.GetIntOption(opts, "min_urls", defaultMinURLs)

	var diagnostics []lint.Diagnostic
	for _, dep := range ctx.Dependencies() {
		if dep.Kind != core.DepHTTPArchive || len(dep.URLs) == 0 {
			continue
		}
		if len(dep.URLs) >= minURLs {
			continue
		}
		diagnostics = append(diagnostics, lint.Diagnostic{
			RuleID:           "W003",
			Severity:         core.SeverityWarning,
			Message:          fmt.Sprintf("dependency %q lists %d download URL(s); at least %d are recommended", dep.Name, len(dep.URLs), minURLs),
			Pos:              dep.DeclaredAt,
			Target:           dep.Name,
			DocumentationURL: lint.BuildDocURL("W003"),
			ImpactScore:      lint.ImpactLow.Int(),
			AutoFixable:      false,
		})
	}

	return diagnostics
}
