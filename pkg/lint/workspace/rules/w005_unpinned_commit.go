package rules

import (
	"fmt"

	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/starpoint-labs/starpin/pkg/lint"
	"github.com/starpoint-labs/starpin/pkg/lint/workspace"
)

func init() {
	workspace.Register(UnpinnedCommit)
}

// UnpinnedCommit flags git repositories that are not pinned to an exact
// revision. A tag-only pin is a warning; no pin at all is an error.
var UnpinnedCommit = workspace.RuleDef{
	ID:          "W005",
	Name:        "pinning.unpinned_commit",
	Group:       "pinning",
	Description: "git_repository declarations must pin an exact commit.",
	Severity:    core.SeverityError,
	Check:       checkUnpinnedCommit,

	Rationale: `Tags and branches are mutable references. A repository pinned to a
tag builds different source the day the tag is re-pushed, and a repository pinned
to nothing tracks whatever the default branch currently holds.`,

	BadExample: `git_repository(
    name = "com_github_grpc",
    remote = "https://github.com/grpc/grpc.git",
    tag = "v1.19.0",
)`,

	GoodExample: `git_repository(
    name = "com_github_grpc",
    remote = "https://github.com/grpc/grpc.git",
    commit = "2de2e8dd8921e1f7d043e01faf7fe8a291fbb072",
)`,

	Fix: "Resolve the tag or branch to a commit hash and pin the commit attribute.",
}

func checkUnpinnedCommit(ctx lint.WorkspaceContext, _ map[string]any) []lint.Diagnostic {
	var diagnostics []lint.Diagnostic

	for _, dep := range ctx.Dependencies() {
		if dep.Kind != core.DepGitRepository || dep.Commit != "" {
			continue
		}

		severity := core.SeverityError
		message := fmt.Sprintf("git_repository %q is not pinned to a commit", dep.Name)
		if dep.Tag != "" {
			severity = core.SeverityWarning
			message = fmt.Sprintf("git_repository %q is pinned only by tag %q; tags can be moved or deleted", dep.Name, dep.Tag)
		}

		diagnostics = append(diagnostics, lint.Diagnostic{
			RuleID:           "W005",
			Severity:         severity,
			Message:          message,
			Pos:              dep.DeclaredAt,
			Target:           dep.Name,
			DocumentationURL: lint.BuildDocURL("W005"),
			ImpactScore:      lint.ImpactHigh.Int(),
			AutoFixable:      false,
		})
	}

	return diagnostics
}
