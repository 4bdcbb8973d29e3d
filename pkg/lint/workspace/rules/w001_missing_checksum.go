package rules

import (
	"fmt"

	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/starpoint-labs/starpin/pkg/lint"
	"github.com/starpoint-labs/starpin/pkg/lint/workspace"
)

func init() {
	workspace.Register(MissingChecksum)
}

// MissingChecksum flags http_archive declarations without a sha256 pin.
var MissingChecksum = workspace.RuleDef{
	ID:          "W001",
	Name:        "pinning.missing_checksum",
	Group:       "pinning",
	Description: "http_archive declarations must pin a sha256 checksum.",
	Severity:    core.SeverityError,
	Check:       checkMissingChecksum,

	Rationale: `Without a declared checksum the fetched archive cannot be verified.
A compromised mirror, a moved tag, or a re-released archive silently changes the
bytes every consumer builds against.`,

	BadExample: `http_archive(
    name = "org_tensorflow",
    urls = ["https://github.com/tensorflow/tensorflow/archive/v1.13.2.tar.gz"],
)`,

	GoodExample: `http_archive(
    name = "org_tensorflow",
    sha256 = "abe3bf0c47f7f5cc12b829c77b3ff9fb08addccedd6c38f9d81a369425110a89",
    urls = ["https://github.com/tensorflow/tensorflow/archive/v1.13.2.tar.gz"],
)`,

	Fix: "Run `starpin lock` to download the archive and record its digest, then copy the sha256 into the declaration.",
}

func checkMissingChecksum(ctx lint.WorkspaceContext, _ map[string]any) []lint.Diagnostic {
	var diagnostics []lint.Diagnostic

	for _, dep := range ctx.Dependencies() {
		if dep.Kind != core.DepHTTPArchive || dep.SHA256 != "" {
			continue
		}
		diagnostics = append(diagnostics, lint.Diagnostic{
			RuleID:           "W001",
			Severity:         core.SeverityError,
			Message:          fmt.Sprintf("http_archive %q has no sha256; the fetched bytes cannot be verified", dep.Name),
			Pos:              dep.DeclaredAt,
			Target:           dep.Name,
			DocumentationURL: lint.BuildDocURL("W001"),
			ImpactScore:      lint.ImpactCritical.Int(),
			AutoFixable:      true,
		})
	}

	return diagnostics
}
