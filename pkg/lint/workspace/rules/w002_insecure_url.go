package rules

import (
	"fmt"
	"net/url"

	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/starpoint-labs/starpin/pkg/lint"
	"github.com/starpoint-labs/starpin/pkg/lint/workspace"
)

func init() {
	workspace.Register(InsecureURL)
}

// InsecureURL flags download locations that use plain http.
var InsecureURL = workspace.RuleDef{
	ID:          "W002",
	Name:        "security.insecure_url",
	Group:       "security",
	Description: "Download URLs must use https.",
	Severity:    core.SeverityError,
	Check:       checkInsecureURL,
	ConfigKeys:  []string{"allowed_hosts"},

	Rationale: `A plain-http download can be intercepted and rewritten in transit.
Even with a checksum pin the error surfaces as a confusing mismatch instead of a
refused connection, and unpinned archives are silently replaceable.`,

	BadExample: `http_archive(
    name = "com_google_absl",
    urls = ["http://github.com/abseil/abseil-cpp/archive/master.zip"],
)`,

	GoodExample: `http_archive(
    name = "com_google_absl",
    urls = ["https://github.com/abseil/abseil-cpp/archive/master.zip"],
)`,

	Fix: "Switch the URL scheme to https, or add the host to allowed_hosts for local mirrors.",
}

var defaultAllowedHosts = []string{"localhost", "127.0.0.1"}

func checkInsecureURL(ctx lint.WorkspaceContext, opts map[string]any) []lint.Diagnostic {
	allowed := lint.GetStringSliceOption(opts, "allowed_hosts", defaultAllowedHosts)
	allowedSet := make(map[string]bool, len(allowed))
	for _, h := range allowed {
		allowedSet[h] = true
	}

	var diagnostics []lint.Diagnostic
	for _, dep := range ctx.Dependencies() {
		locations := dep.URLs
		if dep.Remote != "" {
			locations = append(locations[:len(locations):len(locations)], dep.Remote)
		}
		for _, raw := range locations {
			parsed, err := url.Parse(raw)
			if err != nil || parsed.Scheme != "http" {
				continue
			}
			if allowedSet[parsed.Hostname()] {
				continue
			}
			diagnostics = append(diagnostics, lint.Diagnostic{
				RuleID:           "W002",
				Severity:         core.SeverityError,
				Message:          fmt.Sprintf("dependency %q downloads over plain http from %s", dep.Name, raw),
				Pos:              dep.DeclaredAt,
				Target:           dep.Name,
				DocumentationURL: lint.BuildDocURL("W002"),
				ImpactScore:      lint.ImpactHigh.Int(),
				AutoFixable:      false,
			})
		}
	}

	return diagnostics
}
