package rules

import (
	"fmt"
	"strings"

	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/starpoint-labs/starpin/pkg/lint"
	"github.com/starpoint-labs/starpin/pkg/lint/docs"
)

func init() {
	docs.Register(UndocumentedPublic)
}

// UndocumentedPublic flags public functions, classes, and constants that
// appear on no documentation page under any of their names.
var UndocumentedPublic = docs.RuleDef{
	ID:          "D002",
	Name:        "coverage.undocumented_public",
	Group:       "coverage",
	Description: "Public symbols should be listed on at least one page.",
	Severity:    core.SeverityWarning,
	Check:       checkUndocumentedPublic,
	ConfigKeys:  []string{"ignore_modules"},

	Rationale: `A public symbol missing from every autosummary is invisible to
readers: no stub page is generated and no index entry links to it. New API tends
to land in source first and get forgotten here.`,

	Fix: "Add the symbol to the autosummary of the page documenting its module, or underscore-prefix it if it was never meant to be public.",
}

func checkUndocumentedPublic(ctx lint.DocsContext, opts map[string]any) []lint.Diagnostic {
	resolver := ctx.Resolver()
	if resolver == nil {
		return nil
	}
	ignore := lint.GetStringSliceOption(opts, "ignore_modules", nil)

	var diagnostics []lint.Diagnostic
	for _, path := range resolver.ModulePaths() {
		if privateModulePath(path) || ignoredModule(path, ignore) {
			continue
		}
		for _, sym := range resolver.Surface(path) {
			// Only symbols at home in this module; star-expanded and
			// aliased names are covered where they are defined.
			if sym.Module != path || !sym.Public {
				continue
			}
			switch sym.Kind {
			case core.SymbolFunction, core.SymbolClass, core.SymbolConstant:
			default:
				continue
			}
			if ctx.Documented(path, sym.Name) {
				continue
			}
			diagnostics = append(diagnostics, lint.Diagnostic{
				RuleID:           "D002",
				Severity:         core.SeverityWarning,
				Message:          fmt.Sprintf("public %s %s.%s appears on no documentation page", sym.Kind, path, sym.Name),
				Pos:              sym.Pos,
				Target:           path + "." + sym.Name,
				DocumentationURL: lint.BuildDocURL("D002"),
				ImpactScore:      lint.ImpactMedium.Int(),
				AutoFixable:      false,
			})
		}
	}

	return diagnostics
}

// privateModulePath reports whether any path component is underscored,
// e.g. jax._src or jax.interpreters._ad.
func privateModulePath(path string) bool {
	for _, part := range strings.Split(path, ".") {
		if strings.HasPrefix(part, "_") {
			return true
		}
	}
	return false
}

func ignoredModule(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+".") {
			return true
		}
	}
	return false
}
