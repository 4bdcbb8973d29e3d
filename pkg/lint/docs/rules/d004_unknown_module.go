package rules

import (
	"fmt"
	"strings"

	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/starpoint-labs/starpin/pkg/lint"
	"github.com/starpoint-labs/starpin/pkg/lint/docs"
)

func init() {
	docs.Register(UnknownModule)
}

// UnknownModule flags pages and entries that reference modules absent
// from the scanned source tree.
var UnknownModule = docs.RuleDef{
	ID:          "D004",
	Name:        "resolution.unknown_module",
	Group:       "resolution",
	Description: "Module directives must name modules present in the sources.",
	Severity:    core.SeverityError,
	Check:       checkUnknownModule,

	Rationale: `A currentmodule or automodule directive naming a module that does
not exist makes every entry beneath it unresolvable at once. This is almost always
a rename in source that the docs never followed.`,

	Fix: "Point the directive at the module's current dotted path.",
}

func checkUnknownModule(ctx lint.DocsContext, _ map[string]any) []lint.Diagnostic {
	resolver := ctx.Resolver()
	if resolver == nil {
		return nil
	}

	var diagnostics []lint.Diagnostic
	for _, page := range ctx.Pages() {
		reported := make(map[string]bool)

		flag := func(module string, pos core.Position) {
			if module == "" || reported[module] || moduleKnown(resolver, module) {
				return
			}
			reported[module] = true
			if !pos.IsValid() {
				pos = core.Position{File: page.FilePath, Line: 1}
			}
			diagnostics = append(diagnostics, lint.Diagnostic{
				RuleID:           "D004",
				Severity:         core.SeverityError,
				Message:          fmt.Sprintf("module %s is not present in the scanned sources", module),
				Pos:              pos,
				Target:           module,
				DocumentationURL: lint.BuildDocURL("D004"),
				ImpactScore:      lint.ImpactHigh.Int(),
				AutoFixable:      false,
			})
		}

		flag(page.Module, page.ModulePos)
		for _, entry := range page.Entries {
			flag(entry.Module, entry.Pos)
		}
	}

	return diagnostics
}

// moduleKnown accepts exact module paths and namespace prefixes that
// contain scanned modules.
func moduleKnown(resolver lint.Resolver, path string) bool {
	if _, ok := resolver.Module(path); ok {
		return true
	}
	prefix := path + "."
	for _, known := range resolver.ModulePaths() {
		if strings.HasPrefix(known, prefix) {
			return true
		}
	}
	return false
}
