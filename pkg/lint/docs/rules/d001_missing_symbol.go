package rules

import (
	"fmt"
	"strings"

	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/starpoint-labs/starpin/pkg/lint"
	"github.com/starpoint-labs/starpin/pkg/lint/docs"
)

func init() {
	docs.Register(MissingSymbol)
}

// MissingSymbol flags autosummary entries that do not resolve against
// the scanned source surface.
var MissingSymbol = docs.RuleDef{
	ID:          "D001",
	Name:        "resolution.missing_symbol",
	Group:       "resolution",
	Description: "Every autosummary entry must be importable from its module.",
	Severity:    core.SeverityError,
	Check:       checkMissingSymbol,

	Rationale: `An entry that does not resolve produces a broken stub page and a
dead cross-reference. The usual causes are a typo, a symbol renamed in source but
not in the docs, or an entry listed under the wrong currentmodule.`,

	BadExample: `.. currentmodule:: jax.numpy

.. autosummary::
  :toctree: _autosummary

    tahn`,

	GoodExample: `.. currentmodule:: jax.numpy

.. autosummary::
  :toctree: _autosummary

    tanh`,

	Fix: "Rename the entry to a name the module actually exports, or move it under the right currentmodule directive.",
}

func checkMissingSymbol(ctx lint.DocsContext, _ map[string]any) []lint.Diagnostic {
	resolver := ctx.Resolver()
	if resolver == nil {
		return nil
	}

	var diagnostics []lint.Diagnostic
	for _, page := range ctx.Pages() {
		for _, entry := range page.Entries {
			if entry.Module == "" {
				continue
			}
			// Unknown modules are D004 territory; flagging each entry
			// under one would bury the real finding.
			if _, ok := resolver.Module(entry.Module); !ok {
				continue
			}
			if _, ok := resolver.Resolve(entry.Module, entry.Name); ok {
				continue
			}

			message := fmt.Sprintf("%s is not importable from %s", entry.Name, entry.Module)
			if !strings.Contains(entry.Name, ".") {
				if suggestions := resolver.Suggest(entry.Module, entry.Name); len(suggestions) > 0 {
					message += fmt.Sprintf("; did you mean %s?", strings.Join(suggestions, ", "))
				}
			}

			diagnostics = append(diagnostics, lint.Diagnostic{
				RuleID:           "D001",
				Severity:         core.SeverityError,
				Message:          message,
				Pos:              entry.Pos,
				Target:           entry.Module + "." + entry.Name,
				DocumentationURL: lint.BuildDocURL("D001"),
				ImpactScore:      lint.ImpactHigh.Int(),
				AutoFixable:      false,
			})
		}
	}

	return diagnostics
}
