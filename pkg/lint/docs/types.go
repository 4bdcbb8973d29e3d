package docs

import (
	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/starpoint-labs/starpin/pkg/lint"
)

// RuleDef is a data-driven docs rule definition.
// Rules are stateless - all context comes via the Check function parameters.
type RuleDef struct {
	ID          string        // Unique identifier, e.g., "D001"
	Name        string        // Human-readable name, e.g., "resolution.missing_symbol"
	Group       string        // Category, e.g., "resolution", "coverage", "structure"
	Description string        // Human-readable description
	Severity    core.Severity // Default severity
	Check       CheckFunc     // The check function
	ConfigKeys  []string      // Configuration keys this rule accepts (for rule-specific options)

	// Documentation fields for richer rule documentation
	Rationale   string // Why this rule exists, what problems it prevents
	BadExample  string // Stub content showing the anti-pattern
	GoodExample string // Stub content showing the correct pattern
	Fix         string // How to fix violations (when not obvious)
}

// CheckFunc analyzes parsed stub pages and returns diagnostics.
// The opts parameter contains rule-specific options from configuration.
type CheckFunc func(ctx lint.DocsContext, opts map[string]any) []lint.Diagnostic

// wrappedRuleDef wraps a RuleDef to implement lint.DocsRule.
type wrappedRuleDef struct {
	def RuleDef
}

// WrapRuleDef wraps a RuleDef to implement lint.DocsRule.
func WrapRuleDef(def RuleDef) lint.DocsRule {
	return &wrappedRuleDef{def: def}
}

func (w *wrappedRuleDef) ID() string                     { return w.def.ID }
func (w *wrappedRuleDef) Name() string                   { return w.def.Name }
func (w *wrappedRuleDef) Group() string                  { return w.def.Group }
func (w *wrappedRuleDef) Description() string            { return w.def.Description }
func (w *wrappedRuleDef) DefaultSeverity() core.Severity { return w.def.Severity }
func (w *wrappedRuleDef) ConfigKeys() []string           { return w.def.ConfigKeys }

// Documentation methods
func (w *wrappedRuleDef) Rationale() string   { return w.def.Rationale }
func (w *wrappedRuleDef) BadExample() string  { return w.def.BadExample }
func (w *wrappedRuleDef) GoodExample() string { return w.def.GoodExample }
func (w *wrappedRuleDef) Fix() string         { return w.def.Fix }

func (w *wrappedRuleDef) CheckDocs(ctx lint.DocsContext, opts map[string]any) []lint.Diagnostic {
	return w.def.Check(ctx, opts)
}

// Unwrap returns the underlying RuleDef.
func (w *wrappedRuleDef) Unwrap() RuleDef {
	return w.def
}

// Register adds a rule to the unified registry.
// Call this from init() functions in rule packages.
func Register(rule RuleDef) {
	lint.RegisterDocsRule(WrapRuleDef(rule))
}
