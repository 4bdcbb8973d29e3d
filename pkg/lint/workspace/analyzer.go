package workspace

import (
	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/starpoint-labs/starpin/pkg/lint"
)

// Analyzer runs workspace lint rules against a parsed workspace.
type Analyzer struct {
	config *lint.Config
}

// NewAnalyzer creates a new workspace analyzer with optional configuration.
func NewAnalyzer(config *lint.Config) *Analyzer {
	if config == nil {
		config = lint.NewConfig()
	}
	return &Analyzer{config: config}
}

// Analyze runs all registered workspace rules against the workspace.
func (a *Analyzer) Analyze(ws *core.Workspace) []lint.Diagnostic {
	if ws == nil {
		return nil
	}
	return a.AnalyzeContext(NewContext(ws))
}

// AnalyzeContext runs all registered workspace rules against a
// prebuilt context.
func (a *Analyzer) AnalyzeContext(ctx lint.WorkspaceContext) []lint.Diagnostic {
	if ctx == nil {
		return nil
	}

	var diagnostics []lint.Diagnostic
	for _, rule := range lint.GetAllWorkspaceRules() {
		// Skip disabled rules
		if a.config.IsDisabled(rule.ID()) {
			continue
		}

		// Get rule-specific options
		opts := a.config.GetRuleOptions(rule.ID())

		// Run the rule with options
		diags := rule.CheckWorkspace(ctx, opts)

		// Apply severity overrides
		for i := range diags {
			diags[i].Severity = a.config.GetSeverity(rule.ID(), diags[i].Severity)
		}

		diagnostics = append(diagnostics, diags...)
	}

	return diagnostics
}
