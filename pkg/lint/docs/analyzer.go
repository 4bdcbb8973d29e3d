package docs

import (
	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/starpoint-labs/starpin/pkg/lint"
)

// Analyzer runs docs lint rules against parsed stub pages.
type Analyzer struct {
	config *lint.Config
}

// NewAnalyzer creates a new docs analyzer with optional configuration.
func NewAnalyzer(config *lint.Config) *Analyzer {
	if config == nil {
		config = lint.NewConfig()
	}
	return &Analyzer{config: config}
}

// Analyze runs all registered docs rules against the pages. The
// resolver may be nil when no source tree was scanned.
func (a *Analyzer) Analyze(pages []*core.Page, resolver lint.Resolver) []lint.Diagnostic {
	if len(pages) == 0 {
		return nil
	}
	return a.AnalyzeContext(NewContext(pages, resolver))
}

// AnalyzeContext runs all registered docs rules against a prebuilt
// context.
func (a *Analyzer) AnalyzeContext(ctx lint.DocsContext) []lint.Diagnostic {
	if ctx == nil {
		return nil
	}

	var diagnostics []lint.Diagnostic
	for _, rule := range lint.GetAllDocsRules() {
		// Skip disabled rules
		if a.config.IsDisabled(rule.ID()) {
			continue
		}

		// Get rule-specific options
		opts := a.config.GetRuleOptions(rule.ID())

		// Run the rule with options
		diags := rule.CheckDocs(ctx, opts)

		// Apply severity overrides
		for i := range diags {
			diags[i].Severity = a.config.GetSeverity(rule.ID(), diags[i].Severity)
		}

		diagnostics = append(diagnostics, diags...)
	}

	return diagnostics
}
