package lint

import (
	"github.com/starpoint-labs/starpin/pkg/core"
)

// =============================================================================
// Diagnostics
// =============================================================================

// Diagnostic represents a lint finding.
type Diagnostic struct {
	RuleID   string
	Severity core.Severity
	Message  string
	Pos      core.Position
	// Target names what the finding is about: a repository name for
	// workspace rules, a page path or dotted symbol for docs rules.
	Target string

	// Remediation metadata
	DocumentationURL string        // URL to rule documentation, e.g., "https://starpin.dev/docs/rules/w001"
	ImpactScore      int           // 0-100, used for health score weighting
	AutoFixable      bool          // true if `starpin lock` or `starpin docs import` can repair it
	RelatedInfo      []RelatedInfo // Additional locations/context
}

// RelatedInfo provides additional context for a diagnostic.
type RelatedInfo struct {
	Pos     core.Position
	Message string
}

// =============================================================================
// Rule Interfaces
// =============================================================================

// Rule is the base interface all lint rules implement.
// This provides a unified interface for both workspace-level and docs-level rules.
type Rule interface {
	// ID returns the unique identifier, e.g., "W001" or "D001"
	ID() string

	// Name returns the human-readable name, e.g., "pinning.missing_checksum"
	Name() string

	// Group returns the category, e.g., "pinning", "security", "resolution"
	Group() string

	// Description returns a human-readable description
	Description() string

	// DefaultSeverity returns the default severity for this rule
	DefaultSeverity() core.Severity

	// ConfigKeys returns configuration keys this rule accepts
	ConfigKeys() []string

	// Documentation methods for richer rule documentation
	Rationale() string   // Why this rule exists, what problems it prevents
	BadExample() string  // Declarations showing the anti-pattern
	GoodExample() string // Declarations showing the correct pattern
	Fix() string         // How to fix violations (when not obvious)
}

// WorkspaceRule analyzes pin declarations in a parsed workspace.
type WorkspaceRule interface {
	Rule

	// CheckWorkspace analyzes the workspace context and returns diagnostics.
	// The opts parameter contains rule-specific options from configuration.
	CheckWorkspace(ctx WorkspaceContext, opts map[string]any) []Diagnostic
}

// DocsRule analyzes documentation stubs against the scanned source surface.
type DocsRule interface {
	Rule

	// CheckDocs analyzes the docs context and returns diagnostics.
	// The opts parameter contains rule-specific options from configuration.
	CheckDocs(ctx DocsContext, opts map[string]any) []Diagnostic
}

// GetRuleInfo extracts metadata from a Rule for documentation/tooling.
func GetRuleInfo(r Rule) core.RuleInfo {
	info := core.RuleInfo{
		ID:              r.ID(),
		Name:            r.Name(),
		Group:           r.Group(),
		Description:     r.Description(),
		DefaultSeverity: r.DefaultSeverity(),
		ConfigKeys:      r.ConfigKeys(),
		Rationale:       r.Rationale(),
		BadExample:      r.BadExample(),
		GoodExample:     r.GoodExample(),
		Fix:             r.Fix(),
	}

	switch r.(type) {
	case WorkspaceRule:
		info.Type = "workspace"
	case DocsRule:
		info.Type = "docs"
	}

	return info
}

// =============================================================================
// Workspace Context
// =============================================================================

// WorkspaceContext provides access to a parsed workspace for workspace rules.
// This is an interface to avoid import cycles between lint and the evaluator.
type WorkspaceContext interface {
	// Workspace returns the parsed workspace under analysis.
	Workspace() *core.Workspace

	// Declarations returns every pin declaration in source order,
	// including names declared more than once.
	Declarations() []*core.Dependency

	// Dependencies returns the effective set after duplicate names
	// collapse to their last declaration.
	Dependencies() []*core.Dependency

	// RepoUsed reports whether any load statement, macro invocation,
	// build_file override, or patch label references the repository.
	RepoUsed(name string) bool
}

// =============================================================================
// Docs Context
// =============================================================================

// DocsContext provides access to parsed stub pages and the scanned source
// surface for docs rules.
type DocsContext interface {
	// Pages returns every parsed stub page.
	Pages() []*core.Page

	// Resolver returns the symbol resolver built from the scanned source
	// tree, or nil when no source tree is available. Rules that need
	// resolution must tolerate a nil resolver.
	Resolver() Resolver

	// Documented reports whether the symbol is listed on any page,
	// directly or through an alias that resolves to it.
	Documented(module, name string) bool
}

// Resolver resolves dotted names against a scanned module surface.
// Implemented by the symbol registry.
type Resolver interface {
	Module(path string) (*core.Module, bool)
	ModulePaths() []string
	Surface(path string) []*core.Symbol
	Resolve(currentModule, name string) (*core.Symbol, bool)
	ResolveQualified(dotted string) (*core.Symbol, bool)
	Suggest(module, name string) []string
}
