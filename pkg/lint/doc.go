// Package lint provides a unified workspace and documentation linting framework.
//
// # Architecture
//
// The lint package follows a modular architecture with three layers:
//
//  1. Root package (pkg/lint/): Contains shared contracts, interfaces, and the unified registry
//  2. Workspace subsystem (pkg/lint/workspace/): Pin declaration analysis (checksums, mirrors, duplicates)
//  3. Docs subsystem (pkg/lint/docs/): Documentation stub analysis against the scanned source surface
//
// # Rule Registration
//
// Rules are automatically registered via init() functions when their packages are imported:
//
//	// Import workspace rules
//	import _ "github.com/starpoint-labs/starpin/pkg/lint/workspace/rules"
//
//	// Import docs rules
//	import _ "github.com/starpoint-labs/starpin/pkg/lint/docs/rules"
//
// # Rule Categories
//
// Workspace rules (declaration-level):
//   - W001-W005 (pinning, security, mirrors): Rules about verifiable, resilient pins
//   - W004, W006 (hygiene): Rules about duplicate and unused declarations
//
// Docs rules (page-level):
//   - D001, D004 (resolution): Rules about entries resolving against the source surface
//   - D002 (coverage): Rules about public symbols missing from every page
//   - D003, D006 (hygiene): Rules about duplicate and empty listings
//   - D005 (structure): Rules about page reachability from the root toctree
//
// # Using the Registry
//
// Query all registered rules:
//
//	rules := lint.AllRules()
//	workspaceRules := lint.GetAllWorkspaceRules()
//	docsRules := lint.GetAllDocsRules()
//
// Query rules by ID or group:
//
//	rule, ok := lint.GetRuleByID("W001")
//	pinning := lint.GetWorkspaceRulesByGroup("pinning")
//
// # Configuration
//
// Use Config to control which rules are enabled and their severity:
//
//	config := lint.NewConfig()
//	config.Disable("W003")
//	config.SetSeverity("W006", core.SeverityWarning)
//	config.SetRuleOptions("W003", map[string]any{"min_urls": 3})
//
// # Creating Custom Rules
//
// For workspace rules, use the workspace.RuleDef form:
//
//	var MyRule = workspace.RuleDef{
//		ID:          "MY01",
//		Name:        "my.custom_rule",
//		Group:       "custom",
//		Description: "My custom rule description",
//		Severity:    core.SeverityWarning,
//		Check:       checkMyRule,
//	}
//
//	func init() {
//		workspace.Register(MyRule)
//	}
//
// Docs rules follow the same form in the docs package.
package lint
