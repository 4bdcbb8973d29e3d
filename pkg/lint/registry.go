package lint

import (
	"sort"
	"sync"

	"github.com/starpoint-labs/starpin/pkg/core"
)

// registry stores all rules (both workspace and docs) for unified access.
var registry = &ruleRegistry{
	workspaceRules: make(map[string]WorkspaceRule),
	docsRules:      make(map[string]DocsRule),
}

// ruleRegistry provides unified access to all rules.
type ruleRegistry struct {
	mu             sync.RWMutex
	workspaceRules map[string]WorkspaceRule
	docsRules      map[string]DocsRule
}

// RegisterWorkspaceRule adds a workspace rule to the registry.
// Call this from init() functions in rule packages.
func RegisterWorkspaceRule(rule WorkspaceRule) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.workspaceRules[rule.ID()] = rule
}

// RegisterDocsRule adds a docs rule to the registry.
// Call this from init() functions in rule packages.
func RegisterDocsRule(rule DocsRule) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.docsRules[rule.ID()] = rule
}

// GetAllWorkspaceRules returns all registered workspace rules sorted by ID.
func GetAllWorkspaceRules() []WorkspaceRule {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	rules := make([]WorkspaceRule, 0, len(registry.workspaceRules))
	for _, rule := range registry.workspaceRules {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID() < rules[j].ID() })
	return rules
}

// GetAllDocsRules returns all registered docs rules sorted by ID.
func GetAllDocsRules() []DocsRule {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	rules := make([]DocsRule, 0, len(registry.docsRules))
	for _, rule := range registry.docsRules {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID() < rules[j].ID() })
	return rules
}

// GetWorkspaceRuleByID returns a workspace rule by its ID.
func GetWorkspaceRuleByID(id string) (WorkspaceRule, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	rule, ok := registry.workspaceRules[id]
	return rule, ok
}

// GetDocsRuleByID returns a docs rule by its ID.
func GetDocsRuleByID(id string) (DocsRule, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	rule, ok := registry.docsRules[id]
	return rule, ok
}

// GetRuleByID returns any rule by its ID, checking both kinds.
func GetRuleByID(id string) (Rule, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	if rule, ok := registry.workspaceRules[id]; ok {
		return rule, true
	}
	if rule, ok := registry.docsRules[id]; ok {
		return rule, true
	}
	return nil, false
}

// AllRules returns metadata for all registered rules sorted by ID.
func AllRules() []core.RuleInfo {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	rules := make([]core.RuleInfo, 0, len(registry.workspaceRules)+len(registry.docsRules))
	for _, rule := range registry.workspaceRules {
		rules = append(rules, GetRuleInfo(rule))
	}
	for _, rule := range registry.docsRules {
		rules = append(rules, GetRuleInfo(rule))
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}

// GetWorkspaceRulesByGroup returns workspace rules in a specific group.
func GetWorkspaceRulesByGroup(group string) []WorkspaceRule {
	var rules []WorkspaceRule
	for _, rule := range GetAllWorkspaceRules() {
		if rule.Group() == group {
			rules = append(rules, rule)
		}
	}
	return rules
}

// GetDocsRulesByGroup returns docs rules in a specific group.
func GetDocsRulesByGroup(group string) []DocsRule {
	var rules []DocsRule
	for _, rule := range GetAllDocsRules() {
		if rule.Group() == group {
			rules = append(rules, rule)
		}
	}
	return rules
}

// CountWorkspaceRules returns the number of registered workspace rules.
func CountWorkspaceRules() int {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return len(registry.workspaceRules)
}

// CountDocsRules returns the number of registered docs rules.
func CountDocsRules() int {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return len(registry.docsRules)
}

// Clear removes all registered rules. Used for testing.
func Clear() {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.workspaceRules = make(map[string]WorkspaceRule)
	registry.docsRules = make(map[string]DocsRule)
}
