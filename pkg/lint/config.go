package lint

import "github.com/starpoint-labs/starpin/pkg/core"

// Config controls which rules are enabled, their severity, and their options.
type Config struct {
	// DisabledRules contains rule IDs to skip
	DisabledRules map[string]bool

	// SeverityOverrides changes the default severity of rules
	SeverityOverrides map[string]core.Severity

	// RuleOptions contains rule-specific options keyed by rule ID
	RuleOptions map[string]core.RuleOptions
}

// NewConfig creates a default configuration with all rules enabled.
func NewConfig() *Config {
	return &Config{
		DisabledRules:     make(map[string]bool),
		SeverityOverrides: make(map[string]core.Severity),
		RuleOptions:       make(map[string]core.RuleOptions),
	}
}

// FromProjectConfig builds a lint configuration from the project's lint
// settings. Unknown severity strings are ignored.
func FromProjectConfig(lc *core.LintConfig) *Config {
	c := NewConfig()
	if lc == nil {
		return c
	}
	for _, id := range lc.Disabled {
		c.DisabledRules[id] = true
	}
	for id, sev := range lc.Severity {
		if parsed, ok := core.ParseSeverity(sev); ok {
			c.SeverityOverrides[id] = parsed
		}
	}
	for id, opts := range lc.Rules {
		c.RuleOptions[id] = opts
	}
	return c
}

// IsDisabled returns true if the rule should be skipped.
func (c *Config) IsDisabled(ruleID string) bool {
	if c == nil {
		return false
	}
	return c.DisabledRules[ruleID]
}

// GetSeverity returns the severity for a rule, applying any override.
func (c *Config) GetSeverity(ruleID string, defaultSeverity core.Severity) core.Severity {
	if c != nil {
		if sev, ok := c.SeverityOverrides[ruleID]; ok {
			return sev
		}
	}
	return defaultSeverity
}

// GetRuleOptions returns rule-specific options, or nil when none are set.
func (c *Config) GetRuleOptions(ruleID string) map[string]any {
	if c == nil {
		return nil
	}
	return c.RuleOptions[ruleID]
}

// Disable disables a rule by ID.
func (c *Config) Disable(ruleID string) *Config {
	c.DisabledRules[ruleID] = true
	return c
}

// SetSeverity overrides the severity for a rule.
func (c *Config) SetSeverity(ruleID string, severity core.Severity) *Config {
	c.SeverityOverrides[ruleID] = severity
	return c
}

// SetRuleOptions sets rule-specific options.
func (c *Config) SetRuleOptions(ruleID string, opts map[string]any) *Config {
	c.RuleOptions[ruleID] = opts
	return c
}
