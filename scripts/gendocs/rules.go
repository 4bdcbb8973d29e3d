package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starpoint-labs/starpin/pkg/lint"

	_ "github.com/starpoint-labs/starpin/pkg/lint/docs/rules"
	_ "github.com/starpoint-labs/starpin/pkg/lint/workspace/rules"
)

// workspaceGroupDescriptions provides human-readable descriptions for workspace rule groups.
var workspaceGroupDescriptions = map[string]string{
	"pinning":  "Rules about pinning declarations to exact content.",
	"security": "Rules about transport security of download URLs.",
	"mirrors":  "Rules about mirror redundancy for archive downloads.",
	"hygiene":  "Rules about duplicate and unused declarations.",
}

// docsGroupDescriptions provides human-readable descriptions for docs rule groups.
var docsGroupDescriptions = map[string]string{
	"resolution": "Rules about resolving stub entries against the scanned source surface.",
	"coverage":   "Rules about documentation coverage of the public surface.",
	"structure":  "Rules about page organization and toctree reachability.",
	"hygiene":    "Rules about duplicate entries and empty stub pages.",
}

// generateRuleDocs generates all rule documentation files.
func generateRuleDocs(outDir string) error {
	log.Printf("Generating rule docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	workspaceRules := lint.GetAllWorkspaceRules()
	docsRules := lint.GetAllDocsRules()

	if err := generateRuleIndex(outDir, len(workspaceRules), len(docsRules)); err != nil {
		return err
	}
	log.Printf("  Generated index.md")

	if err := generateWorkspaceRulesPage(outDir, workspaceRules); err != nil {
		return err
	}
	log.Printf("  Generated workspace-rules.md")

	if err := generateDocsRulesPage(outDir, docsRules); err != nil {
		return err
	}
	log.Printf("  Generated docs-rules.md")

	return nil
}

// generateRuleIndex generates the main rules overview page.
func generateRuleIndex(outDir string, workspaceCount, docsCount int) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Lint Rules", "Workspace and docs lint rules for starpin")
	w.GeneratedMarker()

	w.Header(1, "Lint Rules")
	w.Paragraph(fmt.Sprintf("starpin audits projects with **%d workspace rules** and **%d docs rules**.", workspaceCount, docsCount))

	w.Header(2, "Rule Types")
	w.BulletList([]string{
		Bold("Workspace Rules") + ": Analyze pin declarations for missing checksums, insecure URLs, and workspace hygiene",
		Bold("Docs Rules") + ": Analyze documentation stub pages against the scanned Python surface",
	})

	w.Header(2, "Severity Levels")
	w.Table(
		[]string{"Severity", "Description"},
		[][]string{
			{InlineCode("error"), "Violation that must be fixed"},
			{InlineCode("warning"), "Potential issue that should be reviewed"},
			{InlineCode("info"), "Informational feedback"},
		},
	)

	w.Header(2, "Configuration")
	w.Paragraph("Rules can be configured in `starpin.yaml`:")
	w.CodeBlock("yaml", `lint:
  disabled:
    - W006               # disable rule
  severity:
    W003: info           # override severity
  rules:
    W003:
      min_urls: 3        # rule-specific option`)

	w.Header(2, "Rule Categories")

	w.Header(3, "Workspace Rules")
	w.Table(
		[]string{"Category", "Description"},
		[][]string{
			{"[Pinning](/rules/workspace-rules#pinning)", "Checksum and commit pinning"},
			{"[Security](/rules/workspace-rules#security)", "Download URL transport security"},
			{"[Mirrors](/rules/workspace-rules#mirrors)", "Mirror redundancy"},
			{"[Hygiene](/rules/workspace-rules#hygiene)", "Duplicate and unused declarations"},
		},
	)

	w.Header(3, "Docs Rules")
	w.Table(
		[]string{"Category", "Description"},
		[][]string{
			{"[Resolution](/rules/docs-rules#resolution)", "Entry and module resolution"},
			{"[Coverage](/rules/docs-rules#coverage)", "Public surface coverage"},
			{"[Structure](/rules/docs-rules#structure)", "Page reachability"},
			{"[Hygiene](/rules/docs-rules#hygiene)", "Duplicate entries and empty pages"},
		},
	)

	return os.WriteFile(filepath.Join(outDir, "index.md"), w.Bytes(), 0600)
}

// generateWorkspaceRulesPage generates the workspace rules documentation page.
func generateWorkspaceRulesPage(outDir string, rules []lint.WorkspaceRule) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Workspace Lint Rules", "Pin declaration analysis rules for starpin")
	w.GeneratedMarker()

	w.Header(1, "Workspace Lint Rules")
	w.Paragraph(fmt.Sprintf("starpin includes %d workspace lint rules.", len(rules)))

	grouped := groupWorkspaceRulesByGroup(rules)
	groupOrder := []string{"pinning", "security", "mirrors", "hygiene"}

	for _, group := range groupOrder {
		groupRules, ok := grouped[group]
		if !ok || len(groupRules) == 0 {
			continue
		}

		w.Line(fmt.Sprintf("## %s {#%s}", capitalizeGroup(group), group))
		w.Newline()

		if desc, ok := workspaceGroupDescriptions[group]; ok {
			w.Paragraph(desc)
		}

		for _, rule := range groupRules {
			writeRuleDoc(w, rule)
		}
	}

	return os.WriteFile(filepath.Join(outDir, "workspace-rules.md"), w.Bytes(), 0600)
}

// generateDocsRulesPage generates the docs rules documentation page.
func generateDocsRulesPage(outDir string, rules []lint.DocsRule) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Docs Lint Rules", "Documentation stub analysis rules for starpin")
	w.GeneratedMarker()

	w.Header(1, "Docs Lint Rules")
	w.Paragraph(fmt.Sprintf("starpin includes %d docs lint rules.", len(rules)))

	grouped := groupDocsRulesByGroup(rules)
	groupOrder := []string{"resolution", "coverage", "structure", "hygiene"}

	for _, group := range groupOrder {
		groupRules, ok := grouped[group]
		if !ok || len(groupRules) == 0 {
			continue
		}

		w.Line(fmt.Sprintf("## %s {#%s}", capitalizeGroup(group), group))
		w.Newline()

		if desc, ok := docsGroupDescriptions[group]; ok {
			w.Paragraph(desc)
		}

		for _, rule := range groupRules {
			writeRuleDoc(w, rule)
		}
	}

	return os.WriteFile(filepath.Join(outDir, "docs-rules.md"), w.Bytes(), 0600)
}

// groupWorkspaceRulesByGroup organizes workspace rules by their Group field.
func groupWorkspaceRulesByGroup(rules []lint.WorkspaceRule) map[string][]lint.WorkspaceRule {
	grouped := make(map[string][]lint.WorkspaceRule)
	for _, r := range rules {
		grouped[r.Group()] = append(grouped[r.Group()], r)
	}
	for group := range grouped {
		sort.Slice(grouped[group], func(i, j int) bool {
			return grouped[group][i].ID() < grouped[group][j].ID()
		})
	}
	return grouped
}

// groupDocsRulesByGroup organizes docs rules by their Group field.
func groupDocsRulesByGroup(rules []lint.DocsRule) map[string][]lint.DocsRule {
	grouped := make(map[string][]lint.DocsRule)
	for _, r := range rules {
		grouped[r.Group()] = append(grouped[r.Group()], r)
	}
	for group := range grouped {
		sort.Slice(grouped[group], func(i, j int) bool {
			return grouped[group][i].ID() < grouped[group][j].ID()
		})
	}
	return grouped
}

// capitalizeGroup capitalizes the first letter of a group name.
func capitalizeGroup(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// writeRuleDoc writes detailed documentation for a single rule.
func writeRuleDoc(w *MarkdownWriter, rule lint.Rule) {
	// Rule header with anchor: ### W001 - pinning.missing_checksum {#W001}
	w.Line(fmt.Sprintf("### %s - %s {#%s}", rule.ID(), rule.Name(), rule.ID()))
	w.Newline()

	w.Line(fmt.Sprintf("**Severity:** %s", InlineCode(rule.DefaultSeverity().String())))
	w.Newline()

	w.Paragraph(cleanDescription(rule.Description()))

	if rationale := rule.Rationale(); rationale != "" {
		w.Header(4, "Why This Matters")
		w.Paragraph(strings.TrimSpace(rationale))
	}

	// Workspace examples are Starlark declarations, docs examples are RST.
	lang := "python"
	if _, ok := rule.(lint.DocsRule); ok {
		lang = "rst"
	}

	if badExample := rule.BadExample(); badExample != "" {
		w.Header(4, "Bad")
		w.CodeBlock(lang, badExample)
	}

	if goodExample := rule.GoodExample(); goodExample != "" {
		w.Header(4, "Good")
		w.CodeBlock(lang, goodExample)
	}

	if fix := rule.Fix(); fix != "" {
		w.Header(4, "How to Fix")
		w.Paragraph(strings.TrimSpace(fix))
	}

	if configKeys := rule.ConfigKeys(); len(configKeys) > 0 {
		w.Header(4, "Configuration")
		w.Paragraph(fmt.Sprintf("This rule accepts the following configuration options: %s",
			InlineCode(strings.Join(configKeys, ", "))))
	}

	w.Line("---")
	w.Newline()
}
