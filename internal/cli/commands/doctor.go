package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/spf13/cobra"
	"github.com/starpoint-labs/starpin/internal/cli/config"
	"github.com/starpoint-labs/starpin/internal/cli/output"
	"github.com/starpoint-labs/starpin/internal/engine"
	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/starpoint-labs/starpin/pkg/lint"
	_ "github.com/starpoint-labs/starpin/pkg/lint/docs/rules"      // register docs rules
	_ "github.com/starpoint-labs/starpin/pkg/lint/workspace/rules" // register workspace rules
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Format string // Output format: text, json
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run a comprehensive project health check",
		Long: `Analyze your starpin project for potential issues and best practices.

The doctor command inspects the project environment and runs every lint
rule, then provides a comprehensive report including:
- Project summary (dependencies, pages, modules, graph structure)
- Environment checks (config, workspace, docs, sources, cache, state, lockfile)
- Health checks grouped by category (Pinning, Security, Resolution, ...)
- Health score (0-100)
- Actionable recommendations

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run health check
  starpin doctor

  # Output as JSON
  starpin doctor --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json")

	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Summary         ProjectSummary `json:"summary"`
	HealthChecks    []HealthCheck  `json:"health_checks"`
	Score           int            `json:"score"`
	Recommendations []string       `json:"recommendations"`
	IssueCount      int            `json:"issue_count"`
}

// ProjectSummary contains project-level statistics.
type ProjectSummary struct {
	Dependencies  int `json:"dependencies"`
	Invocations   int `json:"invocations"`
	Pages         int `json:"pages"`
	Entries       int `json:"entries"`
	Modules       int `json:"modules"`
	PublicSymbols int `json:"public_symbols"`
	GraphDepth    int `json:"graph_depth"`
	GraphEdges    int `json:"graph_edges"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	RuleID     string   `json:"rule_id"`
	Name       string   `json:"name"`
	Group      string   `json:"group"`
	Status     string   `json:"status"` // "pass", "warn", "error"
	IssueCount int      `json:"issue_count"`
	Details    []string `json:"details,omitempty"`
}

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	// Override renderer if format flag is set
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}

	// A broken workspace is the patient, not a precondition. Render a
	// degraded report and keep the non-zero exit.
	disc, discErr := eng.Discover(engine.DiscoveryOptions{})
	if discErr != nil {
		out := buildDegradedOutput(discErr)
		if err := renderDoctor(r, out); err != nil {
			return err
		}
		return discErr
	}

	lintResult, err := eng.Lint()
	if err != nil {
		return fmt.Errorf("health analysis failed: %w", err)
	}

	doctorOutput := buildDoctorOutput(eng, cfg, disc, lintResult.Diagnostics)

	return renderDoctor(r, doctorOutput)
}

func renderDoctor(r *output.Renderer, out *DoctorOutput) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		return renderDoctorMarkdown(r, out)
	default:
		return renderDoctorText(r, out)
	}
}

func buildDoctorOutput(eng *engine.Engine, cfg *config.Config, disc *engine.DiscoveryResult, diags []lint.Diagnostic) *DoctorOutput {
	summary := buildProjectSummary(eng, disc)

	// Environment checks keep their fixed order; rule checks sort by
	// group then ID behind them.
	healthChecks := buildEnvironmentChecks(eng, cfg, disc)
	envIssues := 0
	for _, hc := range healthChecks {
		envIssues += hc.IssueCount
	}

	// Group diagnostics by rule
	diagsByRule := make(map[string][]lint.Diagnostic)
	for _, d := range diags {
		diagsByRule[d.RuleID] = append(diagsByRule[d.RuleID], d)
	}

	// Build health checks from all registered rules
	rules := lint.AllRules()
	ruleChecks := make([]HealthCheck, 0, len(rules))

	for _, rule := range rules {
		ruleDiags := diagsByRule[rule.ID]
		status := "pass"
		if len(ruleDiags) > 0 {
			if rule.DefaultSeverity == core.SeverityError {
				status = "error"
			} else {
				status = "warn"
			}
		}

		details := make([]string, 0, len(ruleDiags))
		for _, d := range ruleDiags {
			if d.Target != "" {
				details = append(details, fmt.Sprintf("%s: %s", d.Target, d.Message))
			} else {
				details = append(details, d.Message)
			}
		}

		ruleChecks = append(ruleChecks, HealthCheck{
			RuleID:     rule.ID,
			Name:       rule.Name,
			Group:      rule.Group,
			Status:     status,
			IssueCount: len(ruleDiags),
			Details:    details,
		})
	}

	// Sort rule checks by group then by rule ID
	sort.Slice(ruleChecks, func(i, j int) bool {
		if ruleChecks[i].Group != ruleChecks[j].Group {
			return ruleChecks[i].Group < ruleChecks[j].Group
		}
		return ruleChecks[i].RuleID < ruleChecks[j].RuleID
	})

	healthChecks = append(healthChecks, ruleChecks...)

	// Score depends on how many targets the issues spread across
	score := calculateHealthScore(healthChecks, summary.Dependencies+summary.Pages)

	recommendations := generateRecommendations(healthChecks)

	return &DoctorOutput{
		Summary:         summary,
		HealthChecks:    healthChecks,
		Score:           score,
		Recommendations: recommendations,
		IssueCount:      len(diags) + envIssues,
	}
}

// buildDegradedOutput reports a workspace that would not even parse.
func buildDegradedOutput(discErr error) *DoctorOutput {
	checks := []HealthCheck{
		checkConfigFile(),
		{
			RuleID:     "workspace",
			Name:       "Workspace declarations",
			Group:      "environment",
			Status:     "error",
			IssueCount: 1,
			Details:    []string{discErr.Error()},
		},
	}
	return &DoctorOutput{
		HealthChecks:    checks,
		Score:           0,
		Recommendations: []string{"Fix the workspace file so declarations can be discovered"},
		IssueCount:      1,
	}
}

func buildProjectSummary(eng *engine.Engine, disc *engine.DiscoveryResult) ProjectSummary {
	summary := ProjectSummary{
		Dependencies:  disc.Dependencies,
		Invocations:   disc.Invocations,
		Pages:         disc.Pages,
		Entries:       disc.Entries,
		Modules:       disc.Modules,
		PublicSymbols: disc.PublicSymbols,
	}

	if g := eng.DependencyGraph(); g != nil {
		summary.GraphEdges = g.EdgeCount()
		if levels, err := g.Levels(); err == nil {
			summary.GraphDepth = len(levels)
		}
	}

	return summary
}

// buildEnvironmentChecks inspects the project surroundings the lint
// rules take for granted. None of the probes mutate anything.
func buildEnvironmentChecks(eng *engine.Engine, cfg *config.Config, disc *engine.DiscoveryResult) []HealthCheck {
	checks := []HealthCheck{checkConfigFile()}

	// Workspace parsed, or Discover would have failed.
	ws := HealthCheck{
		RuleID: "workspace",
		Name:   "Workspace declarations",
		Group:  "environment",
		Status: "pass",
		Details: []string{
			fmt.Sprintf("%d declarations, %d macro invocations", disc.Dependencies, disc.Invocations),
		},
	}
	if disc.Dependencies == 0 {
		ws.Status = "warn"
		ws.IssueCount = 1
		ws.Details = []string{fmt.Sprintf("no dependency declarations found in %s", cfg.Workspace)}
	}
	checks = append(checks, ws)

	docs := HealthCheck{
		RuleID: "docs",
		Name:   "Documentation stubs",
		Group:  "environment",
		Status: "pass",
		Details: []string{
			fmt.Sprintf("%d pages, %d autosummary entries", disc.Pages, disc.Entries),
		},
	}
	if errs := discoveryDetails(disc, "docs"); len(errs) > 0 {
		docs.Status = "warn"
		docs.IssueCount = len(errs)
		docs.Details = errs
	}
	checks = append(checks, docs)

	src := HealthCheck{
		RuleID: "sources",
		Name:   "Python sources",
		Group:  "environment",
		Status: "pass",
		Details: []string{
			fmt.Sprintf("%d modules, %d public symbols", disc.Modules, disc.PublicSymbols),
		},
	}
	if errs := discoveryDetails(disc, "source"); len(errs) > 0 {
		src.Status = "warn"
		src.IssueCount = len(errs)
		src.Details = errs
	} else if disc.Modules == 0 {
		src.Status = "warn"
		src.IssueCount = 1
		src.Details = []string{"no modules scanned, docs entries cannot be resolved"}
	}
	checks = append(checks, src)

	checks = append(checks, checkArtifactCache(eng))
	checks = append(checks, checkStateDatabase(cfg))
	checks = append(checks, checkLockfile(eng))

	return checks
}

func checkConfigFile() HealthCheck {
	hc := HealthCheck{
		RuleID: "config",
		Name:   "Configuration file",
		Group:  "environment",
		Status: "pass",
	}
	if path := config.GetConfigFileUsed(); path != "" {
		hc.Details = []string{path}
	} else {
		hc.Status = "warn"
		hc.IssueCount = 1
		hc.Details = []string{"no starpin.yaml found, using defaults and environment variables"}
	}
	return hc
}

func checkArtifactCache(eng *engine.Engine) HealthCheck {
	hc := HealthCheck{
		RuleID: "cache",
		Name:   "Artifact cache",
		Group:  "environment",
		Status: "pass",
	}
	dir := eng.CacheDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		// An absent cache is normal before the first fetch.
		hc.Details = []string{fmt.Sprintf("%s (created on first fetch)", dir)}
		return hc
	}
	archives := 0
	for _, e := range entries {
		if !e.IsDir() {
			archives++
		}
	}
	hc.Details = []string{fmt.Sprintf("%d cached archives in %s", archives, dir)}
	return hc
}

func checkStateDatabase(cfg *config.Config) HealthCheck {
	hc := HealthCheck{
		RuleID: "state",
		Name:   "State database",
		Group:  "environment",
		Status: "pass",
	}
	path := resolveStatePath(cfg)
	info, err := os.Stat(path)
	if err != nil {
		hc.Status = "warn"
		hc.IssueCount = 1
		hc.Details = []string{"no state database yet, run 'starpin check' to record a baseline"}
		return hc
	}
	hc.Details = []string{fmt.Sprintf("%s (%s)", path, formatSize(info.Size()))}
	return hc
}

func checkLockfile(eng *engine.Engine) HealthCheck {
	hc := HealthCheck{
		RuleID: "lockfile",
		Name:   "Lockfile",
		Group:  "environment",
		Status: "pass",
	}
	path := eng.LockPath()
	if _, err := os.Stat(path); err != nil {
		hc.Status = "warn"
		hc.IssueCount = 1
		hc.Details = []string{"no lockfile yet, run 'starpin lock' to record resolved pins"}
		return hc
	}
	diff, err := eng.CheckLock()
	if err != nil {
		hc.Status = "error"
		hc.IssueCount = 1
		hc.Details = []string{err.Error()}
		return hc
	}
	if !diff.Empty() {
		hc.Status = "error"
		hc.IssueCount = 1
		hc.Details = []string{"out of date with the workspace, run 'starpin lock'"}
		return hc
	}
	hc.Details = []string{path}
	return hc
}

func discoveryDetails(disc *engine.DiscoveryResult, kind string) []string {
	var details []string
	for _, e := range disc.Errors {
		if e.Type != kind {
			continue
		}
		if e.Path != "" {
			details = append(details, fmt.Sprintf("%s: %s", e.Path, e.Message))
		} else {
			details = append(details, e.Message)
		}
	}
	return details
}

// calculateHealthScore computes a health score from 0-100.
// The scoring weights:
// - Each passing rule adds points
// - Each issue reduces points
// - More targets means issues have less individual impact
func calculateHealthScore(checks []HealthCheck, targetCount int) int {
	if len(checks) == 0 {
		return 100
	}

	// Base score starts at 100
	score := 100.0

	// Calculate penalty per issue
	// With more dependencies and pages, each individual issue has less impact
	basePenalty := 5.0
	if targetCount > 10 {
		basePenalty = 3.0
	}
	if targetCount > 50 {
		basePenalty = 2.0
	}
	if targetCount > 100 {
		basePenalty = 1.0
	}

	for _, check := range checks {
		switch check.Status {
		case "error":
			score -= float64(check.IssueCount) * basePenalty * 2 // Errors count double
		case "warn":
			score -= float64(check.IssueCount) * basePenalty
		}
	}

	// Clamp to 0-100
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return int(score)
}

// generateRecommendations creates actionable recommendations based on findings.
func generateRecommendations(checks []HealthCheck) []string {
	var recommendations []string
	seen := make(map[string]bool)

	// Errors first, then warnings
	for _, wanted := range []string{"error", "warn"} {
		for _, check := range checks {
			if check.IssueCount == 0 || check.Status != wanted {
				continue
			}

			rec := getRecommendation(check.RuleID)
			if rec != "" && !seen[rec] {
				recommendations = append(recommendations, rec)
				seen[rec] = true
			}
		}
	}

	// Limit to top 5 recommendations
	if len(recommendations) > 5 {
		recommendations = recommendations[:5]
	}

	return recommendations
}

// getRecommendation returns a recommendation for a specific rule.
func getRecommendation(ruleID string) string {
	switch ruleID {
	case "W001":
		return "Add sha256 checksums to archive declarations, 'starpin fetch' reports the digest of each download"
	case "W002":
		return "Serve archives over https, plain http can be tampered with in transit"
	case "W003":
		return "Add a mirror URL to each archive so a single host outage does not break fetches"
	case "W004":
		return "Remove duplicate repository declarations, the last one silently wins"
	case "W005":
		return "Pin git repositories to a full commit hash instead of a branch or tag"
	case "W006":
		return "Drop dependencies that no macro invocation or docs page references"
	case "D001":
		return "Fix autosummary entries that do not resolve, 'starpin docs check' suggests close matches"
	case "D002":
		return "List undocumented public symbols on a stub page or prefix them with an underscore"
	case "D003":
		return "Remove duplicated autosummary entries"
	case "D004":
		return "Point module directives at modules that exist under the source roots"
	case "D005":
		return "Reference orphan pages from a toctree or mark them with :orphan:"
	case "D006":
		return "Fill empty autosummary directives with entries or delete them"
	case "config":
		return "Run 'starpin init' to create a starpin.yaml and make project settings explicit"
	case "state":
		return "Run 'starpin check' to create the state database and record a baseline run"
	case "lockfile":
		return "Run 'starpin lock' to record resolved pins in starpin.lock"
	case "sources":
		return "Point src_dirs at the Python package roots so docs entries can be resolved"
	case "docs":
		return "Point docs_dir at the directory holding the RST stub pages"
	case "workspace":
		return "Declare dependencies in the workspace file so there is something to pin"
	default:
		return ""
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) error {
	styles := r.Styles()

	// Header
	r.Println("")
	r.Println(styles.Header1.Render("Starpin Project Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	// Project Summary
	r.Println(styles.Header2.Render("Project Summary"))
	r.Printf("   Dependencies: %d (%d macro invocations) | Pages: %d (%d entries)\n",
		out.Summary.Dependencies, out.Summary.Invocations, out.Summary.Pages, out.Summary.Entries)
	r.Printf("   Modules: %d | Public symbols: %d | Graph: %d levels, %d edges\n",
		out.Summary.Modules, out.Summary.PublicSymbols, out.Summary.GraphDepth, out.Summary.GraphEdges)
	r.Println("")

	// Health Checks grouped by category
	r.Println(styles.Header2.Render("Health Checks"))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.Success.Render("✓")
		switch check.Status {
		case "warn":
			icon = styles.Warning.Render("!")
		case "error":
			icon = styles.Error.Render("✗")
		}

		status := fmt.Sprintf("%s %s: %s", icon, check.RuleID, check.Name)
		if check.IssueCount > 0 {
			status += fmt.Sprintf(" (%d issues)", check.IssueCount)
		}
		r.Println("   " + status)

		// Show first 3 details for issues
		for i, detail := range check.Details {
			if i >= 3 {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(check.Details)-3)))
				break
			}
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	// Health Score
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	// Recommendations
	if len(out.Recommendations) > 0 {
		r.Println(styles.Header2.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) error {
	r.Println("# Starpin Project Health Report")
	r.Println("")

	// Project Summary
	r.Println("## Project Summary")
	r.Println("")
	r.Printf("- **Dependencies**: %d\n", out.Summary.Dependencies)
	r.Printf("- **Macro Invocations**: %d\n", out.Summary.Invocations)
	r.Printf("- **Pages**: %d\n", out.Summary.Pages)
	r.Printf("- **Entries**: %d\n", out.Summary.Entries)
	r.Printf("- **Modules**: %d\n", out.Summary.Modules)
	r.Printf("- **Public Symbols**: %d\n", out.Summary.PublicSymbols)
	r.Printf("- **Graph Depth**: %d levels\n", out.Summary.GraphDepth)
	r.Printf("- **Graph Edges**: %d\n", out.Summary.GraphEdges)
	r.Println("")

	// Health Checks
	r.Println("## Health Checks")
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("### " + titleCaser.String(currentGroup))
			r.Println("")
		}

		status := "PASS"
		switch check.Status {
		case "warn":
			status = "WARN"
		case "error":
			status = "ERROR"
		}

		r.Printf("- **[%s]** %s: %s", status, check.RuleID, check.Name)
		if check.IssueCount > 0 {
			r.Printf(" (%d issues)", check.IssueCount)
		}
		r.Println("")

		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	// Health Score
	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
	r.Println("")

	// Recommendations
	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}
