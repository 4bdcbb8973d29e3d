package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/starpoint-labs/starpin/internal/cli/config"
	"github.com/starpoint-labs/starpin/internal/cli/output"
	"github.com/starpoint-labs/starpin/internal/engine"
	"github.com/starpoint-labs/starpin/internal/report"
)

// defaultReportDir is where the static site lands when neither the
// config file nor the --output flag says otherwise.
const defaultReportDir = ".starpin/report"

// ReportOptions holds options shared by the report subcommands.
type ReportOptions struct {
	Output string
	Title  string
	Port   int
}

// NewReportCommand creates the report command with subcommands.
func NewReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate and serve the audit report site",
		Long: `Generate a static report site for the project, or serve it locally.

The report covers the pinned dependencies with their verification status,
documentation pages and coverage, lint findings, and the dependency graph.
The audit history from the state database ships with the site.`,
	}

	cmd.AddCommand(newReportBuildCommand())
	cmd.AddCommand(newReportServeCommand())

	return cmd
}

func newReportBuildCommand() *cobra.Command {
	opts := &ReportOptions{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate the static report site",
		Long: `Generate the report catalog and the static viewer into a directory.

Output adapts to environment:
  - Terminal: Success summary with the output path
  - Piped/Scripted: Full markdown report (for CI logs)
  - JSON: Machine-readable build summary`,
		Example: `  # Build the report with defaults
  starpin report build

  # Build into a custom directory
  starpin report build --output ./public

  # Emit the markdown report into a CI log
  starpin report build | tee report.md`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReportBuild(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Output, "output", "", "Output directory for the generated site")
	cmd.Flags().StringVar(&opts.Title, "title", "", "Report title (defaults to the project name)")

	return cmd
}

func newReportServeCommand() *cobra.Command {
	opts := &ReportOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build and serve the report site locally",
		Example: `  # Serve the report on the default port
  starpin report serve

  # Serve on a custom port
  starpin report serve --port 3000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReportServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Output, "output", "", "Output directory for the generated site")
	cmd.Flags().StringVar(&opts.Title, "title", "", "Report title (defaults to the project name)")
	cmd.Flags().IntVar(&opts.Port, "port", 8080, "Port to serve on")

	return cmd
}

// ReportBuildOutput is the JSON output for report build.
type ReportBuildOutput struct {
	Path         string  `json:"path"`
	Dependencies int     `json:"dependencies"`
	Pages        int     `json:"pages"`
	Findings     int     `json:"findings"`
	Coverage     float64 `json:"coverage_percent"`
	StateCopied  bool    `json:"state_copied"`
}

func runReportBuild(cmd *cobra.Command, opts *ReportOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	r := cmdCtx.Renderer

	catalog, outDir, stateCopied, err := buildReportSite(cmdCtx, opts)
	if err != nil {
		return err
	}

	buildOutput := &ReportBuildOutput{
		Path:         outDir,
		Dependencies: len(catalog.Dependencies),
		Pages:        len(catalog.Pages),
		Findings:     len(catalog.Findings),
		Coverage:     catalog.Summary.CoveragePercent,
		StateCopied:  stateCopied,
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(buildOutput)
	case output.ModeMarkdown:
		return report.WriteMarkdown(r.Writer(), catalog)
	default:
		r.Success(fmt.Sprintf("Report written to %s", outDir))
		r.Printf("  %d dependencies, %d pages, %d findings\n",
			buildOutput.Dependencies, buildOutput.Pages, buildOutput.Findings)
		r.Muted(fmt.Sprintf("Open %s in your browser", filepath.Join(outDir, "index.html")))
		return nil
	}
}

func runReportServe(cmd *cobra.Command, opts *ReportOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	_, outDir, _, err := buildReportSite(cmdCtx, opts)
	if err != nil {
		return err
	}

	return report.Serve(outDir, opts.Port)
}

// buildReportSite discovers the project, generates the site, and copies
// the state database alongside when one exists.
func buildReportSite(cmdCtx *CommandContext, opts *ReportOptions) (*report.Catalog, string, bool, error) {
	eng := cmdCtx.Engine
	cfg := cmdCtx.Cfg

	if _, err := eng.Discover(engine.DiscoveryOptions{}); err != nil {
		return nil, "", false, fmt.Errorf("discovery failed: %w", err)
	}

	gen := report.NewGenerator(eng)
	gen.Title = reportTitle(cfg, opts)

	outDir := reportDir(cfg, opts)
	catalog, err := gen.Build(outDir)
	if err != nil {
		return nil, "", false, fmt.Errorf("report build failed: %w", err)
	}

	// Ship the audit history when a state database exists.
	stateCopied := false
	statePath := resolveStatePath(cfg)
	if _, err := os.Stat(statePath); err == nil {
		dst := filepath.Join(outDir, "data", "state.db")
		if err := report.CopyStateDatabase(statePath, dst); err != nil {
			return nil, "", false, err
		}
		stateCopied = true
	}

	return catalog, outDir, stateCopied, nil
}

func reportDir(cfg *config.Config, opts *ReportOptions) string {
	if opts.Output != "" {
		return opts.Output
	}
	if cfg.Report != nil && cfg.Report.OutDir != "" {
		return cfg.Report.OutDir
	}
	root := cfg.ProjectRoot
	if root == "" {
		root = "."
	}
	return filepath.Join(root, defaultReportDir)
}

func reportTitle(cfg *config.Config, opts *ReportOptions) string {
	if opts.Title != "" {
		return opts.Title
	}
	if cfg.Report != nil && cfg.Report.Title != "" {
		return cfg.Report.Title
	}
	return ""
}
