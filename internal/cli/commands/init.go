package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/starpoint-labs/starpin/internal/cli/output"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new starpin project",
		Long: `Initialize a new starpin project with default layout and configuration.

This creates:
  - WORKSPACE file with a pinned example dependency
  - docs/ directory for documentation stub pages
  - starpin.yaml configuration file

Use --example to create a full working demo project with a Python
source tree and autosummary pages wired to it.`,
		Example: `  # Initialize in current directory
  starpin init

  # Initialize with a full working example
  starpin init --example

  # Initialize in a new directory
  starpin init my-project --example

  # Force overwrite existing config
  starpin init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			// Create renderer
			cfg := getConfig()
			mode := output.Mode(cfg.OutputFormat)
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

			if example {
				return runInitExample(r, dir, force)
			}
			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Create a full example project with sources and doc pages")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	// Create directory if specified and doesn't exist
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Check if config already exists
	configPath := dir + "/starpin.yaml"
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("starpin.yaml already exists. Use --force to overwrite")
	}

	// Copy minimal template
	if err := copyTemplate("minimal", dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	// List created files
	files, _ := listTemplateFiles("minimal")
	for _, f := range files {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("starpin project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Pin your external dependencies in WORKSPACE")
	r.Println("  2. Add autosummary stub pages under docs/")
	r.Println("  3. Run 'starpin fetch' to download and verify archives")
	r.Println("  4. Run 'starpin check' to audit pins and doc stubs")

	return nil
}

func runInitExample(r *output.Renderer, dir string, force bool) error {
	// Create directory if specified and doesn't exist
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Check if config already exists
	configPath := dir + "/starpin.yaml"
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("starpin.yaml already exists. Use --force to overwrite")
	}

	// Copy example template
	if err := copyTemplate("example", dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	// List created files by category
	files, _ := listTemplateFiles("example")
	groups := groupTemplateFiles(files)

	// Display files by category
	r.Header(2, "Configuration")
	for _, f := range groups["config"] {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Header(2, "Workspace")
	for _, f := range groups["workspace"] {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Header(2, "Docs")
	for _, f := range groups["docs"] {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Header(2, "Sources")
	for _, f := range groups["sources"] {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("starpin project initialized with example data!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  starpin fetch      Download and verify pinned archives")
	r.Println("  starpin check      Audit workspace pins and doc stubs")
	r.Println("  starpin list       View dependencies and doc pages")
	r.Println("  starpin graph      Visualize the dependency graph")

	return nil
}
