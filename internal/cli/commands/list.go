package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/starpoint-labs/starpin/internal/cli/output"
	"github.com/starpoint-labs/starpin/internal/engine"
	"github.com/starpoint-labs/starpin/pkg/core"
)

// ListOptions holds options for the list command.
type ListOptions struct {
	DepsOnly  bool
	PagesOnly bool
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	opts := &ListOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dependencies and stub pages with their status",
		Long: `List the effective workspace declarations and the stub pages,
together with the outcome of their most recent checks.

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # List everything
  starpin list

  # Only the workspace dependencies
  starpin list --deps

  # Machine-readable listing
  starpin list --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DepsOnly, "deps", false, "List only workspace dependencies")
	cmd.Flags().BoolVar(&opts.PagesOnly, "pages", false, "List only stub pages")

	return cmd
}

func runList(cmd *cobra.Command, opts *ListOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer

	if _, err := eng.Discover(engine.DiscoveryOptions{}); err != nil {
		return fmt.Errorf("failed to discover project: %w", err)
	}

	listOutput := buildListOutput(eng, opts)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(listOutput)
	case output.ModeMarkdown:
		listRender(r, listOutput, opts, true)
	default:
		listRender(r, listOutput, opts, false)
	}
	return nil
}

func buildListOutput(eng *engine.Engine, opts *ListOptions) output.ListOutput {
	listOutput := output.ListOutput{}

	// Status columns come from the latest recorded checks. A missing or
	// empty state database just leaves them blank.
	store, _ := eng.Store()
	latest := func(kind core.CheckKind, target string) string {
		if store == nil {
			return ""
		}
		check, err := store.GetLatestCheck(kind, target)
		if err != nil || check == nil {
			return ""
		}
		return string(check.Status)
	}

	if !opts.PagesOnly {
		for _, dep := range eng.Workspace().Effective() {
			info := output.DependencyInfo{
				Name:   dep.Name,
				Kind:   string(dep.Kind),
				Pinned: dep.Pinned(),
				Pin:    dependencyPin(dep),
				Source: dep.Source(),
				Line:   dep.DeclaredAt.Line,
				Status: latest(core.CheckVerify, dep.Name),
			}
			listOutput.Dependencies = append(listOutput.Dependencies, info)

			listOutput.Summary.Total++
			if dep.Pinned() {
				listOutput.Summary.Pinned++
			}
			switch dep.Kind {
			case core.DepHTTPArchive:
				listOutput.Summary.HTTPArchives++
			case core.DepGitRepository:
				listOutput.Summary.GitRepos++
			}
		}
	}

	if !opts.DepsOnly {
		for _, page := range eng.Pages() {
			listOutput.Pages = append(listOutput.Pages, output.PageInfo{
				Path:    page.Path,
				Title:   page.Title,
				Module:  page.Module,
				Entries: len(page.Entries),
				Orphan:  page.Orphan,
				Status:  latest(core.CheckDocs, page.Path),
			})
		}
	}

	return listOutput
}

// dependencyPin returns the short form of the pin for display.
func dependencyPin(dep *core.Dependency) string {
	switch {
	case dep.Kind == core.DepGitRepository && dep.Commit != "":
		return shortDigest(dep.Commit)
	case dep.Kind == core.DepGitRepository && dep.Tag != "":
		return dep.Tag
	case dep.SHA256 != "":
		return shortDigest(dep.SHA256)
	default:
		return ""
	}
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

func listRender(r *output.Renderer, listOutput output.ListOutput, opts *ListOptions, markdown bool) {
	if !opts.PagesOnly {
		r.Header(1, fmt.Sprintf("Dependencies (%d total, %d pinned)",
			listOutput.Summary.Total, listOutput.Summary.Pinned))

		t := table.NewWriter()
		t.SetOutputMirror(r.Writer())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Name", "Kind", "Pin", "Status", "Source"})
		for _, dep := range listOutput.Dependencies {
			pin := dep.Pin
			if pin == "" {
				pin = "(unpinned)"
			}
			t.AppendRow(table.Row{dep.Name, dep.Kind, pin, dep.Status, truncateMiddle(dep.Source, 48)})
		}
		if markdown {
			t.RenderMarkdown()
		} else {
			t.Render()
		}
		r.Println("")
	}

	if !opts.DepsOnly {
		r.Header(1, fmt.Sprintf("Pages (%d total)", len(listOutput.Pages)))

		t := table.NewWriter()
		t.SetOutputMirror(r.Writer())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Page", "Module", "Entries", "Status"})
		for _, page := range listOutput.Pages {
			name := page.Path
			if page.Orphan {
				name += " (orphan)"
			}
			t.AppendRow(table.Row{name, page.Module, page.Entries, page.Status})
		}
		if markdown {
			t.RenderMarkdown()
		} else {
			t.Render()
		}
	}
}

// truncateMiddle shortens long URLs, keeping both ends readable.
func truncateMiddle(s string, max int) string {
	if len(s) <= max || max < 5 {
		return s
	}
	half := (max - 3) / 2
	return s[:half] + "..." + s[len(s)-half:]
}
