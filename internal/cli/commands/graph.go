package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/starpoint-labs/starpin/internal/cli/output"
	"github.com/starpoint-labs/starpin/internal/engine"
	"github.com/starpoint-labs/starpin/internal/graph"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	var pages bool

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show the dependency graph",
		Long: `Display the repository dependency graph.

Repositories are grouped by level: level 0 holds declarations nothing
depends on, each later level depends only on earlier ones. Macro
invocations appear as nodes so the declarations they pull in stay
connected to their call site. With --pages the toctree graph is shown
instead.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Show the dependency graph
  starpin graph

  # Show the docs toctree graph
  starpin graph --pages

  # Output as JSON
  starpin graph --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGraph(cmd, pages)
		},
	}

	cmd.Flags().BoolVar(&pages, "pages", false, "Show the docs toctree graph instead")

	return cmd
}

func runGraph(cmd *cobra.Command, pages bool) error {
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

	g := eng.DependencyGraph()
	title := "Dependency Graph"
	if pages {
		g = eng.PageGraph()
		title = "Toctree Graph"
	}
	if g == nil {
		return fmt.Errorf("graph not available")
	}

	levels, err := g.Levels()
	if err != nil {
		return fmt.Errorf("failed to compute graph levels: %w", err)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return graphJSON(r, g, levels)
	case output.ModeMarkdown:
		return graphMarkdown(r, g, levels, title)
	default:
		return graphText(r, g, levels, title)
	}
}

// graphText outputs the graph in styled text format.
func graphText(r *output.Renderer, g *graph.Graph, levels [][]string, title string) error {
	styles := r.Styles()

	r.Header(1, title)

	for i, level := range levels {
		r.Println(styles.Header2.Render(fmt.Sprintf("Level %d:", i)))
		for _, name := range level {
			deps := g.Parents(name)
			children := g.Children(name)

			r.Printf("  %s\n", styles.RepoName.Render(name))
			if len(deps) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("depends on:"), strings.Join(deps, ", "))
			}
			if len(children) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("used by:"), strings.Join(children, ", "))
			}
		}
		r.Println("")
	}

	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d nodes, %d edges", g.NodeCount(), g.EdgeCount())))

	return nil
}

// graphMarkdown outputs the graph in markdown format.
func graphMarkdown(r *output.Renderer, g *graph.Graph, levels [][]string, title string) error {
	r.Println(output.FormatHeader(1, title))
	r.Println("")

	for i, level := range levels {
		levelName := fmt.Sprintf("Level %d", i)
		if i == 0 {
			levelName = "Level 0 (Roots)"
		}
		r.Println(output.FormatHeader(2, levelName))

		for _, name := range level {
			deps := g.Parents(name)
			children := g.Children(name)

			r.Printf("- %s\n", name)
			if len(deps) > 0 {
				r.Printf("  - depends on: %s\n", strings.Join(deps, ", "))
			}
			if len(children) > 0 {
				r.Printf("  - used by: %s\n", strings.Join(children, ", "))
			}
		}
		r.Println("")
	}

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Total Nodes", fmt.Sprintf("%d", g.NodeCount())))
	r.Println(output.FormatKeyValue("Total Edges", fmt.Sprintf("%d", g.EdgeCount())))

	return nil
}

// graphJSON outputs the graph in JSON format.
func graphJSON(r *output.Renderer, g *graph.Graph, levels [][]string) error {
	graphOutput := output.GraphOutput{
		Levels:     make([]output.GraphLevel, 0, len(levels)),
		TotalNodes: g.NodeCount(),
		TotalEdges: g.EdgeCount(),
	}

	for i, level := range levels {
		graphLevel := output.GraphLevel{
			Level: i,
			Nodes: make([]output.GraphNode, 0, len(level)),
		}

		for _, name := range level {
			graphLevel.Nodes = append(graphLevel.Nodes, output.GraphNode{
				Name:      name,
				DependsOn: g.Parents(name),
				UsedBy:    g.Children(name),
			})
		}

		graphOutput.Levels = append(graphOutput.Levels, graphLevel)
	}

	return r.JSON(graphOutput)
}
