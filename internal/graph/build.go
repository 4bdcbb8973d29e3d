package graph

import (
	"strings"

	"github.com/starpoint-labs/starpin/pkg/core"
)

// InvocationID returns the node ID used for a macro invocation.
// Invocations share the dependency graph so that fetch planning can order
// a macro's providing repository before the wiring step.
func InvocationID(inv *core.Invocation) string {
	return inv.Macro + "()"
}

// IsInvocationID reports whether a node ID names a macro invocation
// rather than a dependency.
func IsInvocationID(id string) bool {
	return strings.HasSuffix(id, "()")
}

// FromWorkspace builds the dependency graph for a workspace.
//
// Nodes are the effective dependencies plus one node per macro invocation.
// Edges capture what the declarations make visible:
//   - a load label "@repo//..." makes repo a prerequisite of every macro
//     invoked from that label
//   - a build_file or patch label "@repo//..." makes repo a prerequisite
//     of the declaring dependency
//
// References to repositories that are not declared are skipped here; lint
// reports them.
func FromWorkspace(ws *core.Workspace) (*Graph, error) {
	g := New()

	deps := ws.Effective()
	for _, dep := range deps {
		g.AddNode(dep.Name, dep)
	}

	// Label references within declarations
	for _, dep := range deps {
		for _, label := range append([]string{dep.BuildFile}, dep.Patches...) {
			repo := core.RepoOfLabel(label)
			if repo == "" || repo == dep.Name {
				continue
			}
			if _, ok := g.Node(repo); !ok {
				continue
			}
			if err := g.AddEdge(repo, dep.Name); err != nil {
				return nil, err
			}
		}
	}

	// Macro wiring: the invocation depends on the repository its load
	// statement came from
	loadByLabel := make(map[string]*core.LoadStmt, len(ws.Loads))
	for _, l := range ws.Loads {
		loadByLabel[l.Label] = l
	}
	for _, inv := range ws.Invocations {
		id := InvocationID(inv)
		g.AddNode(id, inv)

		repo := core.RepoOfLabel(inv.From)
		if repo == "" {
			continue
		}
		if _, ok := g.Node(repo); !ok {
			continue
		}
		if err := g.AddEdge(repo, id); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// FromPages builds the page graph: one node per stub page, one edge per
// toctree reference to a known page. Orphan detection walks this graph
// from the root pages.
func FromPages(pages []*core.Page) (*Graph, error) {
	g := New()

	for _, page := range pages {
		g.AddNode(page.Path, page)
	}

	for _, page := range pages {
		for _, toc := range page.TocTrees {
			for _, ref := range toc.Refs {
				if ref == page.Path {
					continue
				}
				if _, ok := g.Node(ref); !ok {
					// Unknown reference, lint reports it
					continue
				}
				if err := g.AddEdge(page.Path, ref); err != nil {
					return nil, err
				}
			}
		}
	}

	return g, nil
}
