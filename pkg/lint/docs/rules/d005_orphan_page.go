package rules

import (
	"fmt"
	"path"
	"strings"

	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/starpoint-labs/starpin/pkg/lint"
	"github.com/starpoint-labs/starpin/pkg/lint/docs"
)

func init() {
	docs.Register(OrphanPage)
}

// OrphanPage flags pages that no toctree reaches from the root page.
// Pages under an autosummary :toctree: target directory count as
// reachable, matching how stub generation wires them in.
var OrphanPage = docs.RuleDef{
	ID:          "D005",
	Name:        "structure.orphan_page",
	Group:       "structure",
	Description: "Every page should be reachable from the root toctree or marked :orphan:.",
	Severity:    core.SeverityWarning,
	Check:       checkOrphanPage,
	ConfigKeys:  []string{"root"},

	Rationale: `A page outside every toctree is built but never linked: readers
cannot navigate to it and the site generator warns on every build. Pages that are
intentionally standalone should say so with the :orphan: marker.`,

	Fix: "Add the page to a toctree on a reachable page, or mark it :orphan:.",
}

const defaultRootPage = "index"

func checkOrphanPage(ctx lint.DocsContext, opts map[string]any) []lint.Diagnostic {
	root := lint.GetStringOption(opts, "root", defaultRootPage)

	pages := ctx.Pages()
	byPath := make(map[string]*core.Page, len(pages))
	for _, p := range pages {
		byPath[p.Path] = p
	}
	rootPage, ok := byPath[root]
	if !ok {
		// Without a root there is no reachability to compute.
		return nil
	}

	reachable := map[string]bool{root: true}
	queue := []*core.Page{rootPage}
	enqueue := func(p *core.Page) {
		if !reachable[p.Path] {
			reachable[p.Path] = true
			queue = append(queue, p)
		}
	}

	for len(queue) > 0 {
		page := queue[0]
		queue = queue[1:]

		for _, toc := range page.TocTrees {
			for _, ref := range toc.Refs {
				if target, ok := byPath[strings.TrimPrefix(ref, "/")]; ok {
					enqueue(target)
				}
			}
		}
		for _, block := range page.Summaries {
			if block.Toctree == "" {
				continue
			}
			prefix := path.Join(path.Dir(page.Path), block.Toctree) + "/"
			for _, p := range pages {
				if strings.HasPrefix(p.Path, prefix) {
					enqueue(p)
				}
			}
		}
	}

	var diagnostics []lint.Diagnostic
	for _, p := range pages {
		if p.Orphan || reachable[p.Path] {
			continue
		}
		diagnostics = append(diagnostics, lint.Diagnostic{
			RuleID:           "D005",
			Severity:         core.SeverityWarning,
			Message:          fmt.Sprintf("page %s is not reachable from %s and is not marked :orphan:", p.Path, root),
			Pos:              core.Position{File: p.FilePath, Line: 1},
			Target:           p.Path,
			DocumentationURL: lint.BuildDocURL("D005"),
			ImpactScore:      lint.ImpactMedium.Int(),
			AutoFixable:      false,
		})
	}

	return diagnostics
}
