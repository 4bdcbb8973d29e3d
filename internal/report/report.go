// Package report renders audit results for a pinned workspace: a catalog
// JSON document, a markdown summary for CI logs, and a self-contained
// static site browsable without a server.
package report

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/starpoint-labs/starpin/internal/engine"
	"github.com/starpoint-labs/starpin/internal/graph"
)

// Catalog is the complete report payload. It is written to
// data/catalog.json in the static site and consumed by the viewer.
type Catalog struct {
	GeneratedAt time.Time `json:"generated_at"`
	Title       string    `json:"title"`
	Project     string    `json:"project"`
	Workspace   string    `json:"workspace"`

	Dependencies []*DependencyDoc `json:"dependencies"`
	Pages        []*PageDoc       `json:"pages"`
	Coverage     []*CoverageDoc   `json:"coverage"`
	Findings     []*FindingDoc    `json:"findings"`
	Graph        GraphDoc         `json:"graph"`
	Summary      Summary          `json:"summary"`
}

// DependencyDoc describes one effective workspace declaration together
// with its verification outcome.
type DependencyDoc struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Pinned       bool     `json:"pinned"`
	SHA256       string   `json:"sha256,omitempty"`
	Commit       string   `json:"commit,omitempty"`
	Tag          string   `json:"tag,omitempty"`
	URLs         []string `json:"urls,omitempty"`
	Remote       string   `json:"remote,omitempty"`
	StripPrefix  string   `json:"strip_prefix,omitempty"`
	Verify       string   `json:"verify,omitempty"`
	VerifyDetail string   `json:"verify_detail,omitempty"`
	// UsedBy lists the macro invocations this repository feeds.
	UsedBy       []string `json:"used_by,omitempty"`
	DeclaredLine int      `json:"declared_line,omitempty"`
}

// PageDoc describes one documentation page.
type PageDoc struct {
	Path       string `json:"path"`
	Title      string `json:"title,omitempty"`
	Module     string `json:"module,omitempty"`
	Entries    int    `json:"entries"`
	Unresolved int    `json:"unresolved,omitempty"`
	Orphan     bool   `json:"orphan,omitempty"`
}

// CoverageDoc describes documentation coverage for one module.
type CoverageDoc struct {
	Module     string   `json:"module"`
	Public     int      `json:"public"`
	Documented int      `json:"documented"`
	Percent    float64  `json:"percent"`
	Missing    []string `json:"missing,omitempty"`
	Extra      []string `json:"extra,omitempty"`
}

// FindingDoc is one lint diagnostic in catalog form.
type FindingDoc struct {
	RuleID   string `json:"rule_id"`
	Severity string `json:"severity"`
	Target   string `json:"target,omitempty"`
	Message  string `json:"message"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
}

// GraphDoc is the dependency graph in node/edge form for the viewer.
type GraphDoc struct {
	Nodes []string    `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphEdge represents an edge from a repository to what consumes it.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Summary holds the headline counts rendered on the overview page.
type Summary struct {
	Dependencies     int     `json:"dependencies"`
	Pinned           int     `json:"pinned"`
	MacroInvocations int     `json:"macro_invocations"`
	VerifyFailed     int     `json:"verify_failed"`
	Pages            int     `json:"pages"`
	Entries          int     `json:"entries"`
	Unresolved       int     `json:"unresolved"`
	Modules          int     `json:"modules"`
	PublicSymbols    int     `json:"public_symbols"`
	SourcesScanned   bool    `json:"sources_scanned"`
	CoveragePercent  float64 `json:"coverage_percent"`
	Errors           int     `json:"errors"`
	Warnings         int     `json:"warnings"`
	Infos            int     `json:"infos"`
}

// Generator builds catalogs from a discovered engine.
type Generator struct {
	eng *engine.Engine

	// Title overrides the report heading. Empty means the project name.
	Title string
}

// NewGenerator creates a generator over an engine. The engine must have
// completed Discover before GenerateCatalog is called.
func NewGenerator(eng *engine.Engine) *Generator {
	return &Generator{eng: eng}
}

// GenerateCatalog runs verification, docs checks, and lint over the
// discovered project and assembles the results into a catalog.
func (g *Generator) GenerateCatalog() (*Catalog, error) {
	ws := g.eng.Workspace()
	if ws == nil {
		return nil, fmt.Errorf("workspace not discovered, call Discover first")
	}

	verify, err := g.eng.Verify()
	if err != nil {
		return nil, fmt.Errorf("pin verification failed: %w", err)
	}
	lintRes, err := g.eng.Lint()
	if err != nil {
		return nil, fmt.Errorf("lint failed: %w", err)
	}

	// Docs resolution and coverage need a scanned source tree.
	var docsRes *engine.DocsCheckResult
	var coverage *engine.CoverageResult
	if g.eng.Resolver() != nil {
		docsRes, err = g.eng.CheckDocs()
		if err != nil {
			return nil, fmt.Errorf("docs check failed: %w", err)
		}
		coverage, err = g.eng.Coverage()
		if err != nil {
			return nil, fmt.Errorf("coverage failed: %w", err)
		}
	}

	title := g.Title
	if title == "" {
		title = g.eng.ProjectName()
	}

	catalog := &Catalog{
		GeneratedAt:  time.Now().UTC(),
		Title:        title,
		Project:      g.eng.ProjectName(),
		Workspace:    ws.Path,
		Dependencies: []*DependencyDoc{},
		Pages:        []*PageDoc{},
		Coverage:     []*CoverageDoc{},
		Findings:     []*FindingDoc{},
	}

	verifyByName := make(map[string]*engine.Verification, len(verify.Checks))
	for _, v := range verify.Checks {
		verifyByName[v.Name] = v
	}

	depGraph := g.eng.DependencyGraph()
	for _, dep := range ws.Effective() {
		doc := &DependencyDoc{
			Name:         dep.Name,
			Kind:         string(dep.Kind),
			Pinned:       dep.Pinned(),
			SHA256:       dep.SHA256,
			Commit:       dep.Commit,
			Tag:          dep.Tag,
			URLs:         dep.URLs,
			Remote:       dep.Remote,
			StripPrefix:  dep.StripPrefix,
			DeclaredLine: dep.DeclaredAt.Line,
		}
		if v, ok := verifyByName[dep.Name]; ok {
			doc.Verify = string(v.Status)
			doc.VerifyDetail = v.Detail
		}
		if depGraph != nil {
			usedBy := slices.Clone(depGraph.Children(dep.Name))
			sort.Strings(usedBy)
			doc.UsedBy = usedBy
		}
		catalog.Dependencies = append(catalog.Dependencies, doc)
	}

	issuesByPage := make(map[string]int)
	if docsRes != nil {
		for _, issue := range docsRes.Issues {
			issuesByPage[issue.Page]++
		}
	}
	for _, page := range g.eng.Pages() {
		catalog.Pages = append(catalog.Pages, &PageDoc{
			Path:       page.Path,
			Title:      page.Title,
			Module:     page.Module,
			Entries:    len(page.Entries),
			Unresolved: issuesByPage[page.Path],
			Orphan:     page.Orphan,
		})
	}

	if coverage != nil {
		for _, mc := range coverage.Modules {
			catalog.Coverage = append(catalog.Coverage, &CoverageDoc{
				Module:     mc.Module,
				Public:     mc.Public,
				Documented: mc.Documented,
				Percent:    mc.Percent(),
				Missing:    mc.Missing,
				Extra:      mc.Extra,
			})
		}
	}

	for _, d := range lintRes.Diagnostics {
		catalog.Findings = append(catalog.Findings, &FindingDoc{
			RuleID:   d.RuleID,
			Severity: d.Severity.String(),
			Target:   d.Target,
			Message:  d.Message,
			File:     d.Pos.File,
			Line:     d.Pos.Line,
		})
	}

	catalog.Graph = buildGraphDoc(depGraph)
	catalog.Summary = g.buildSummary(catalog, verify, docsRes, coverage, lintRes)

	return catalog, nil
}

// buildGraphDoc flattens the dependency graph into node and edge lists
// ordered for stable JSON output.
func buildGraphDoc(g *graph.Graph) GraphDoc {
	doc := GraphDoc{Nodes: []string{}, Edges: []GraphEdge{}}
	if g == nil {
		return doc
	}
	for _, node := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, node.ID)
		children := slices.Clone(g.Children(node.ID))
		sort.Strings(children)
		for _, child := range children {
			doc.Edges = append(doc.Edges, GraphEdge{Source: node.ID, Target: child})
		}
	}
	return doc
}

func (g *Generator) buildSummary(catalog *Catalog, verify *engine.VerifyResult, docsRes *engine.DocsCheckResult, coverage *engine.CoverageResult, lintRes *engine.LintResult) Summary {
	s := Summary{
		Dependencies:     len(catalog.Dependencies),
		MacroInvocations: len(g.eng.Workspace().Invocations),
		VerifyFailed:     len(verify.Failed()),
		Pages:            len(catalog.Pages),
		Modules:          len(g.eng.Modules()),
		SourcesScanned:   g.eng.Resolver() != nil,
	}
	for _, dep := range catalog.Dependencies {
		if dep.Pinned {
			s.Pinned++
		}
	}
	for _, page := range catalog.Pages {
		s.Entries += page.Entries
	}
	for _, m := range g.eng.Modules() {
		for _, sym := range m.Symbols {
			if sym.Public {
				s.PublicSymbols++
			}
		}
	}
	if docsRes != nil {
		s.Unresolved = len(docsRes.Issues)
	}
	if coverage != nil {
		s.CoveragePercent = coverage.Percent()
	}
	s.Errors, s.Warnings, s.Infos = lintRes.Counts()
	return s
}
