package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starpoint-labs/starpin/internal/registry"
	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/starpoint-labs/starpin/pkg/lint"
	"github.com/starpoint-labs/starpin/pkg/lint/docs"

	_ "github.com/starpoint-labs/starpin/pkg/lint/docs/rules" // register rules
)

// the symbol registry must satisfy the lint resolver contract
var _ lint.Resolver = (*registry.SymbolRegistry)(nil)

func sym(module, name string, kind core.SymbolKind, line int) *core.Symbol {
	return &core.Symbol{
		Name:   name,
		Kind:   kind,
		Module: module,
		Public: name[0] != '_',
		Pos:    core.Position{File: "jax/" + module + ".py", Line: line},
	}
}

func alias(module, name, origin string, line int) *core.Symbol {
	s := sym(module, name, core.SymbolAlias, line)
	s.Origin = origin
	return s
}

func buildResolver() *registry.SymbolRegistry {
	return registry.Build([]*core.Module{
		{
			Path: "jax",
			Symbols: []*core.Symbol{
				alias("jax", "grad", "jax.api.grad", 2),
				sym("jax", "numpy", core.SymbolModule, 3),
			},
		},
		{
			Path: "jax.api",
			Symbols: []*core.Symbol{
				sym("jax.api", "grad", core.SymbolFunction, 10),
				sym("jax.api", "jit", core.SymbolFunction, 40),
			},
		},
		{
			Path:        "jax.numpy",
			StarImports: []string{"jax.numpy.lax_numpy"},
		},
		{
			Path: "jax.numpy.lax_numpy",
			Symbols: []*core.Symbol{
				sym("jax.numpy.lax_numpy", "tanh", core.SymbolFunction, 6),
				sym("jax.numpy.lax_numpy", "absolute", core.SymbolFunction, 10),
				alias("jax.numpy.lax_numpy", "abs", "absolute", 13),
				sym("jax.numpy.lax_numpy", "ndarray", core.SymbolClass, 20),
				sym("jax.numpy.lax_numpy", "pi", core.SymbolConstant, 4),
				sym("jax.numpy.lax_numpy", "_promote", core.SymbolFunction, 30),
			},
		},
	})
}

func entry(module, name string, line int) *core.Entry {
	return &core.Entry{
		Name:   name,
		Module: module,
		Pos:    core.Position{File: module + ".rst", Line: line},
	}
}

// runRule analyzes the pages and returns only diagnostics for ruleID.
func runRule(t *testing.T, pages []*core.Page, resolver lint.Resolver, ruleID string, cfg *lint.Config) []lint.Diagnostic {
	t.Helper()
	var out []lint.Diagnostic
	for _, d := range docs.NewAnalyzer(cfg).Analyze(pages, resolver) {
		if d.RuleID == ruleID {
			out = append(out, d)
		}
	}
	return out
}

func TestD001_MissingSymbol(t *testing.T) {
	resolver := buildResolver()

	tests := []struct {
		name    string
		entry   *core.Entry
		count   int
		message string
	}{
		{
			name:  "resolvable entry",
			entry: entry("jax.numpy", "tanh", 10),
			count: 0,
		},
		{
			name:  "star-imported entry",
			entry: entry("jax.numpy", "absolute", 11),
			count: 0,
		},
		{
			name:  "dotted entry through parent module",
			entry: entry("jax", "numpy.tanh", 12),
			count: 0,
		},
		{
			name:    "typo suggests the close name",
			entry:   entry("jax.numpy", "tahn", 13),
			count:   1,
			message: "did you mean tanh?",
		},
		{
			name:    "missing symbol without neighbors",
			entry:   entry("jax.numpy", "convolve", 14),
			count:   1,
			message: "convolve is not importable from jax.numpy",
		},
		{
			name:  "unknown module left to D004",
			entry: entry("jax.scipy", "solve", 15),
			count: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := []*core.Page{{Path: "api", FilePath: "api.rst", Entries: []*core.Entry{tt.entry}}}
			diags := runRule(t, pages, resolver, "D001", nil)
			require.Len(t, diags, tt.count)
			if tt.message != "" {
				assert.Contains(t, diags[0].Message, tt.message)
				assert.Equal(t, core.SeverityError, diags[0].Severity)
				assert.Equal(t, tt.entry.Pos, diags[0].Pos)
			}
		})
	}
}

func TestD001_NilResolver(t *testing.T) {
	pages := []*core.Page{{Path: "api", Entries: []*core.Entry{entry("jax", "nonsense", 1)}}}
	assert.Empty(t, runRule(t, pages, nil, "D001", nil))
}

func TestD002_UndocumentedPublic(t *testing.T) {
	resolver := buildResolver()
	pages := []*core.Page{
		{
			Path:   "index",
			Module: "jax",
			// grad documented through its jax alias marks jax.api.grad covered
			Entries: []*core.Entry{entry("jax", "grad", 5)},
		},
		{
			Path:   "jax.numpy",
			Module: "jax.numpy",
			Entries: []*core.Entry{
				entry("jax.numpy", "tanh", 10),
				entry("jax.numpy", "abs", 11),
				entry("jax.numpy", "ndarray", 12),
				entry("jax.numpy", "pi", 13),
			},
		},
	}

	diags := runRule(t, pages, resolver, "D002", nil)

	targets := make([]string, 0, len(diags))
	for _, d := range diags {
		targets = append(targets, d.Target)
	}
	// jit was never listed; absolute is only reached through the abs
	// alias, which documents both the alias and its target
	assert.ElementsMatch(t, []string{"jax.api.jit"}, targets)
	require.Len(t, diags, 1)
	assert.Equal(t, core.SeverityWarning, diags[0].Severity)
	assert.Contains(t, diags[0].Message, "jax.api.jit")
}

func TestD002_IgnoreModules(t *testing.T) {
	resolver := buildResolver()
	cfg := lint.NewConfig().SetRuleOptions("D002", map[string]any{
		"ignore_modules": []string{"jax.api"},
	})

	pages := []*core.Page{
		{
			Path:   "jax.numpy",
			Module: "jax.numpy",
			Entries: []*core.Entry{
				entry("jax.numpy", "tanh", 10),
				entry("jax.numpy", "abs", 11),
				entry("jax.numpy", "ndarray", 12),
				entry("jax.numpy", "pi", 13),
			},
		},
	}

	assert.Empty(t, runRule(t, pages, resolver, "D002", cfg))
}

func TestD003_DuplicateEntry(t *testing.T) {
	first := entry("jax.numpy", "tanh", 10)
	dup := entry("jax.numpy", "tanh", 14)
	pages := []*core.Page{
		{Path: "jax.numpy", Entries: []*core.Entry{first, entry("jax.numpy", "absolute", 11), dup}},
		// the same symbol on another page is fine
		{Path: "quick-reference", Entries: []*core.Entry{entry("jax.numpy", "tanh", 3)}},
	}

	diags := runRule(t, pages, nil, "D003", nil)
	require.Len(t, diags, 1)
	assert.Equal(t, dup.Pos, diags[0].Pos)
	require.Len(t, diags[0].RelatedInfo, 1)
	assert.Equal(t, first.Pos, diags[0].RelatedInfo[0].Pos)
}

func TestD004_UnknownModule(t *testing.T) {
	resolver := buildResolver()

	t.Run("unknown page module", func(t *testing.T) {
		pages := []*core.Page{{
			Path:      "jax.scipy",
			FilePath:  "jax.scipy.rst",
			Module:    "jax.scipy",
			ModulePos: core.Position{File: "jax.scipy.rst", Line: 4},
			Entries: []*core.Entry{
				entry("jax.scipy", "solve", 10),
				entry("jax.scipy", "inv", 11),
			},
		}}

		diags := runRule(t, pages, resolver, "D004", nil)
		require.Len(t, diags, 1)
		assert.Equal(t, "jax.scipy", diags[0].Target)
		assert.Equal(t, 4, diags[0].Pos.Line)
	})

	t.Run("known module not flagged", func(t *testing.T) {
		pages := []*core.Page{{Path: "jax.numpy", Module: "jax.numpy"}}
		assert.Empty(t, runRule(t, pages, resolver, "D004", nil))
	})

	t.Run("namespace prefix counts as known", func(t *testing.T) {
		nsResolver := registry.Build([]*core.Module{{Path: "ns.sub"}})
		pages := []*core.Page{{Path: "ns", Module: "ns"}}
		assert.Empty(t, runRule(t, pages, nsResolver, "D004", nil))
	})
}

func TestD005_OrphanPage(t *testing.T) {
	pages := []*core.Page{
		{
			Path:     "index",
			FilePath: "index.rst",
			TocTrees: []*core.TocTree{{Refs: []string{"jax.numpy", "notebooks/quickstart"}}},
		},
		{
			Path:      "jax.numpy",
			FilePath:  "jax.numpy.rst",
			Summaries: []*core.SummaryBlock{{Toctree: "_autosummary", Entries: 2}},
		},
		{Path: "notebooks/quickstart", FilePath: "notebooks/quickstart.rst"},
		// generated stub under the autosummary target directory
		{Path: "_autosummary/jax.numpy.tanh", FilePath: "_autosummary/jax.numpy.tanh.rst"},
		{Path: "notes", FilePath: "notes.rst"},
		{Path: "internals", FilePath: "internals.rst", Orphan: true},
	}

	diags := runRule(t, pages, nil, "D005", nil)
	require.Len(t, diags, 1)
	assert.Equal(t, "notes", diags[0].Target)
	assert.Equal(t, "notes.rst", diags[0].Pos.File)
}

func TestD005_CustomRoot(t *testing.T) {
	pages := []*core.Page{
		{Path: "contents", FilePath: "contents.rst", TocTrees: []*core.TocTree{{Refs: []string{"api"}}}},
		{Path: "api", FilePath: "api.rst"},
	}
	cfg := lint.NewConfig().SetRuleOptions("D005", map[string]any{"root": "contents"})

	assert.Empty(t, runRule(t, pages, nil, "D005", cfg))
}

func TestD005_MissingRoot(t *testing.T) {
	pages := []*core.Page{{Path: "alone", FilePath: "alone.rst"}}
	assert.Empty(t, runRule(t, pages, nil, "D005", nil))
}

func TestD006_EmptySummary(t *testing.T) {
	pages := []*core.Page{
		{
			Path:     "jax.numpy",
			FilePath: "jax.numpy.rst",
			Summaries: []*core.SummaryBlock{
				{Toctree: "_autosummary", Entries: 3, Pos: core.Position{File: "jax.numpy.rst", Line: 12}},
				{Toctree: "_autosummary", Entries: 0, Pos: core.Position{File: "jax.numpy.rst", Line: 40}},
			},
		},
	}

	diags := runRule(t, pages, nil, "D006", nil)
	require.Len(t, diags, 1)
	assert.Equal(t, 40, diags[0].Pos.Line)
	assert.Equal(t, "jax.numpy", diags[0].Target)
}

func TestDocsAnalyzerConfig(t *testing.T) {
	pages := []*core.Page{{
		Path:      "jax.numpy",
		FilePath:  "jax.numpy.rst",
		Summaries: []*core.SummaryBlock{{Entries: 0}},
	}}

	t.Run("disabled rule is skipped", func(t *testing.T) {
		cfg := lint.NewConfig().Disable("D006")
		assert.Empty(t, runRule(t, pages, nil, "D006", cfg))
	})

	t.Run("severity override applied", func(t *testing.T) {
		cfg := lint.NewConfig().SetSeverity("D006", core.SeverityInfo)
		diags := runRule(t, pages, nil, "D006", cfg)
		require.Len(t, diags, 1)
		assert.Equal(t, core.SeverityInfo, diags[0].Severity)
	})
}
