// Package registry provides symbol registration and lookup across a
// scanned Python surface. It maps the names referenced by autosummary
// entries to the modules and symbols that define them, including names
// that only exist because of star imports.
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/starpoint-labs/starpin/pkg/core"
)

// SymbolRegistry indexes modules by dotted path and answers the name
// lookups documentation checks need.
type SymbolRegistry struct {
	mu sync.RWMutex

	// byPath maps dotted module paths to their modules: "jax.numpy" → *Module
	byPath map[string]*core.Module

	// surfaces holds the effective surface of each module after star
	// imports are expanded: "jax.numpy" → {"tanh": *Symbol, ...}
	surfaces map[string]map[string]*core.Symbol
}

// New creates an empty registry.
func New() *SymbolRegistry {
	return &SymbolRegistry{
		byPath:   make(map[string]*core.Module),
		surfaces: make(map[string]map[string]*core.Symbol),
	}
}

// Build constructs a registry from scanned modules and expands star
// imports so that every module's effective surface is directly
// queryable.
func Build(modules []*core.Module) *SymbolRegistry {
	r := New()
	for _, m := range modules {
		r.Register(m)
	}
	r.expand()
	return r
}

// Register adds a module to the registry. Registering a path twice
// replaces the earlier module.
func (r *SymbolRegistry) Register(m *core.Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPath[m.Path] = m
	delete(r.surfaces, m.Path)
}

// Module returns the module registered under a dotted path.
func (r *SymbolRegistry) Module(path string) (*core.Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byPath[path]
	return m, ok
}

// ModulePaths returns all registered module paths, sorted.
func (r *SymbolRegistry) ModulePaths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.byPath))
	for p := range r.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Count returns the number of registered modules.
func (r *SymbolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPath)
}

// Surface returns the effective symbols of a module, star imports
// included, sorted by name.
func (r *SymbolRegistry) Surface(path string) []*core.Symbol {
	r.mu.RLock()
	defer r.mu.RUnlock()
	surface, ok := r.surfaces[path]
	if !ok {
		return nil
	}
	syms := make([]*core.Symbol, 0, len(surface))
	for _, s := range surface {
		syms = append(syms, s)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i].Name < syms[j].Name })
	return syms
}

// Resolve looks up a possibly-dotted name the way autosummary does:
// relative to the current module first, then as an absolute path.
func (r *SymbolRegistry) Resolve(currentModule, name string) (*core.Symbol, bool) {
	if currentModule != "" {
		if sym, ok := r.ResolveQualified(currentModule + "." + name); ok {
			return sym, true
		}
	}
	return r.ResolveQualified(name)
}

// ResolveQualified resolves a fully dotted path. The longest registered
// module prefix anchors the lookup; the remainder is an attribute chain
// whose first component must exist on that module's surface. A chain
// that continues past a resolved symbol (a class attribute, say) is
// accepted on the strength of the symbol itself.
func (r *SymbolRegistry) ResolveQualified(dotted string) (*core.Symbol, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// The path may name a module outright.
	if _, ok := r.byPath[dotted]; ok {
		return moduleSymbol(dotted), true
	}

	prefix := dotted
	for {
		dot := strings.LastIndex(prefix, ".")
		if dot < 0 {
			return nil, false
		}
		prefix = prefix[:dot]
		if _, ok := r.byPath[prefix]; !ok {
			continue
		}
		rest := strings.SplitN(dotted[len(prefix)+1:], ".", 2)
		if sym, ok := r.surfaces[prefix][rest[0]]; ok {
			return sym, true
		}
		return nil, false
	}
}

// Suggest returns up to three registered names within distance two of
// the failed lookup, closest first. Candidates come from the module's
// surface plus the last components of its submodules.
func (r *SymbolRegistry) Suggest(module, name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type candidate struct {
		name string
		dist int
	}
	seen := make(map[string]struct{})
	var candidates []candidate
	consider := func(c string) {
		if _, dup := seen[c]; dup {
			return
		}
		seen[c] = struct{}{}
		if d := editDistance(name, c); d <= 2 {
			candidates = append(candidates, candidate{c, d})
		}
	}

	for n := range r.surfaces[module] {
		consider(n)
	}
	childPrefix := module + "."
	for p := range r.byPath {
		if rest, ok := strings.CutPrefix(p, childPrefix); ok && !strings.Contains(rest, ".") {
			consider(rest)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].name < candidates[j].name
	})
	if len(candidates) > 3 {
		candidates = candidates[:3]
	}
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.name
	}
	return names
}

// expand computes every module's effective surface. Own bindings win
// over star-imported ones; star imports bring in the origin module's
// exports, honoring its __all__ when present. Expansion runs in sorted
// path order so cyclic star imports settle deterministically.
func (r *SymbolRegistry) expand() {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0, len(r.byPath))
	for p := range r.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	visiting := make(map[string]bool)
	for _, path := range paths {
		r.surfaceOf(path, visiting)
	}
}

// surfaceOf memoizes the expanded surface of one module. A cycle among
// star imports terminates with whatever has been bound so far.
func (r *SymbolRegistry) surfaceOf(path string, visiting map[string]bool) map[string]*core.Symbol {
	if surface, ok := r.surfaces[path]; ok {
		return surface
	}
	mod, ok := r.byPath[path]
	if !ok || visiting[path] {
		return nil
	}
	visiting[path] = true
	defer delete(visiting, path)

	surface := make(map[string]*core.Symbol, len(mod.Symbols))
	for _, s := range mod.Symbols {
		surface[s.Name] = s
	}
	for _, origin := range mod.StarImports {
		originMod, ok := r.byPath[origin]
		if !ok {
			continue
		}
		originSurface := r.surfaceOf(origin, visiting)
		for _, name := range starExports(originMod, originSurface) {
			if _, bound := surface[name]; bound {
				continue
			}
			if sym, ok := originSurface[name]; ok {
				surface[name] = sym
			}
		}
	}
	r.surfaces[path] = surface
	return surface
}

// starExports lists the names a star import of the module binds: its
// __all__ when declared, otherwise every non-underscore name on the
// expanded surface.
func starExports(mod *core.Module, surface map[string]*core.Symbol) []string {
	if mod.HasAll {
		return mod.All
	}
	var names []string
	for name := range surface {
		if !strings.HasPrefix(name, "_") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// moduleSymbol wraps a module path as a symbol so module entries in
// autosummary blocks resolve uniformly.
func moduleSymbol(path string) *core.Symbol {
	name := path
	parent := ""
	if dot := strings.LastIndex(path, "."); dot >= 0 {
		name = path[dot+1:]
		parent = path[:dot]
	}
	return &core.Symbol{
		Name:   name,
		Kind:   core.SymbolModule,
		Module: parent,
		Origin: path,
		Public: !strings.HasPrefix(name, "_"),
	}
}

// editDistance is the Levenshtein distance between two short names.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
