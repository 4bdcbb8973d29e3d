package core

// Page represents one parsed documentation stub file.
type Page struct {
	// Path is the page path relative to the docs directory, without extension
	// (e.g. "jax.numpy"). Toctree references use this form.
	Path string
	// FilePath is the path to the .rst file on disk
	FilePath string
	// Title is the first section heading, or the frontmatter title
	Title string
	// Module is the module the page documents: the frontmatter override
	// when present, otherwise the first automodule/currentmodule directive
	Module string
	// ModulePos is where that directive appears; zero for frontmatter overrides
	ModulePos Position
	// Orphan marks pages intentionally outside any toctree
	Orphan bool
	// Sections in source order
	Sections []*Section
	// TocTrees in source order
	TocTrees []*TocTree
	// Entries lists every autosummary identifier on the page
	Entries []*Entry
	// Summaries records each autosummary directive, including empty ones
	Summaries []*SummaryBlock
	// AutodocOptions holds options of automodule directives (:members:, ...)
	AutodocOptions []string
	// HasFrontmatter indicates YAML frontmatter was found
	HasFrontmatter bool
}

// SummaryBlock records one autosummary directive: where it sits, the
// :toctree: target it generates stubs into, and how many entries it
// lists.
type SummaryBlock struct {
	Toctree string
	Entries int
	Pos     Position
}

// Section is a heading within a stub page.
type Section struct {
	Title string
	Pos   Position
}

// Entry is one identifier listed under an autosummary directive.
type Entry struct {
	// Name is the identifier as written; it may be dotted
	Name string
	// Module is the module in scope where the entry appears
	Module string
	// Section is the nearest heading above the entry, if any
	Section string
	// Toctree is the :toctree: target of the enclosing autosummary, if any
	Toctree string
	Pos     Position
}

// TocTree is a toctree directive: an ordered list of page references.
type TocTree struct {
	Caption  string
	MaxDepth int
	// Refs are page paths relative to the docs directory
	Refs []string
	Pos  Position
}

// SymbolKind classifies a scanned source symbol.
type SymbolKind string

// Symbol kind constants.
const (
	SymbolFunction SymbolKind = "function"
	SymbolClass    SymbolKind = "class"
	SymbolConstant SymbolKind = "constant"
	SymbolModule   SymbolKind = "module"
	SymbolAlias    SymbolKind = "alias"
)

// Symbol is one importable attribute of a module.
type Symbol struct {
	// Name is the attribute name within the owning module
	Name string
	Kind SymbolKind
	// Module is the owning module's dotted path
	Module string
	// Origin is the dotted source for aliases (from X import Y as Z)
	Origin string
	// Public is false for names with a leading underscore
	Public bool
	Pos    Position
}

// Module is the scanned surface of one importable module.
type Module struct {
	// Path is the dotted module path (e.g. "jax.lax")
	Path string
	// File is the defining source file (__init__.py for packages)
	File string
	// Symbols in declaration order
	Symbols []*Symbol
	// StarImports lists modules star-imported by this one; their exports
	// become part of this module's surface at resolution time
	StarImports []string
	// All holds the __all__ export list when the module declares one
	All []string
	// HasAll distinguishes an empty __all__ from an absent one
	HasAll bool
}

// Lookup returns the symbol with the given name, or nil.
func (m *Module) Lookup(name string) *Symbol {
	for _, s := range m.Symbols {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// InAll reports whether name appears in the module's __all__ list.
func (m *Module) InAll(name string) bool {
	for _, n := range m.All {
		if n == name {
			return true
		}
	}
	return false
}

// Exports returns the module's public surface: the __all__ list when
// declared, otherwise every symbol without a leading underscore.
func (m *Module) Exports() []*Symbol {
	var out []*Symbol
	if m.HasAll {
		for _, name := range m.All {
			if s := m.Lookup(name); s != nil {
				out = append(out, s)
			}
		}
		return out
	}
	for _, s := range m.Symbols {
		if s.Public {
			out = append(out, s)
		}
	}
	return out
}
