package docs

import (
	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/starpoint-labs/starpin/pkg/lint"
)

// maxAliasDepth bounds alias chain traversal when recording documented
// symbols, in case a source tree aliases in a cycle.
const maxAliasDepth = 8

// Context provides all data needed for docs-level analysis.
// It implements lint.DocsContext to bridge parsed stub pages, the
// scanned source surface, and the lint package's requirements.
type Context struct {
	pages      []*core.Page
	resolver   lint.Resolver
	documented map[string]bool // canonical "module.name" identities listed on any page
}

// NewContext creates a docs context for analysis. The resolver may be
// nil when no source tree is available; resolution rules then skip.
//
// Every page entry is resolved once up front so coverage checks can ask
// whether a symbol is documented under any of its names: an entry that
// reaches a symbol through an alias marks the alias target documented
// as well.
func NewContext(pages []*core.Page, resolver lint.Resolver) *Context {
	ctx := &Context{
		pages:      pages,
		resolver:   resolver,
		documented: make(map[string]bool),
	}
	for _, page := range pages {
		for _, entry := range page.Entries {
			ctx.recordEntry(entry)
		}
	}
	return ctx
}

// Pages implements lint.DocsContext.
func (c *Context) Pages() []*core.Page {
	return c.pages
}

// Resolver implements lint.DocsContext.
func (c *Context) Resolver() lint.Resolver {
	return c.resolver
}

// Documented implements lint.DocsContext.
func (c *Context) Documented(module, name string) bool {
	return c.documented[module+"."+name]
}

func (c *Context) recordEntry(entry *core.Entry) {
	if entry.Module != "" {
		c.documented[entry.Module+"."+entry.Name] = true
	}
	if c.resolver == nil {
		return
	}

	sym, ok := c.resolver.Resolve(entry.Module, entry.Name)
	for depth := 0; ok && depth < maxAliasDepth; depth++ {
		if sym.Module != "" {
			c.documented[sym.Module+"."+sym.Name] = true
		}
		if sym.Kind != core.SymbolAlias || sym.Origin == "" {
			return
		}
		sym, ok = c.resolver.Resolve(sym.Module, sym.Origin)
	}
}
