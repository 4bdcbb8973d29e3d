package workspace

import (
	"github.com/starpoint-labs/starpin/pkg/core"
)

// Context provides all data needed for workspace-level analysis.
// It implements lint.WorkspaceContext to bridge the parsed workspace
// and the lint package's requirements.
type Context struct {
	ws        *core.Workspace
	effective []*core.Dependency
	usedRepos map[string]bool
}

// NewContext creates a workspace context for analysis. The effective
// dependency set and the referenced-repository index are computed once
// so rules can query them cheaply.
func NewContext(ws *core.Workspace) *Context {
	ctx := &Context{
		ws:        ws,
		usedRepos: make(map[string]bool),
	}
	if ws == nil {
		return ctx
	}
	ctx.effective = ws.Effective()

	for _, l := range ws.Loads {
		if repo := l.Repo(); repo != "" {
			ctx.usedRepos[repo] = true
		}
	}
	for _, inv := range ws.Invocations {
		if repo := core.RepoOfLabel(inv.From); repo != "" {
			ctx.usedRepos[repo] = true
		}
	}
	for _, d := range ws.Dependencies {
		if repo := core.RepoOfLabel(d.BuildFile); repo != "" {
			ctx.usedRepos[repo] = true
		}
		for _, patch := range d.Patches {
			if repo := core.RepoOfLabel(patch); repo != "" {
				ctx.usedRepos[repo] = true
			}
		}
	}
	return ctx
}

// Workspace implements lint.WorkspaceContext.
func (c *Context) Workspace() *core.Workspace {
	return c.ws
}

// Declarations implements lint.WorkspaceContext.
func (c *Context) Declarations() []*core.Dependency {
	if c.ws == nil {
		return nil
	}
	return c.ws.Dependencies
}

// Dependencies implements lint.WorkspaceContext.
func (c *Context) Dependencies() []*core.Dependency {
	return c.effective
}

// RepoUsed implements lint.WorkspaceContext.
func (c *Context) RepoUsed(name string) bool {
	return c.usedRepos[name]
}
