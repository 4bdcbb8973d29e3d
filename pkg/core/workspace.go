package core

import "strings"

// DependencyKind identifies the repository rule that declared a dependency.
type DependencyKind string

// Dependency kind constants.
const (
	DepHTTPArchive   DependencyKind = "http_archive"
	DepGitRepository DependencyKind = "git_repository"
)

// Dependency represents one external archive pinned by a workspace file.
// This contains the declaration as written; resolved facts (actual digest,
// size, fetch time) belong in Artifact and the lockfile.
type Dependency struct {
	// Name is the workspace-unique repository name (e.g. "org_tensorflow")
	Name string
	// Kind is the declaring rule (http_archive, git_repository)
	Kind DependencyKind
	// SHA256 is the declared content hash of the archive, if pinned
	SHA256 string
	// URLs lists download locations in preference order (mirrors first)
	URLs []string
	// StripPrefix is the directory prefix stripped on extraction
	StripPrefix string
	// Remote is the clone URL for git_repository declarations
	Remote string
	// Commit pins a git_repository to an exact revision
	Commit string
	// Tag pins a git_repository to a tag (weaker than Commit)
	Tag string
	// BuildFile overrides the build file for archives that ship none
	BuildFile string
	// Patches lists patch labels applied after extraction
	Patches []string
	// DeclaredAt is where the declaration appears in the workspace file
	DeclaredAt Position
}

// Pinned reports whether the declaration fixes exact content: a sha256
// for archives, a commit for git repositories.
func (d *Dependency) Pinned() bool {
	if d.Kind == DepGitRepository {
		return d.Commit != ""
	}
	return d.SHA256 != ""
}

// Source returns the primary download location for display purposes.
func (d *Dependency) Source() string {
	if len(d.URLs) > 0 {
		return d.URLs[0]
	}
	return d.Remote
}

// LoadStmt represents a load() of symbols from a label, e.g.
// load("@org_tensorflow//tensorflow:workspace.bzl", "tf_workspace").
type LoadStmt struct {
	Label   string
	Symbols []string
	Pos     Position
}

// Repo returns the external repository the load label references,
// or "" for labels local to the workspace.
func (l *LoadStmt) Repo() string {
	return RepoOfLabel(l.Label)
}

// Invocation represents a macro call wired into the workspace, e.g.
// tf_workspace(). The macro body is never executed; starpin records the
// wiring so the providing repository becomes a graph prerequisite.
type Invocation struct {
	// Macro is the function name as written
	Macro string
	// From is the load label that provided the macro, if any
	From string
	// Args holds literal keyword arguments rendered as strings
	Args map[string]string
	Pos  Position
}

// Workspace is a parsed workspace file: every declaration in source order.
type Workspace struct {
	// Name is the workspace(name = ...) value
	Name string
	// Path is the workspace file path
	Path string
	// Dependencies in declaration order; duplicates are preserved
	Dependencies []*Dependency
	// Loads in declaration order
	Loads []*LoadStmt
	// Invocations of loaded macros in declaration order
	Invocations []*Invocation
}

// Dependency returns the effective declaration for name. When a name is
// declared more than once the last declaration wins, matching how the
// build tool resolves duplicates.
func (w *Workspace) Dependency(name string) *Dependency {
	for i := len(w.Dependencies) - 1; i >= 0; i-- {
		if w.Dependencies[i].Name == name {
			return w.Dependencies[i]
		}
	}
	return nil
}

// Effective returns the effective dependency set in first-declaration
// order, with duplicate names collapsed to their last declaration.
func (w *Workspace) Effective() []*Dependency {
	seen := make(map[string]int, len(w.Dependencies))
	var order []string
	for _, d := range w.Dependencies {
		if _, ok := seen[d.Name]; !ok {
			order = append(order, d.Name)
		}
		seen[d.Name] = 1
	}
	deps := make([]*Dependency, 0, len(order))
	for _, name := range order {
		deps = append(deps, w.Dependency(name))
	}
	return deps
}

// RepoOfLabel extracts the external repository name from a label.
// "@org_tensorflow//tensorflow:workspace.bzl" yields "org_tensorflow";
// labels without an @repo prefix yield "".
func RepoOfLabel(label string) string {
	if !strings.HasPrefix(label, "@") {
		return ""
	}
	rest := label[1:]
	if i := strings.Index(rest, "//"); i >= 0 {
		return rest[:i]
	}
	return rest
}
