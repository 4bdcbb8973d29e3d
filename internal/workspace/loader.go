// Package workspace loads workspace files: Starlark declarations that pin
// external archives by name, content hash, and download locations.
//
// Loading runs the file under a Starlark interpreter whose predeclared
// builtins record declarations instead of fetching anything. A static
// pre-scan (static.go) discovers load statements and unknown top-level
// calls first, so macros wired from other repositories are recorded as
// invocations rather than executed.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"go.starlark.net/starlark"

	"github.com/starpoint-labs/starpin/pkg/core"
)

// Load reads and evaluates a workspace file.
func Load(path string) (*core.Workspace, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from project configuration
	if err != nil {
		return nil, &LoadError{
			File:    path,
			Message: fmt.Sprintf("failed to read file: %v", err),
		}
	}
	return LoadBytes(path, content)
}

// LoadBytes evaluates workspace file content already in memory.
func LoadBytes(path string, content []byte) (*core.Workspace, error) {
	static, err := ParseFile(path, content)
	if err != nil {
		return nil, err
	}

	ws := &core.Workspace{Path: path}
	rec := &recorder{ws: ws}

	predeclared := starlark.StringDict{
		"workspace":      starlark.NewBuiltin("workspace", rec.workspaceFn),
		"http_archive":   starlark.NewBuiltin("http_archive", rec.httpArchiveFn),
		"git_repository": starlark.NewBuiltin("git_repository", rec.gitRepositoryFn),
	}

	// Any other top-level call (native workspace rules, toolchain
	// registrations) is recorded as an invocation, not executed.
	loaded := make(map[string]bool)
	for _, l := range static.Loads {
		for _, sym := range l.Symbols {
			loaded[sym] = true
		}
	}
	for _, call := range static.Calls {
		if _, ok := predeclared[call.Fn]; ok {
			continue
		}
		if loaded[call.Fn] || !isIdent(call.Fn) {
			continue
		}
		predeclared[call.Fn] = rec.macroBuiltin(call.Fn, "")
	}

	// The load hook hands out recording builtins for exactly the symbols
	// the static pre-scan saw requested from each label.
	loadSymbols := make(map[string][]string, len(static.Loads))
	for _, l := range static.Loads {
		loadSymbols[l.Label] = append(loadSymbols[l.Label], l.Symbols...)
	}

	thread := &starlark.Thread{
		Name: "workspace",
		Print: func(_ *starlark.Thread, _ string) {
			// Ignore prints during workspace loading
		},
		Load: func(_ *starlark.Thread, module string) (starlark.StringDict, error) {
			dict := make(starlark.StringDict)
			for _, sym := range loadSymbols[module] {
				dict[sym] = rec.macroBuiltin(sym, module)
			}
			return dict, nil
		},
	}

	_, err = starlark.ExecFile(thread, path, content, predeclared) //nolint:staticcheck // SA1019: will migrate to ExecFileOptions later
	if err != nil {
		return nil, &LoadError{
			File:    path,
			Message: fmt.Sprintf("Starlark execution error: %v", err),
		}
	}

	ws.Loads = static.Loads
	return ws, nil
}

// recorder accumulates declarations into a workspace as builtins are called.
type recorder struct {
	ws *core.Workspace
}

func (r *recorder) workspaceFn(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	for _, kv := range kwargs {
		if key, ok := kv[0].(starlark.String); ok && string(key) == "name" {
			r.ws.Name = stringValue(kv[1])
		}
	}
	if r.ws.Name == "" {
		pos := callPos(thread)
		return nil, fmt.Errorf("workspace at %s:%d: missing name attribute", pos.File, pos.Line)
	}
	return starlark.None, nil
}

func (r *recorder) httpArchiveFn(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	dep := &core.Dependency{
		Kind:       core.DepHTTPArchive,
		DeclaredAt: callPos(thread),
	}

	for _, kv := range kwargs {
		key, ok := kv[0].(starlark.String)
		if !ok {
			continue
		}
		switch string(key) {
		case "name":
			dep.Name = stringValue(kv[1])
		case "sha256":
			dep.SHA256 = stringValue(kv[1])
		case "urls":
			dep.URLs = stringList(kv[1])
		case "url":
			if s := stringValue(kv[1]); s != "" {
				dep.URLs = append(dep.URLs, s)
			}
		case "strip_prefix":
			dep.StripPrefix = stringValue(kv[1])
		case "build_file":
			dep.BuildFile = stringValue(kv[1])
		case "patches":
			dep.Patches = stringList(kv[1])
		default:
			// Unknown attributes (type, canonical_id, ...) are tolerated
		}
	}

	if dep.Name == "" {
		return nil, fmt.Errorf("http_archive at %s:%d: missing name attribute", dep.DeclaredAt.File, dep.DeclaredAt.Line)
	}

	r.ws.Dependencies = append(r.ws.Dependencies, dep)
	return starlark.None, nil
}

func (r *recorder) gitRepositoryFn(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	dep := &core.Dependency{
		Kind:       core.DepGitRepository,
		DeclaredAt: callPos(thread),
	}

	for _, kv := range kwargs {
		key, ok := kv[0].(starlark.String)
		if !ok {
			continue
		}
		switch string(key) {
		case "name":
			dep.Name = stringValue(kv[1])
		case "remote":
			dep.Remote = stringValue(kv[1])
		case "commit":
			dep.Commit = stringValue(kv[1])
		case "tag":
			dep.Tag = stringValue(kv[1])
		case "build_file":
			dep.BuildFile = stringValue(kv[1])
		case "patches":
			dep.Patches = stringList(kv[1])
		default:
		}
	}

	if dep.Name == "" {
		return nil, fmt.Errorf("git_repository at %s:%d: missing name attribute", dep.DeclaredAt.File, dep.DeclaredAt.Line)
	}

	r.ws.Dependencies = append(r.ws.Dependencies, dep)
	return starlark.None, nil
}

// macroBuiltin returns a builtin that records its call as an invocation.
// from is the load label that provided the symbol, or "" for native rules.
func (r *recorder) macroBuiltin(name, from string) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		r.ws.Invocations = append(r.ws.Invocations, &core.Invocation{
			Macro: name,
			From:  from,
			Args:  renderKwargs(kwargs),
			Pos:   callPos(thread),
		})
		return starlark.None, nil
	})
}

// callPos returns the workspace-file position of the call being handled.
// Frame 0 is the builtin itself, frame 1 its caller.
func callPos(thread *starlark.Thread) core.Position {
	if thread.CallStackDepth() < 2 {
		return core.Position{}
	}
	fr := thread.CallFrame(1)
	return core.Position{
		File: fr.Pos.Filename(),
		Line: int(fr.Pos.Line),
		Col:  int(fr.Pos.Col),
	}
}

// isIdent reports whether s is a plain Starlark identifier.
func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}

// LoadError represents an error loading a workspace file.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", filepath.Base(e.File), e.Message)
}
