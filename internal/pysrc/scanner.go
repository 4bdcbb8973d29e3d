// Package pysrc extracts the importable surface of a Python source tree
// without executing any Python. Modules are discovered by walking package
// directories, and each module's top-level bindings are recovered by
// scanning source lines for definition and import forms.
//
// The scan is deliberately shallow. Only column-zero statements count:
// anything indented lives inside a function, class, or conditional block
// and is not part of the module surface. That matches how autosummary
// entries are resolved, which is the only consumer of this data.
package pysrc

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/starpoint-labs/starpin/pkg/core"
)

var (
	// defPattern matches top-level function definitions, async or not.
	defPattern = regexp.MustCompile(`^(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\(`)

	// classPattern matches top-level class definitions with or without bases.
	classPattern = regexp.MustCompile(`^class\s+([A-Za-z_]\w*)\s*[(:]`)

	// assignPattern matches a top-level binding, with an optional type
	// annotation between the name and the value.
	assignPattern = regexp.MustCompile(`^([A-Za-z_]\w*)\s*(?::\s*[^=]+?)?\s*=\s*(.+)$`)

	// fromImportPattern matches "from mod import ..." statements. The
	// imported-names tail is parsed separately so aliases and star
	// imports can be handled.
	fromImportPattern = regexp.MustCompile(`^from\s+([.\w]+)\s+import\s+(.+)$`)

	// importPattern matches "import mod" and "import mod as alias".
	importPattern = regexp.MustCompile(`^import\s+([\w.]+)(?:\s+as\s+([A-Za-z_]\w*))?\s*$`)

	// identPattern recognises a bare (possibly dotted) name used as an
	// assignment value, which makes the binding an alias rather than a
	// constant.
	identPattern = regexp.MustCompile(`^[A-Za-z_][\w.]*$`)

	// quotedNamePattern pulls string elements out of an __all__ list.
	quotedNamePattern = regexp.MustCompile(`['"]([^'"]+)['"]`)
)

// Scanner discovers Python modules under a source root and extracts
// their top-level surface.
type Scanner struct {
	// Root is the directory containing top-level packages, typically a
	// repository checkout with the package directory directly inside it.
	Root string
}

// NewScanner creates a scanner rooted at the given directory.
func NewScanner(root string) *Scanner {
	return &Scanner{Root: root}
}

// Scan walks the root for package directories and returns every module
// found, in a stable depth-first order. A directory is a package when it
// contains an __init__.py; directories without one are not descended into.
func (s *Scanner) Scan() ([]*core.Module, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to read source root: %w", err)
	}

	var modules []*core.Module
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(s.Root, entry.Name())
		if !hasInit(dir) {
			continue
		}
		pkg, err := s.walkPackage(dir, entry.Name())
		if err != nil {
			return nil, err
		}
		modules = append(modules, pkg...)
	}
	if len(modules) == 0 {
		return nil, fmt.Errorf("no Python packages found under %s", s.Root)
	}
	return modules, nil
}

// ScanPackage scans a single package directory, using the directory's
// base name as the top of the dotted path.
func (s *Scanner) ScanPackage(dir string) ([]*core.Module, error) {
	if !hasInit(dir) {
		return nil, fmt.Errorf("%s is not a Python package: no __init__.py", dir)
	}
	return s.walkPackage(dir, filepath.Base(dir))
}

// walkPackage parses the package's __init__.py, then its submodule files
// and subpackages. Child modules are also recorded as module-kind symbols
// on the parent so attribute chains like jax.numpy resolve naturally.
func (s *Scanner) walkPackage(dir, dotted string) ([]*core.Module, error) {
	initPath := filepath.Join(dir, "__init__.py")
	pkg, err := s.parseFile(initPath, dotted, true)
	if err != nil {
		return nil, err
	}
	modules := []*core.Module{pkg}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read package %s: %w", dotted, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			sub := filepath.Join(dir, name)
			if !hasInit(sub) {
				continue
			}
			child, err := s.walkPackage(sub, dotted+"."+name)
			if err != nil {
				return nil, err
			}
			modules = append(modules, child...)
			addChildSymbol(pkg, name)
			continue
		}
		if !strings.HasSuffix(name, ".py") || name == "__init__.py" {
			continue
		}
		stem := strings.TrimSuffix(name, ".py")
		mod, err := s.parseFile(filepath.Join(dir, name), dotted+"."+stem, false)
		if err != nil {
			return nil, err
		}
		modules = append(modules, mod)
		addChildSymbol(pkg, stem)
	}
	return modules, nil
}

// parseFile reads and scans one source file.
func (s *Scanner) parseFile(path, dotted string, isPackage bool) (*core.Module, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from a directory walk under the configured root
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return parseContent(path, dotted, isPackage, string(content)), nil
}

// parseContent scans source lines for top-level bindings. Lines inside
// triple-quoted strings are skipped so docstring text cannot masquerade
// as definitions.
func parseContent(path, dotted string, isPackage bool, content string) *core.Module {
	mod := &core.Module{Path: dotted, File: path}

	lines := strings.Split(content, "\n")
	inString := false
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		wasInString := inString
		if countTripleQuotes(line)%2 == 1 {
			inString = !inString
		}
		if wasInString {
			continue
		}

		if m := defPattern.FindStringSubmatch(line); m != nil {
			addSymbol(mod, &core.Symbol{
				Name: m[1],
				Kind: core.SymbolFunction,
				Pos:  core.Position{File: path, Line: i + 1},
			})
			continue
		}
		if m := classPattern.FindStringSubmatch(line); m != nil {
			addSymbol(mod, &core.Symbol{
				Name: m[1],
				Kind: core.SymbolClass,
				Pos:  core.Position{File: path, Line: i + 1},
			})
			continue
		}
		if m := fromImportPattern.FindStringSubmatch(line); m != nil {
			origin := resolveRelative(dotted, isPackage, m[1])
			names := m[2]
			start := i + 1
			for strings.Count(names, "(") > strings.Count(names, ")") && i+1 < len(lines) {
				i++
				names += " " + lines[i]
			}
			recordFromImport(mod, path, origin, names, start)
			continue
		}
		if m := importPattern.FindStringSubmatch(line); m != nil {
			recordImport(mod, path, m[1], m[2], i+1)
			continue
		}
		if m := assignPattern.FindStringSubmatch(line); m != nil {
			name, value := m[1], strings.TrimSpace(m[2])
			if strings.HasPrefix(value, "=") {
				continue // comparison, not a binding
			}
			if name == "__all__" {
				text := value
				for strings.Count(text, "[") > strings.Count(text, "]") && i+1 < len(lines) {
					i++
					text += " " + lines[i]
				}
				mod.HasAll = true
				for _, q := range quotedNamePattern.FindAllStringSubmatch(text, -1) {
					mod.All = append(mod.All, q[1])
				}
				continue
			}
			kind := core.SymbolConstant
			origin := ""
			if identPattern.MatchString(value) && !isKeywordValue(value) {
				kind = core.SymbolAlias
				origin = value
			}
			addSymbol(mod, &core.Symbol{
				Name:   name,
				Kind:   kind,
				Origin: origin,
				Pos:    core.Position{File: path, Line: i + 1},
			})
			continue
		}
	}
	return mod
}

// recordFromImport adds one alias symbol per imported name. Star imports
// are recorded on the module for expansion at resolution time.
func recordFromImport(mod *core.Module, path, origin, names string, line int) {
	names = strings.NewReplacer("(", "", ")", "", "\\", "").Replace(names)
	for _, item := range strings.Split(names, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if item == "*" {
			mod.StarImports = append(mod.StarImports, origin)
			continue
		}
		name, alias := item, item
		if before, after, ok := strings.Cut(item, " as "); ok {
			name = strings.TrimSpace(before)
			alias = strings.TrimSpace(after)
		}
		addSymbol(mod, &core.Symbol{
			Name:   alias,
			Kind:   core.SymbolAlias,
			Origin: origin + "." + name,
			Pos:    core.Position{File: path, Line: line},
		})
	}
}

// recordImport adds the binding created by a plain import statement.
// "import a.b.c" binds the top-level name a; "import a.b as x" binds x.
func recordImport(mod *core.Module, path, target, alias string, line int) {
	name := target
	if alias != "" {
		name = alias
	} else if dot := strings.Index(target, "."); dot >= 0 {
		name = target[:dot]
		target = name
	}
	addSymbol(mod, &core.Symbol{
		Name:   name,
		Kind:   core.SymbolModule,
		Origin: target,
		Pos:    core.Position{File: path, Line: line},
	})
}

// addSymbol appends a symbol unless the name is already bound. The first
// binding wins, which keeps def-then-reassignment files stable.
func addSymbol(mod *core.Module, sym *core.Symbol) {
	if mod.Lookup(sym.Name) != nil {
		return
	}
	sym.Module = mod.Path
	sym.Public = !strings.HasPrefix(sym.Name, "_")
	mod.Symbols = append(mod.Symbols, sym)
}

// addChildSymbol records a subpackage or submodule as an attribute of its
// parent package.
func addChildSymbol(pkg *core.Module, name string) {
	addSymbol(pkg, &core.Symbol{
		Name:   name,
		Kind:   core.SymbolModule,
		Origin: pkg.Path + "." + name,
		Pos:    core.Position{File: pkg.File},
	})
}

// resolveRelative turns a relative import target into a dotted absolute
// path. One leading dot refers to the containing package, each further
// dot climbs one level.
func resolveRelative(current string, isPackage bool, ref string) string {
	if !strings.HasPrefix(ref, ".") {
		return ref
	}
	base := strings.Split(current, ".")
	if !isPackage && len(base) > 0 {
		base = base[:len(base)-1]
	}
	level := 0
	for level < len(ref) && ref[level] == '.' {
		level++
	}
	for up := 1; up < level && len(base) > 0; up++ {
		base = base[:len(base)-1]
	}
	rest := strings.TrimLeft(ref, ".")
	if rest == "" {
		return strings.Join(base, ".")
	}
	return strings.Join(append(base, strings.Split(rest, ".")...), ".")
}

// countTripleQuotes counts docstring delimiters on a line. An odd count
// flips the in-string state.
func countTripleQuotes(line string) int {
	return strings.Count(line, `"""`) + strings.Count(line, "'''")
}

// isKeywordValue reports whether the value is a Python literal keyword,
// which makes a binding a constant rather than an alias.
func isKeywordValue(v string) bool {
	return v == "True" || v == "False" || v == "None"
}

// hasInit reports whether dir contains an __init__.py.
func hasInit(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "__init__.py"))
	return err == nil
}
