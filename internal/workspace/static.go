// Static parsing of workspace files: extracts load statements and
// top-level calls with positions, without executing anything.

package workspace

import (
	"path/filepath"
	"strconv"
	"strings"

	"go.starlark.net/syntax"

	"github.com/starpoint-labs/starpin/pkg/core"
)

// StaticFile is the statically scanned shape of a workspace file.
type StaticFile struct {
	// Path is the scanned file path
	Path string
	// Calls are top-level function calls in source order
	Calls []*StaticCall
	// Loads are load() statements in source order
	Loads []*core.LoadStmt
}

// StaticCall is one top-level call with its arguments as written.
type StaticCall struct {
	// Fn is the called function name ("http_archive", "tf_workspace")
	Fn string
	// Args maps keyword names to rendered argument expressions;
	// positional arguments use "arg0", "arg1", ...
	Args map[string]string
	Pos  core.Position
}

// ParseFile statically parses workspace file content. This does NOT
// execute the file - it only analyzes the AST.
func ParseFile(filename string, content []byte) (*StaticFile, error) {
	f, err := syntax.Parse(filename, content, 0)
	if err != nil {
		return nil, &ParseError{
			File:    filename,
			Message: err.Error(),
		}
	}

	sf := &StaticFile{Path: filename}

	for _, stmt := range f.Stmts {
		switch s := stmt.(type) {
		case *syntax.LoadStmt:
			label, _ := s.Module.Value.(string)
			load := &core.LoadStmt{
				Label: label,
				Pos: core.Position{
					File: filename,
					Line: int(s.Load.Line),
					Col:  int(s.Load.Col),
				},
			}
			for _, ident := range s.From {
				load.Symbols = append(load.Symbols, ident.Name)
			}
			sf.Loads = append(sf.Loads, load)

		case *syntax.ExprStmt:
			call, ok := s.X.(*syntax.CallExpr)
			if !ok {
				continue
			}
			sf.Calls = append(sf.Calls, parseCall(filename, call))
		}
	}

	return sf, nil
}

// parseCall extracts the function name, arguments, and position of a call.
func parseCall(filename string, call *syntax.CallExpr) *StaticCall {
	start, _ := call.Span()
	sc := &StaticCall{
		Fn:   callName(call.Fn),
		Args: make(map[string]string),
		Pos: core.Position{
			File: filename,
			Line: int(start.Line),
			Col:  int(start.Col),
		},
	}

	pos := 0
	for _, arg := range call.Args {
		if bin, ok := arg.(*syntax.BinaryExpr); ok && bin.Op == syntax.EQ {
			if ident, ok := bin.X.(*syntax.Ident); ok {
				sc.Args[ident.Name] = exprToString(bin.Y)
				continue
			}
		}
		sc.Args["arg"+strconv.Itoa(pos)] = exprToString(arg)
		pos++
	}

	return sc
}

// callName renders the called expression: an identifier or a dotted path.
func callName(fn syntax.Expr) string {
	switch e := fn.(type) {
	case *syntax.Ident:
		return e.Name
	case *syntax.DotExpr:
		return callName(e.X) + "." + e.Name.Name
	default:
		return "..."
	}
}

// exprToString converts a syntax expression to a string representation.
func exprToString(expr syntax.Expr) string {
	switch e := expr.(type) {
	case *syntax.Literal:
		if e.Token == syntax.STRING {
			if s, ok := e.Value.(string); ok {
				return s
			}
		}
		return e.Raw
	case *syntax.Ident:
		return e.Name
	case *syntax.ListExpr:
		parts := make([]string, 0, len(e.List))
		for _, item := range e.List {
			parts = append(parts, exprToString(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *syntax.DictExpr:
		return "{}"
	case *syntax.TupleExpr:
		return "()"
	case *syntax.BinaryExpr:
		if e.Op == syntax.PLUS {
			return exprToString(e.X) + exprToString(e.Y)
		}
		return "..."
	case *syntax.UnaryExpr:
		if e.Op == syntax.MINUS {
			return "-" + exprToString(e.X)
		}
		return exprToString(e.X)
	default:
		return "..."
	}
}

// ParseError represents an error during static parsing.
type ParseError struct {
	File    string
	Message string
}

func (e *ParseError) Error() string {
	return "parse " + filepath.Base(e.File) + ": " + e.Message
}
