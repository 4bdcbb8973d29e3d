package core

import "fmt"

// Position locates a declaration, directive, or entry in a source file.
// Line and Col are 1-based; Col 0 means the column is unknown.
type Position struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col,omitempty"`
}

// IsValid reports whether the position carries at least a file and line.
func (p Position) IsValid() bool {
	return p.File != "" && p.Line > 0
}

// String renders the position as "file:line" or "file:line:col".
func (p Position) String() string {
	if p.File == "" {
		return "<unknown>"
	}
	if p.Col > 0 {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}
