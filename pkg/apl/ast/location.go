package ast

import "fmt"

// Location points at the place in a bundle file an AST node came from.
// It is carried through parsing and validation so warnings and errors can
// name the exact line an operator has to fix.
type Location struct {
	File   string // Path of the bundle file
	Line   int    // Line number (1-based)
	Column int    // Column number (1-based)
}

// String returns "file:line:column", or "<unknown>" when the location
// was never populated.
func (l Location) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// IsValid reports whether the location carries usable file and line info.
func (l Location) IsValid() bool {
	return l.File != "" && l.Line > 0
}
