// Package patch merges synthesized tool blocks into a generated agent source.
//
// Blocks are placed between the agent's first type declaration and the first
// function that follows it, so the tool functions sit next to the agent type
// they serve.
package patch

import (
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strings"
)

// Failure reasons reported by Error.
const (
	ReasonNoDeclaration = "no declaration found"
	ReasonNoBehavior    = "no behavior found"
	ReasonNameTaken     = "name already declared"
)

// Error reports why blocks could not be merged. Name is set when a single
// identifier is at fault.
type Error struct {
	Reason string
	Name   string
}

func (e *Error) Error() string { return "patch: " + e.Detail() }

// Detail is the reason with the offending name, if any.
func (e *Error) Detail() string {
	if e.Name == "" {
		return e.Reason
	}
	return e.Reason + ": " + e.Name
}

// Layout is the structural model the patcher works from.
type Layout struct {
	// Declaration is the byte offset of the line holding the first top-level
	// type declaration.
	Declaration int
	// Insert is the byte offset blocks are inserted at: the start of the doc
	// comment of the first function after the declaration, or of its line.
	Insert int
	// Declared maps the top-level names of the source to the keyword that
	// introduced them: token.FUNC, token.TYPE, token.VAR or token.CONST.
	// Methods are not included.
	Declared map[string]token.Token
	// Parsed reports whether the source was valid Go. When false the layout
	// came from a line scan.
	Parsed bool
}

// Parse builds the layout of text.
func Parse(text string) (Layout, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", text, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return scanLines(text)
	}
	return fromAST(fset, file, text)
}

func fromAST(fset *token.FileSet, file *ast.File, text string) (Layout, error) {
	layout := Layout{Declaration: -1, Insert: -1, Declared: map[string]token.Token{}, Parsed: true}
	var typeEnd token.Pos

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			for _, s := range d.Specs {
				switch s := s.(type) {
				case *ast.TypeSpec:
					layout.Declared[s.Name.Name] = token.TYPE
				case *ast.ValueSpec:
					for _, n := range s.Names {
						layout.Declared[n.Name] = d.Tok
					}
				}
			}
			if d.Tok == token.TYPE && layout.Declaration < 0 {
				layout.Declaration = lineStart(text, fset.Position(d.Pos()).Offset)
				typeEnd = d.End()
			}
		case *ast.FuncDecl:
			if d.Recv == nil {
				layout.Declared[d.Name.Name] = token.FUNC
			}
			if layout.Declaration >= 0 && layout.Insert < 0 && d.Pos() > typeEnd {
				pos := d.Pos()
				if d.Doc != nil {
					pos = d.Doc.Pos()
				}
				layout.Insert = lineStart(text, fset.Position(pos).Offset)
			}
		}
	}
	return layout, layout.check()
}

var (
	funcName = regexp.MustCompile(`^func\s+([A-Za-z_][A-Za-z0-9_]*)\s*[\[(]`)
	declName = regexp.MustCompile(`^(type|var|const)\s+([A-Za-z_][A-Za-z0-9_]*)\b`)
)

// scanLines locates the markers by line prefix for sources the parser
// rejects. Top-level declarations start at column zero in formatted Go.
func scanLines(text string) (Layout, error) {
	layout := Layout{Declaration: -1, Insert: -1, Declared: map[string]token.Token{}}

	lines := strings.SplitAfter(text, "\n")
	offsets := make([]int, len(lines))
	off := 0
	for i, line := range lines {
		offsets[i] = off
		off += len(line)
	}

	for i, line := range lines {
		if m := funcName.FindStringSubmatch(line); m != nil {
			layout.Declared[m[1]] = token.FUNC
		} else if m := declName.FindStringSubmatch(line); m != nil {
			layout.Declared[m[2]] = token.Lookup(m[1])
		}
		switch {
		case layout.Declaration < 0:
			if strings.HasPrefix(line, "type ") {
				layout.Declaration = offsets[i]
			}
		case layout.Insert < 0:
			if strings.HasPrefix(line, "func ") {
				start := i
				for start > 0 && strings.HasPrefix(lines[start-1], "//") {
					start--
				}
				layout.Insert = offsets[start]
			}
		}
	}
	return layout, layout.check()
}

func (l Layout) check() error {
	if l.Declaration < 0 {
		return &Error{Reason: ReasonNoDeclaration}
	}
	if l.Insert < 0 {
		return &Error{Reason: ReasonNoBehavior}
	}
	return nil
}

func lineStart(text string, offset int) int {
	if offset > len(text) {
		offset = len(text)
	}
	return strings.LastIndexByte(text[:offset], '\n') + 1
}
