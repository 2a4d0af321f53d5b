// Package expr builds Nix expressions from typed nodes. Nothing here splices
// caller-supplied text into expression source: identifiers are validated,
// attribute segments are quoted when they are not plain identifiers, and every
// string literal passes through quote.
package expr

import (
	"strings"
	"unicode/utf8"
)

// Expr is a node of a Nix expression. Render turns a tree of nodes into source.
type Expr interface {
	render(b *strings.Builder)
}

// Ident is a variable reference such as source or project.
type Ident string

// Str is a string literal.
type Str string

// Interp is a string literal with interpolations. Str parts are escaped;
// any other part is wrapped in ${...}.
type Interp []Expr

// Select is base.path, optionally followed by "or Default".
type Select struct {
	Base    Expr
	Path    AttrPath
	Default Expr
}

// Has is the membership test "Base ? Attr".
type Has struct {
	Base Expr
	Attr Segment
}

// Call is function application: Fn Args[0] Args[1] ...
type Call struct {
	Fn   Expr
	Args []Expr
}

// List is a list literal.
type List []Expr

// Binding is one "name = value;" entry of an attribute set or let block.
type Binding struct {
	Name  string
	Value Expr
}

// AttrSet is an attribute set literal.
type AttrSet []Binding

// Let is "let bindings in body".
type Let struct {
	Bindings []Binding
	Body     Expr
}

// Null is the null literal.
const Null = Ident("null")

// Builtin returns a reference to builtins.<name>.
func Builtin(name string) Expr {
	return Select{Base: Ident("builtins"), Path: Path(name)}
}

// Render returns the Nix source text for e.
func Render(e Expr) string {
	var b strings.Builder
	e.render(&b)
	return b.String()
}

func (i Ident) render(b *strings.Builder) {
	b.WriteString(string(i))
}

func (s Str) render(b *strings.Builder) {
	b.WriteString(quote(string(s)))
}

func (p Interp) render(b *strings.Builder) {
	b.WriteByte('"')
	for _, part := range p {
		if s, ok := part.(Str); ok {
			b.WriteString(escape(string(s)))
			continue
		}
		b.WriteString("${")
		part.render(b)
		b.WriteByte('}')
	}
	b.WriteByte('"')
}

func (s Select) render(b *strings.Builder) {
	operand(b, s.Base)
	if len(s.Path) > 0 {
		b.WriteByte('.')
		b.WriteString(s.Path.String())
	}
	if s.Default != nil {
		b.WriteString(" or ")
		operand(b, s.Default)
	}
}

func (h Has) render(b *strings.Builder) {
	operand(b, h.Base)
	b.WriteString(" ? ")
	b.WriteString(h.Attr.String())
}

func (c Call) render(b *strings.Builder) {
	operand(b, c.Fn)
	for _, a := range c.Args {
		b.WriteByte(' ')
		operand(b, a)
	}
}

func (l List) render(b *strings.Builder) {
	if len(l) == 0 {
		b.WriteString("[]")
		return
	}
	b.WriteByte('[')
	for _, item := range l {
		b.WriteByte(' ')
		operand(b, item)
	}
	b.WriteString(" ]")
}

func (a AttrSet) render(b *strings.Builder) {
	if len(a) == 0 {
		b.WriteString("{}")
		return
	}
	b.WriteByte('{')
	for _, bind := range a {
		b.WriteByte(' ')
		bind.render(b)
	}
	b.WriteString(" }")
}

func (bind Binding) render(b *strings.Builder) {
	b.WriteString(Bare(bind.Name).String())
	b.WriteString(" = ")
	bind.Value.render(b)
	b.WriteByte(';')
}

func (l Let) render(b *strings.Builder) {
	b.WriteString("let")
	for _, bind := range l.Bindings {
		b.WriteString("\n  ")
		bind.render(b)
	}
	b.WriteString("\nin\n  ")
	l.Body.render(b)
}

// operand renders e, parenthesized unless it is atomic.
func operand(b *strings.Builder, e Expr) {
	switch v := e.(type) {
	case Ident, Str, Interp, List, AttrSet:
		e.render(b)
	case Select:
		if v.Default == nil {
			e.render(b)
			return
		}
		paren(b, e)
	default:
		paren(b, e)
	}
}

func paren(b *strings.Builder, e Expr) {
	b.WriteByte('(')
	e.render(b)
	b.WriteByte(')')
}

// quote returns s as a double-quoted Nix string literal.
func quote(s string) string {
	return `"` + escape(s) + `"`
}

// escape escapes s for use inside a double-quoted Nix string. "${" must be
// escaped or Nix treats it as interpolation.
func escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == '"':
			b.WriteString(`\"`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '$' && strings.HasPrefix(s[i+size:], "{"):
			b.WriteString(`\$`)
		default:
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

// keywords cannot be used as bare attribute names.
var keywords = map[string]bool{
	"if": true, "then": true, "else": true, "assert": true, "with": true,
	"let": true, "in": true, "rec": true, "inherit": true, "or": true,
}

// isIdent reports whether s is a valid bare Nix identifier.
func isIdent(s string) bool {
	if s == "" || keywords[s] {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && ((r >= '0' && r <= '9') || r == '\'' || r == '-'):
		default:
			return false
		}
	}
	return true
}
