package expr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAttrPath indicates an attribute path could not be parsed.
var ErrInvalidAttrPath = errors.New("invalid attribute path")

// Segment is one component of an attribute path. Quoted records whether the
// segment was written (or should be written) as a string, e.g. "x86_64-linux".
type Segment struct {
	Name   string
	Quoted bool
}

// Bare returns an unquoted segment. It is still quoted on output when name is
// not a valid Nix identifier.
func Bare(name string) Segment { return Segment{Name: name} }

// Quoted returns a segment that always renders as a string.
func Quoted(name string) Segment { return Segment{Name: name, Quoted: true} }

// String renders the segment, quoting it when needed.
func (s Segment) String() string {
	if s.Quoted || !isIdent(s.Name) {
		return quote(s.Name)
	}
	return s.Name
}

// AttrPath is a non-empty dotted path into an attribute set.
type AttrPath []Segment

// Path builds an attribute path of bare segments.
func Path(names ...string) AttrPath {
	p := make(AttrPath, len(names))
	for i, n := range names {
		p[i] = Bare(n)
	}
	return p
}

// ParseAttrPath splits s on dots that are not inside double quotes. Quoted
// segments keep their quoting and may contain dots and escaped characters.
func ParseAttrPath(s string) (AttrPath, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidAttrPath)
	}

	var (
		path    AttrPath
		cur     strings.Builder
		quoted  bool
		inQuote bool
		escaped bool
		closed  bool
	)

	flush := func(pos int) error {
		if !quoted && cur.Len() == 0 {
			return fmt.Errorf("%w: empty segment at offset %d in %q", ErrInvalidAttrPath, pos, s)
		}
		path = append(path, Segment{Name: cur.String(), Quoted: quoted})
		cur.Reset()
		quoted, closed = false, false
		return nil
	}

	for i, r := range s {
		switch {
		case escaped:
			cur.WriteRune(unescape(r))
			escaped = false
		case inQuote && r == '\\':
			escaped = true
		case inQuote && r == '"':
			inQuote = false
			closed = true
		case inQuote:
			cur.WriteRune(r)
		case r == '.':
			if err := flush(i); err != nil {
				return nil, err
			}
		case r == '"':
			if cur.Len() > 0 || closed {
				return nil, fmt.Errorf("%w: unexpected quote at offset %d in %q", ErrInvalidAttrPath, i, s)
			}
			inQuote, quoted = true, true
		case closed:
			return nil, fmt.Errorf("%w: text after closing quote at offset %d in %q", ErrInvalidAttrPath, i, s)
		default:
			cur.WriteRune(r)
		}
	}
	if inQuote || escaped {
		return nil, fmt.Errorf("%w: unterminated quote in %q", ErrInvalidAttrPath, s)
	}
	if err := flush(len(s)); err != nil {
		return nil, err
	}
	return path, nil
}

func unescape(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return r
	}
}

// String renders the path in Nix syntax, e.g. packages."foo".result.
func (p AttrPath) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// Head returns the unquoted name of the first segment, or "" for an empty path.
func (p AttrPath) Head() string {
	if len(p) == 0 {
		return ""
	}
	return p[0].Name
}

// Init returns every segment but the last.
func (p AttrPath) Init() AttrPath {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

// Last returns the final segment.
func (p AttrPath) Last() Segment {
	return p[len(p)-1]
}

// Append returns a new path with segs added after p. p is not modified.
func (p AttrPath) Append(segs ...Segment) AttrPath {
	out := make(AttrPath, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}
