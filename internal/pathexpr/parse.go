// Package pathexpr implements the path-expression language used by chained
// tool calls to reference earlier step results, e.g. "$.0.id" or
// "$.1.results[0].path".
package pathexpr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Marker starts every expression.
const Marker = "$"

// ErrSyntax is wrapped by every *SyntaxError.
var ErrSyntax = errors.New("malformed path expression")

// SyntaxError reports where parsing stopped.
type SyntaxError struct {
	Expression string
	Offset     int
	Msg        string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s %q at offset %d: %s", ErrSyntax, e.Expression, e.Offset, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Segment is one step of a path: a field name or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool

	// Quoted is set for ["key"] segments; a quoted key is never read as an
	// index.
	Quoted bool
}

func (s Segment) String() string {
	switch {
	case s.IsIndex:
		return "[" + strconv.Itoa(s.Index) + "]"
	case s.Quoted:
		return "[" + strconv.Quote(s.Key) + "]"
	default:
		return "." + s.Key
	}
}

func (s Segment) key() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

func (s Segment) index() (int, bool) {
	if s.IsIndex {
		return s.Index, true
	}
	if s.Quoted {
		return 0, false
	}
	n, err := strconv.Atoi(s.Key)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Expr is a parsed path expression. Step is the label of the referenced
// step result; Path walks into it.
type Expr struct {
	Raw  string
	Step string
	Path []Segment
}

// IsExpression reports whether s should be parsed as a path expression.
// Anything else, including a bare "$" or "$5", is a literal.
func IsExpression(s string) bool {
	return strings.HasPrefix(s, Marker+".") || strings.HasPrefix(s, Marker+"[")
}

// Parse parses an expression of the form $ followed by .field, [n] and
// ["key"] segments. The first segment names the step.
func Parse(raw string) (*Expr, error) {
	p := &parser{src: raw}
	return p.parse()
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Expression: p.src, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parse() (*Expr, error) {
	if !strings.HasPrefix(p.src, Marker) {
		return nil, p.errorf("missing %q marker", Marker)
	}
	p.pos = len(Marker)

	var segs []Segment
	for p.pos < len(p.src) {
		seg, err := p.segment()
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	if len(segs) == 0 {
		return nil, p.errorf("missing step label")
	}

	return &Expr{Raw: p.src, Step: segs[0].key(), Path: segs[1:]}, nil
}

func (p *parser) segment() (Segment, error) {
	switch p.src[p.pos] {
	case '.':
		p.pos++
		start := p.pos
		for p.pos < len(p.src) {
			c := p.src[p.pos]
			if c == '.' || c == '[' {
				break
			}
			if c == ']' {
				return Segment{}, p.errorf("unexpected ']'")
			}
			p.pos++
		}
		if p.pos == start {
			return Segment{}, p.errorf("empty field name")
		}
		return Segment{Key: p.src[start:p.pos]}, nil

	case '[':
		p.pos++
		if p.pos >= len(p.src) {
			return Segment{}, p.errorf("unterminated '['")
		}
		if q := p.src[p.pos]; q == '"' || q == '\'' {
			return p.quoted(q)
		}
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
		if p.pos == start {
			return Segment{}, p.errorf("expected index or quoted key")
		}
		n, err := strconv.Atoi(p.src[start:p.pos])
		if err != nil {
			return Segment{}, p.errorf("index out of range")
		}
		if err := p.expect(']'); err != nil {
			return Segment{}, err
		}
		return Segment{Index: n, IsIndex: true}, nil

	default:
		return Segment{}, p.errorf("unexpected %q", p.src[p.pos])
	}
}

func (p *parser) quoted(q byte) (Segment, error) {
	p.pos++
	end := strings.IndexByte(p.src[p.pos:], q)
	if end < 0 {
		return Segment{}, p.errorf("unterminated quoted key")
	}
	key := p.src[p.pos : p.pos+end]
	p.pos += end + 1
	if err := p.expect(']'); err != nil {
		return Segment{}, err
	}
	return Segment{Key: key, Quoted: true}, nil
}

func (p *parser) expect(c byte) error {
	if p.pos >= len(p.src) || p.src[p.pos] != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}
