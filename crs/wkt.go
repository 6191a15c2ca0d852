// Package crs handles the coordinate reference system records of point-cloud files: GeoTIFF key
// directories, WKT strings, and the EPSG registry used to check one against the other.
package crs

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// ErrInvalidWKT is returned for text that is not a WKT tree.
var ErrInvalidWKT = errors.New("invalid WKT")

// Value is one argument of a WKT node: exactly one of Node, Text (quoted) or Token (bare word or
// number) is set.
type Value struct {
	Node  *Node
	Text  *string
	Token string
}

// Node is a WKT keyword with its bracketed arguments, e.g. UNIT["metre",1].
type Node struct {
	Keyword string
	Args    []Value
}

// ParseWKT parses a WKT 1 string.
func ParseWKT(wkt string) (*Node, error) {
	p := &wktParser{src: wkt}
	node, err := p.node()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, errors.Wrapf(ErrInvalidWKT, "trailing text at offset %d", p.pos)
	}
	return node, nil
}

type wktParser struct {
	src string
	pos int
}

func (p *wktParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *wktParser) word() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '[' || c == ']' || c == '(' || c == ')' || c == ',' || c == '"' || unicode.IsSpace(rune(c)) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *wktParser) node() (*Node, error) {
	p.skipSpace()
	keyword := p.word()
	if keyword == "" {
		return nil, errors.Wrapf(ErrInvalidWKT, "expected keyword at offset %d", p.pos)
	}
	p.skipSpace()
	if p.pos >= len(p.src) || (p.src[p.pos] != '[' && p.src[p.pos] != '(') {
		return nil, errors.Wrapf(ErrInvalidWKT, "expected '[' after %s", keyword)
	}
	closer := byte(']')
	if p.src[p.pos] == '(' {
		closer = ')'
	}
	p.pos++

	n := &Node{Keyword: strings.ToUpper(keyword)}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, errors.Wrapf(ErrInvalidWKT, "unterminated %s", keyword)
		}
		if p.src[p.pos] == closer && len(n.Args) == 0 {
			p.pos++
			return n, nil
		}
		arg, err := p.value()
		if err != nil {
			return nil, err
		}
		n.Args = append(n.Args, arg)
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, errors.Wrapf(ErrInvalidWKT, "unterminated %s", keyword)
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case closer:
			p.pos++
			return n, nil
		default:
			return nil, errors.Wrapf(ErrInvalidWKT, "unexpected %q at offset %d", p.src[p.pos], p.pos)
		}
	}
}

func (p *wktParser) value() (Value, error) {
	if p.src[p.pos] == '"' {
		p.pos++
		var sb strings.Builder
		for {
			if p.pos >= len(p.src) {
				return Value{}, errors.Wrap(ErrInvalidWKT, "unterminated string")
			}
			c := p.src[p.pos]
			p.pos++
			if c == '"' {
				// A doubled quote is an escaped quote.
				if p.pos < len(p.src) && p.src[p.pos] == '"' {
					sb.WriteByte('"')
					p.pos++
					continue
				}
				break
			}
			sb.WriteByte(c)
		}
		text := sb.String()
		return Value{Text: &text}, nil
	}

	start := p.pos
	token := p.word()
	if token == "" {
		return Value{}, errors.Wrapf(ErrInvalidWKT, "expected value at offset %d", p.pos)
	}
	p.skipSpace()
	if p.pos < len(p.src) && (p.src[p.pos] == '[' || p.src[p.pos] == '(') {
		p.pos = start
		child, err := p.node()
		if err != nil {
			return Value{}, err
		}
		return Value{Node: child}, nil
	}
	return Value{Token: token}, nil
}

// String serializes the tree as compact WKT.
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	sb.WriteString(n.Keyword)
	sb.WriteByte('[')
	for i, arg := range n.Args {
		if i > 0 {
			sb.WriteByte(',')
		}
		switch {
		case arg.Node != nil:
			arg.Node.write(sb)
		case arg.Text != nil:
			sb.WriteByte('"')
			sb.WriteString(strings.ReplaceAll(*arg.Text, `"`, `""`))
			sb.WriteByte('"')
		default:
			sb.WriteString(arg.Token)
		}
	}
	sb.WriteByte(']')
}

// Name returns the first quoted argument, which WKT uses as the object name.
func (n *Node) Name() string {
	if len(n.Args) > 0 && n.Args[0].Text != nil {
		return *n.Args[0].Text
	}
	return ""
}

// SetName replaces the object name.
func (n *Node) SetName(name string) {
	if len(n.Args) > 0 && n.Args[0].Text != nil {
		n.Args[0].Text = &name
		return
	}
	n.Args = append([]Value{{Text: &name}}, n.Args...)
}

// Child returns the first direct child with the keyword.
func (n *Node) Child(keyword string) *Node {
	for _, arg := range n.Args {
		if arg.Node != nil && arg.Node.Keyword == keyword {
			return arg.Node
		}
	}
	return nil
}

// RemoveChild deletes the first direct child with the keyword and reports whether one existed.
func (n *Node) RemoveChild(keyword string) bool {
	for i, arg := range n.Args {
		if arg.Node != nil && arg.Node.Keyword == keyword {
			n.Args = append(n.Args[:i], n.Args[i+1:]...)
			return true
		}
	}
	return false
}

// ReplaceChild swaps the first direct child with the keyword for child, appending it when absent.
func (n *Node) ReplaceChild(child *Node) {
	for i, arg := range n.Args {
		if arg.Node != nil && arg.Node.Keyword == child.Keyword {
			n.Args[i] = Value{Node: child}
			return
		}
	}
	n.Args = append(n.Args, Value{Node: child})
}

// Number returns the i-th argument as a number.
func (n *Node) Number(i int) (float64, bool) {
	if i >= len(n.Args) || n.Args[i].Token == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(n.Args[i].Token, 64)
	return v, err == nil
}

// Authority returns the authority name and code of the node's own AUTHORITY child.
func (n *Node) Authority() (name string, code int, ok bool) {
	auth := n.Child("AUTHORITY")
	if auth == nil || len(auth.Args) < 2 || auth.Args[0].Text == nil {
		return "", 0, false
	}
	codeStr := auth.Args[1].Token
	if auth.Args[1].Text != nil {
		codeStr = *auth.Args[1].Text
	}
	code, err := strconv.Atoi(strings.TrimSpace(codeStr))
	if err != nil {
		return "", 0, false
	}
	return *auth.Args[0].Text, code, true
}

// EPSGCode returns the node's EPSG authority code.
func (n *Node) EPSGCode() (int, bool) {
	name, code, ok := n.Authority()
	if !ok || !strings.EqualFold(name, "EPSG") {
		return 0, false
	}
	return code, true
}

// Clone returns a deep copy.
func (n *Node) Clone() *Node {
	out := &Node{Keyword: n.Keyword, Args: make([]Value, len(n.Args))}
	for i, arg := range n.Args {
		switch {
		case arg.Node != nil:
			out.Args[i] = Value{Node: arg.Node.Clone()}
		case arg.Text != nil:
			text := *arg.Text
			out.Args[i] = Value{Text: &text}
		default:
			out.Args[i] = Value{Token: arg.Token}
		}
	}
	return out
}

// Equivalent compares two trees ignoring keyword case, whitespace and number formatting.
func (n *Node) Equivalent(other *Node) bool {
	if n.Keyword != other.Keyword || len(n.Args) != len(other.Args) {
		return false
	}
	for i := range n.Args {
		a, b := n.Args[i], other.Args[i]
		switch {
		case a.Node != nil || b.Node != nil:
			if a.Node == nil || b.Node == nil || !a.Node.Equivalent(b.Node) {
				return false
			}
		case a.Text != nil || b.Text != nil:
			if a.Text == nil || b.Text == nil || *a.Text != *b.Text {
				return false
			}
		default:
			av, aErr := strconv.ParseFloat(a.Token, 64)
			bv, bErr := strconv.ParseFloat(b.Token, 64)
			if aErr == nil && bErr == nil {
				if av != bv {
					return false
				}
			} else if !strings.EqualFold(a.Token, b.Token) {
				return false
			}
		}
	}
	return true
}
