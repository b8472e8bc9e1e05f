package parse

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"tlog.app/go/errors"

	"github.com/slowlang/sysyc/compiler/ast"
)

type (
	Const string

	// Keyword is Const which is not followed by an identifier character.
	Keyword string

	Ident struct{}

	// Op matches the longest of the listed operators.
	// A single character operator doesn't match if it's the start of a longer known operator.
	Op []string

	// opTok is a matched operator.
	opTok struct {
		ast.Base

		Op string
	}

	BinOper interface {
		BinOp(l, r ast.Node) (ast.Node, error)
	}
)

var keywords = map[string]struct{}{
	"int":    {},
	"void":   {},
	"const":  {},
	"return": {},
	"if":     {},
	"else":   {},
	"while":  {},
}

var longOps = []string{"<=", ">=", "==", "!=", "&&", "||"}

func (p Const) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	if bytes.HasPrefix(b[st:], []byte(p)) {
		return p, st + len(p), nil
	}

	return nil, st, errors.New("%q expected", string(p))
}

func (p Const) String() string { return fmt.Sprintf("%q", string(p)) }

func (p Keyword) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	i = st + len(p)

	if !bytes.HasPrefix(b[st:], []byte(p)) || i < len(b) && isIdentChar(b[i]) {
		return nil, st, errors.New("%q expected", string(p))
	}

	return p, i, nil
}

func (p Keyword) String() string { return string(p) }

func (p Ident) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	i = st

	if i == len(b) || !isIdentChar(b[i]) || b[i] >= '0' && b[i] <= '9' {
		return nil, st, errors.New("identifier expected")
	}

	for i < len(b) && isIdentChar(b[i]) {
		i++
	}

	name := string(b[st:i])

	if _, ok := keywords[name]; ok {
		return nil, st, errors.New("identifier expected, got keyword %q", name)
	}

	return ast.Ident{
		Base: ast.Base{Pos: st, End: i},
		Name: name,
	}, i, nil
}

func (p Ident) String() string { return "identifier" }

func (p Op) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	best := ""

	for _, op := range p {
		if len(op) > len(best) && bytes.HasPrefix(b[st:], []byte(op)) {
			best = op
		}
	}

	if len(best) == 1 {
		for _, op := range longOps {
			if bytes.HasPrefix(b[st:], []byte(op)) {
				best = ""
				break
			}
		}
	}

	if best == "" {
		return nil, st, errors.New("%v expected", p)
	}

	return opTok{
		Base: ast.Base{Pos: st, End: st + len(best)},
		Op:   best,
	}, st + len(best), nil
}

func (p Op) String() string {
	return "one of " + strings.Join(p, " ")
}

func (o opTok) BinOp(l, r ast.Node) (ast.Node, error) {
	return ast.Binary{
		Base: ast.Base{
			Pos: l.Span().Pos,
			End: r.Span().End,
		},
		Op:    o.Op,
		Left:  l,
		Right: r,
	}, nil
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}
