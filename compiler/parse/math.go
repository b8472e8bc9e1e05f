package parse

import (
	"context"

	"tlog.app/go/errors"

	"github.com/slowlang/sysyc/compiler/ast"
)

type (
	// Math is a binary operators precedence level. Level 0 binds the weakest.
	Math struct {
		Level int
	}

	LeftToRight struct {
		Op  Parser
		Arg Parser
	}

	Unary struct{}

	Primary struct{}

	Paren struct{}
)

var levels = [][]string{
	{"||"},
	{"&&"},
	{"==", "!="},
	{"<=", ">=", "<", ">"},
	{"+", "-"},
	{"*", "/", "%"},
}

var unaryOps = Op{"+", "-", "!"}

func (p Math) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	if p.Level >= len(levels) {
		return Unary{}.Parse(ctx, b, st)
	}

	r := LeftToRight{
		Op:  Tok(Op(levels[p.Level])),
		Arg: Math{Level: p.Level + 1},
	}

	return r.Parse(ctx, b, st)
}

func (p LeftToRight) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	x, i, err = p.Arg.Parse(ctx, b, st)
	if err != nil {
		return nil, i, err
	}

	for i < len(b) {
		var op any
		opst := i
		op, i, err = p.Op.Parse(ctx, b, i)
		if i == opst {
			err = nil
			break
		}
		if err != nil {
			return nil, i, err
		}

		c, ok := op.(BinOper)
		if !ok {
			return nil, i, errors.New("BinOper expected, got %T", op)
		}

		var r any
		r, i, err = p.Arg.Parse(ctx, b, i)
		if err != nil {
			return nil, i, err
		}

		x, err = c.BinOp(x.(ast.Node), r.(ast.Node))
		if err != nil {
			return nil, i, errors.Wrap(err, "%T", c)
		}
	}

	return
}

func (p Unary) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	op, i, err := Tok(unaryOps).Parse(ctx, b, st)
	if err != nil {
		return Primary{}.Parse(ctx, b, st)
	}

	y, i, err := p.Parse(ctx, b, i)
	if err != nil {
		return nil, i, err
	}

	o := op.(opTok)

	return ast.Unary{
		Base: ast.Base{
			Pos: o.Pos,
			End: y.(ast.Node).Span().End,
		},
		Op: o.Op,
		X:  y.(ast.Node),
	}, i, nil
}

func (p Primary) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	r := AnyOf{
		Paren{},
		Tok(Int{}),
		Tok(Ident{}),
	}

	x, i, err = r.Parse(ctx, b, st)
	if err != nil && i == st {
		return nil, st, errors.New("expression expected")
	}

	return
}

func (p Paren) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	r := Context{
		Pre:  Tok(Const("(")),
		Of:   Expr{},
		Post: Tok(Const(")")),
	}

	return r.Parse(ctx, b, st)
}

func (p Paren) String() string { return `"("` }
