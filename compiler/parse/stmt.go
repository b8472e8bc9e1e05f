package parse

import (
	"context"

	"tlog.app/go/errors"

	"github.com/slowlang/sysyc/compiler/ast"
)

type (
	Block struct{}

	BlockItem struct{}

	Stmt struct{}

	Return struct{}

	Assign struct{}

	ExprStmt struct{}
)

func (p Block) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	vst := Blanks.Skip(b, st)

	_, i, err = Const("{").Parse(ctx, b, vst)
	if err != nil {
		return nil, st, err
	}

	x, i, err = Many{Of: BlockItem{}}.Parse(ctx, b, i)
	if err != nil {
		return nil, i, err
	}

	items := x.([]any)

	_, i, err = Tok(Const("}")).Parse(ctx, b, i)
	if err != nil {
		return nil, i, errors.New(`statement or "}" expected`)
	}

	blk := &ast.Block{
		Base: ast.Base{Pos: vst, End: i},
	}

	for _, x := range items {
		blk.Items = append(blk.Items, x.(ast.Node))
	}

	return blk, i, nil
}

func (p Block) String() string { return "block" }

func (p BlockItem) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	r := AnyOf{
		ConstDecl{},
		VarDecl{},
		Stmt{},
	}

	return r.Parse(ctx, b, st)
}

func (p Stmt) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	r := AnyOf{
		Return{},
		Block{},
		Assign{},
		ExprStmt{},
	}

	return r.Parse(ctx, b, st)
}

func (p Stmt) String() string { return "statement" }

func (p Return) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	vst := Blanks.Skip(b, st)

	_, i, err = Keyword("return").Parse(ctx, b, vst)
	if err != nil {
		return nil, st, err
	}

	r := ast.Return{}

	x, i, err = Optional{Expr{}}.Parse(ctx, b, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "return value")
	}

	if n, ok := x.(ast.Node); ok {
		r.Value = n
	}

	_, i, err = Tok(Const(";")).Parse(ctx, b, i)
	if err != nil {
		return nil, i, err
	}

	r.Base = ast.Base{Pos: vst, End: i}

	return r, i, nil
}

func (p Assign) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	x, i, err = Tok(Ident{}).Parse(ctx, b, st)
	if err != nil {
		return nil, st, err
	}

	lval := x.(ast.Ident)

	_, i, err = Tok(Op{"="}).Parse(ctx, b, i)
	if err != nil {
		return nil, st, err
	}

	x, i, err = Expr{}.Parse(ctx, b, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "assign to %v", lval.Name)
	}

	val := x.(ast.Node)

	_, i, err = Tok(Const(";")).Parse(ctx, b, i)
	if err != nil {
		return nil, i, err
	}

	return ast.Assign{
		Base:  ast.Base{Pos: lval.Pos, End: i},
		LVal:  lval,
		Value: val,
	}, i, nil
}

func (p ExprStmt) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	x, i, err = Optional{Expr{}}.Parse(ctx, b, st)
	if err != nil {
		return nil, i, err
	}

	s := ast.ExprStmt{}

	if n, ok := x.(ast.Node); ok {
		s.X = n
		s.Pos = n.Span().Pos
	}

	_, i, err = Tok(Const(";")).Parse(ctx, b, i)
	if err != nil {
		if s.X == nil {
			return nil, st, err
		}

		return nil, i, err
	}

	if s.X == nil {
		s.Pos = i - 1
	}

	s.End = i

	return s, i, nil
}
