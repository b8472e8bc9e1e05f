package parse

import (
	"context"

	"tlog.app/go/errors"

	"github.com/slowlang/sysyc/compiler/ast"
)

type (
	// ConstDecl is `const int a = 1, b = a + 1;`.
	ConstDecl struct{}

	// VarDecl is `int a, b = 2;`.
	VarDecl struct{}
)

func (p ConstDecl) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	vst := Blanks.Skip(b, st)

	_, i, err = Keyword("const").Parse(ctx, b, vst)
	if err != nil {
		return nil, st, err
	}

	x, i, err = Type{}.Parse(ctx, b, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "const")
	}

	t := x.(ast.Type)
	if t.Name != "int" {
		return nil, t.Pos, errors.New("const of type %v", t.Name)
	}

	defs, i, err := parseDefs(ctx, b, i, true)
	if err != nil {
		return nil, i, err
	}

	return ast.ConstDecl{
		Base: ast.Base{Pos: vst, End: i},
		Type: t,
		Defs: defs,
	}, i, nil
}

func (p VarDecl) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	x, i, err = Type{}.Parse(ctx, b, st)
	if err != nil {
		return nil, i, err
	}

	t := x.(ast.Type)
	if t.Name != "int" {
		return nil, t.Pos, errors.New("variable of type %v", t.Name)
	}

	defs, i, err := parseDefs(ctx, b, i, false)
	if err != nil {
		return nil, i, err
	}

	return ast.VarDecl{
		Base: ast.Base{Pos: t.Pos, End: i},
		Type: t,
		Defs: defs,
	}, i, nil
}

// parseDefs parses comma separated definitions up to and including the final semicolon.
func parseDefs(ctx context.Context, b []byte, st int, needInit bool) (defs []ast.Def, i int, err error) {
	i = st

	for {
		var x any

		x, i, err = Tok(Ident{}).Parse(ctx, b, i)
		if err != nil {
			return nil, i, err
		}

		id := x.(ast.Ident)

		d := ast.Def{
			Base: id.Base,
			Name: id,
		}

		j := i

		_, i, err = Tok(Op{"="}).Parse(ctx, b, i)
		switch {
		case err == nil:
			x, i, err = Expr{}.Parse(ctx, b, i)
			if err != nil {
				return nil, i, errors.Wrap(err, "%v initializer", id.Name)
			}

			d.Init = x.(ast.Node)
			d.End = d.Init.Span().End
		case needInit:
			return nil, j, errors.New("constant %v must be initialized", id.Name)
		default:
			i = j
		}

		defs = append(defs, d)

		j = i

		_, i, err = Tok(Const(",")).Parse(ctx, b, i)
		if err == nil {
			continue
		}

		_, i, err = Tok(Const(";")).Parse(ctx, b, j)
		if err != nil {
			return nil, i, errors.New(`"," or ";" expected`)
		}

		return defs, i, nil
	}
}
