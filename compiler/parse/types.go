package parse

import (
	"context"

	"tlog.app/go/errors"

	"github.com/slowlang/sysyc/compiler/ast"
)

type (
	Type struct{}

	FuncDef struct{}

	// CompUnit is the whole program: one or more function definitions.
	CompUnit struct{}
)

var types = []Keyword{"int", "void"}

func (p Type) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	vst := Blanks.Skip(b, st)

	for _, kw := range types {
		_, i, err = kw.Parse(ctx, b, vst)
		if err != nil {
			continue
		}

		return ast.Type{
			Base: ast.Base{Pos: vst, End: i},
			Name: string(kw),
		}, i, nil
	}

	return nil, st, errors.New("type expected")
}

func (p Type) String() string { return "type" }

func (p FuncDef) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	x, i, err = Type{}.Parse(ctx, b, st)
	if err != nil {
		return nil, i, err
	}

	t := x.(ast.Type)

	x, i, err = Tok(Ident{}).Parse(ctx, b, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "function name")
	}

	name := x.(ast.Ident)

	for _, c := range []Const{"(", ")"} {
		_, i, err = Tok(c).Parse(ctx, b, i)
		if err != nil {
			return nil, i, errors.Wrap(err, "function %v", name.Name)
		}
	}

	x, i, err = Block{}.Parse(ctx, b, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "function %v", name.Name)
	}

	body := x.(*ast.Block)

	return &ast.FuncDef{
		Base: ast.Base{
			Pos: t.Pos,
			End: body.End,
		},
		Type: t,
		Name: name,
		Body: body,
	}, i, nil
}

func (p FuncDef) String() string { return "function definition" }

func (p CompUnit) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	x, i, err = Many{Of: FuncDef{}}.Parse(ctx, b, st)
	if err != nil {
		return nil, i, err
	}

	l := x.([]any)
	if len(l) == 0 {
		return nil, st, errors.New("function definition expected")
	}

	f := &ast.File{}

	for _, x := range l {
		f.Funcs = append(f.Funcs, x.(*ast.FuncDef))
	}

	f.Pos = f.Funcs[0].Pos
	f.End = f.Funcs[len(f.Funcs)-1].End

	return f, i, nil
}
