package format

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/sysyc/compiler/ast"
	"github.com/slowlang/sysyc/compiler/ir"
)

// Format appends text form of x to b.
// x is either *ast.File, an ast expression, or *ir.Program.
func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	return format(ctx, b, x, 0)
}

func format(ctx context.Context, b []byte, x any, d int) ([]byte, error) {
	switch x := x.(type) {
	case *ast.File:
		return formatFile(ctx, b, x, d)
	case *ir.Program:
		return Program(ctx, b, x)
	case ast.Expr:
		return formatExpr(ctx, b, x, 0)
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

func formatFile(ctx context.Context, b []byte, x *ast.File, d int) (_ []byte, err error) {
	for i, f := range x.Funcs {
		if i != 0 {
			b = append(b, '\n')
		}

		b, err = formatFunc(ctx, b, f, d)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name.Name)
		}
	}

	return b, nil
}

func formatFunc(ctx context.Context, b []byte, x *ast.FuncDef, d int) ([]byte, error) {
	b = app(b, d, "%v %v() {\n", x.Type.Name, x.Name.Name)

	b, err := formatBlock(ctx, b, x.Body, d+1)
	if err != nil {
		return nil, errors.Wrap(err, "body")
	}

	b = app(b, d, "}\n")

	return b, nil
}

func formatBlock(ctx context.Context, b []byte, x *ast.Block, d int) (_ []byte, err error) {
	for _, s := range x.Items {
		switch s := s.(type) {
		case ast.Return:
			b = app(b, d, "return")

			if s.Value != nil {
				b = append(b, ' ')

				b, err = formatExpr(ctx, b, s.Value, 0)
				if err != nil {
					return nil, errors.Wrap(err, "expr")
				}
			}

			b = append(b, ";\n"...)
		case ast.Assign:
			b = app(b, d, "%v = ", s.LVal.Name)

			b, err = formatExpr(ctx, b, s.Value, 0)
			if err != nil {
				return nil, errors.Wrap(err, "rhs")
			}

			b = append(b, ";\n"...)
		case ast.ExprStmt:
			b = app(b, d, "")

			if s.X != nil {
				b, err = formatExpr(ctx, b, s.X, 0)
				if err != nil {
					return nil, errors.Wrap(err, "expr")
				}
			}

			b = append(b, ";\n"...)
		case ast.ConstDecl:
			b = app(b, d, "const %v ", s.Type.Name)

			b, err = formatDefs(ctx, b, s.Defs)
			if err != nil {
				return nil, errors.Wrap(err, "const")
			}
		case ast.VarDecl:
			b = app(b, d, "%v ", s.Type.Name)

			b, err = formatDefs(ctx, b, s.Defs)
			if err != nil {
				return nil, errors.Wrap(err, "var")
			}
		case *ast.Block:
			b = app(b, d, "{\n")

			b, err = formatBlock(ctx, b, s, d+1)
			if err != nil {
				return nil, errors.Wrap(err, "block")
			}

			b = app(b, d, "}\n")
		default:
			return nil, errors.New("unsupported stmt: %T", s)
		}
	}

	return b, nil
}

func formatDefs(ctx context.Context, b []byte, defs []ast.Def) (_ []byte, err error) {
	for i, def := range defs {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = append(b, def.Name.Name...)

		if def.Init == nil {
			continue
		}

		b = append(b, " = "...)

		b, err = formatExpr(ctx, b, def.Init, 0)
		if err != nil {
			return nil, errors.Wrap(err, "%v", def.Name.Name)
		}
	}

	return append(b, ";\n"...), nil
}

// formatExpr adds parens only where prec of the enclosing operator needs them.
func formatExpr(ctx context.Context, b []byte, x ast.Expr, prec int) (_ []byte, err error) {
	switch x := x.(type) {
	case ast.Ident:
		b = append(b, x.Name...)
	case ast.Int:
		b = hfmt.Appendf(b, "%d", x.Value)
	case ast.Unary:
		b = append(b, x.Op...)

		b, err = formatExpr(ctx, b, x.X, unaryPrec)
		if err != nil {
			return nil, errors.Wrap(err, "operand")
		}
	case ast.Binary:
		p, ok := binaryPrec[x.Op]
		if !ok {
			return nil, errors.New("unsupported operator: %v", x.Op)
		}

		if p < prec {
			b = append(b, '(')
		}

		b, err = formatExpr(ctx, b, x.Left, p)
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}

		b = hfmt.Appendf(b, " %s ", x.Op)

		b, err = formatExpr(ctx, b, x.Right, p+1)
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}

		if p < prec {
			b = append(b, ')')
		}
	default:
		return nil, errors.New("unsupported expr: %T", x)
	}

	return b, nil
}

var binaryPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3,
	"<": 4, ">": 4, "<=": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

const unaryPrec = 7

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
