package front

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/sysyc/compiler/ast"
	"github.com/slowlang/sysyc/compiler/ir"
	"github.com/slowlang/sysyc/compiler/lower"
	"github.com/slowlang/sysyc/compiler/tp"
)

type (
	pkgContext struct {
		*ir.Program

		funcs map[string]ir.Func
	}

	funContext struct {
		*ir.Builder

		def *ast.FuncDef

		cur  ir.Block
		done bool // cur is terminated
	}

	Scope struct {
		*pkgContext
		*funContext

		par  *Scope
		defs map[string]definition

		depth int
	}

	// definition is either a folded constant or a stack variable.
	definition struct {
		konst bool
		val   int32
		ptr   ir.Value
	}
)

// Compile lowers f into a new Program.
// Either every function is lowered or nil Program is returned.
func (c *Front) Compile(ctx context.Context, f *ast.File) (_ *ir.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: compile", "funcs", len(f.Funcs))
	defer tr.Finish("err", &err)

	p := &pkgContext{
		Program: ir.New(),
		funcs:   make(map[string]ir.Func),
	}

	for _, d := range f.Funcs {
		_, err = c.compileFunc(ctx, p, d)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", d.Name.Name)
		}
	}

	return p.Program, nil
}

func (c *Front) compileFunc(ctx context.Context, p *pkgContext, d *ast.FuncDef) (fid ir.Func, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile function", "name", d.Name.Name)
	defer tr.Finish("id", &fid, "err", &err)

	if _, ok := p.funcs[d.Name.Name]; ok {
		return 0, errAt(d.Name, ErrRedefined, "function")
	}

	ret, err := c.compileType(d.Type)
	if err != nil {
		return 0, err
	}

	fid = p.RegisterFunction(ir.Signature{
		Name: d.Name.Name,
		Ret:  ret,
	})

	p.funcs[d.Name.Name] = fid

	b, err := p.Builder(fid)
	if err != nil {
		return 0, errors.Wrap(err, "builder")
	}

	s := &Scope{
		pkgContext: p,
		funContext: &funContext{
			Builder: b,
			def:     d,
		},
		defs: make(map[string]definition),
	}

	s.cur = b.PushBlock("%entry")

	err = c.compileBlock(ctx, s, d.Body)
	if err != nil {
		return 0, err
	}

	if !s.done {
		if !tp.Equal(ret, tp.Unit{}) {
			end := ast.Base{Pos: d.Body.End - 1, End: d.Body.End}

			return 0, &Error{Pos: end, Err: errors.Wrap(ErrMissedReturn, "function %v returning %v", d.Name.Name, ret)}
		}

		err = s.emit(b.Return(ir.Nil))
		if err != nil {
			return 0, errors.Wrap(err, "implicit return")
		}
	}

	if tr.If("dump_ir") {
		fn := b.Func()

		for _, bl := range fn.Layout().Blocks() {
			tr.Printw("block", "name", fn.Layout().Name(bl), "insts", fn.Layout().Insts(bl))
		}
	}

	return fid, nil
}

func (c *Front) compileType(t ast.Type) (tp.Type, error) {
	switch t.Name {
	case "int":
		return tp.Int32{}, nil
	case "void":
		return tp.Unit{}, nil
	default:
		return nil, unsupported(t, "type %v", t.Name)
	}
}

func (c *Front) compileBlock(ctx context.Context, par *Scope, b *ast.Block) (err error) {
	s := par.sub()

	for _, x := range b.Items {
		if s.done {
			tlog.SpanFromContext(ctx).V("front").Printw("dropped unreachable", "pos", x.Span().Pos)
			break
		}

		err = c.compileStmt(ctx, s, x)
		if err != nil {
			return err
		}
	}

	return nil
}

func (c *Front) compileStmt(ctx context.Context, s *Scope, x ast.Node) (err error) {
	switch x := x.(type) {
	case ast.ConstDecl:
		for _, d := range x.Defs {
			if d.Init == nil {
				return errAt(d, ErrNotConstant, "%v has no value", d.Name.Name)
			}

			v, err := c.constExpr(ctx, s, d.Init)
			if err != nil {
				return errors.Wrap(err, "const %v", d.Name.Name)
			}

			err = s.define(d.Name, definition{konst: true, val: v})
			if err != nil {
				return err
			}
		}
	case ast.VarDecl:
		for _, d := range x.Defs {
			ptr, err := s.Alloc(tp.Int32{})
			if err == nil {
				err = s.Append(s.cur, ptr)
			}
			if err != nil {
				return errors.Wrap(err, "alloc %v", d.Name.Name)
			}

			if d.Init != nil {
				v, err := c.compileExpr(ctx, s, d.Init)
				if err != nil {
					return errors.Wrap(err, "init %v", d.Name.Name)
				}

				err = s.emit(s.Store(v, ptr))
				if err != nil {
					return errors.Wrap(err, "init %v", d.Name.Name)
				}
			}

			err = s.define(d.Name, definition{ptr: ptr})
			if err != nil {
				return err
			}
		}
	case ast.Assign:
		def, err := s.lookup(x.LVal)
		if err != nil {
			return err
		}

		if def.konst {
			return errAt(x.LVal, ErrAssignConst, "%v", x.LVal.Name)
		}

		v, err := c.compileExpr(ctx, s, x.Value)
		if err != nil {
			return errors.Wrap(err, "assign %v", x.LVal.Name)
		}

		err = s.emit(s.Store(v, def.ptr))
		if err != nil {
			return errors.Wrap(err, "assign %v", x.LVal.Name)
		}
	case ast.ExprStmt:
		if x.X == nil {
			return nil
		}

		_, err = c.compileExpr(ctx, s, x.X)
		if err != nil {
			return err
		}
	case ast.Return:
		v := ir.Nil

		if x.Value != nil {
			v, err = c.compileExpr(ctx, s, x.Value)
			if err != nil {
				return errors.Wrap(err, "return value")
			}
		}

		r, err := s.Return(v)
		if err != nil {
			return errAt(x, err, "return")
		}

		err = s.Append(s.cur, r)
		if err != nil {
			return errors.Wrap(err, "return")
		}

		s.done = true
	case *ast.Block:
		return c.compileBlock(ctx, s, x)
	default:
		return unsupported(x, "statement %T", x)
	}

	return nil
}

// compileExpr emits instructions computing e into the current block
// bottom-up, left operand first.
func (c *Front) compileExpr(ctx context.Context, s *Scope, e ast.Expr) (v ir.Value, err error) {
	switch e := e.(type) {
	case ast.Int:
		return s.Const(e.Value), nil
	case ast.Ident:
		def, err := s.lookup(e)
		if err != nil {
			return ir.Nil, err
		}

		if def.konst {
			return s.Const(def.val), nil
		}

		v, err = s.Load(def.ptr)
		if err == nil {
			err = s.Append(s.cur, v)
		}
		if err != nil {
			return ir.Nil, errors.Wrap(err, "load %v", e.Name)
		}

		return v, nil
	case ast.Unary:
		x, err := c.compileExpr(ctx, s, e.X)
		if err != nil {
			return ir.Nil, err
		}

		seq, err := lower.Unary(e.Op, tp.Int32{})
		if err != nil {
			return ir.Nil, unsupported(e, "operator %v", e.Op)
		}

		return s.build(seq, x)
	case ast.Binary:
		l, err := c.compileExpr(ctx, s, e.Left)
		if err != nil {
			return ir.Nil, err
		}

		r, err := c.compileExpr(ctx, s, e.Right)
		if err != nil {
			return ir.Nil, err
		}

		seq, err := lower.Binary(e.Op, tp.Int32{}, tp.Int32{})
		if err != nil {
			return ir.Nil, unsupported(e, "operator %v", e.Op)
		}

		return s.build(seq, l, r)
	default:
		return ir.Nil, unsupported(e, "expression %T", e)
	}
}

// constExpr folds e with the same rewriting rules the code uses.
func (c *Front) constExpr(ctx context.Context, s *Scope, e ast.Expr) (v int32, err error) {
	switch e := e.(type) {
	case ast.Int:
		return e.Value, nil
	case ast.Ident:
		def, err := s.lookup(e)
		if err != nil {
			return 0, err
		}

		if !def.konst {
			return 0, errAt(e, ErrNotConstant, "%v", e.Name)
		}

		return def.val, nil
	case ast.Unary:
		x, err := c.constExpr(ctx, s, e.X)
		if err != nil {
			return 0, err
		}

		seq, err := lower.Unary(e.Op, tp.Int32{})
		if err != nil {
			return 0, unsupported(e, "operator %v", e.Op)
		}

		return lower.Eval(seq, x)
	case ast.Binary:
		l, err := c.constExpr(ctx, s, e.Left)
		if err != nil {
			return 0, err
		}

		r, err := c.constExpr(ctx, s, e.Right)
		if err != nil {
			return 0, err
		}

		seq, err := lower.Binary(e.Op, tp.Int32{}, tp.Int32{})
		if err != nil {
			return 0, unsupported(e, "operator %v", e.Op)
		}

		return lower.Eval(seq, l, r)
	default:
		return 0, unsupported(e, "constant expression %T", e)
	}
}

func (s *Scope) build(seq lower.Seq, args ...ir.Value) (ir.Value, error) {
	insts, res, err := lower.Build(s.Builder, seq, args...)
	if err != nil {
		return ir.Nil, err
	}

	for _, v := range insts {
		err = s.Append(s.cur, v)
		if err != nil {
			return ir.Nil, err
		}
	}

	return res, nil
}

// emit appends just built instruction to the current block.
func (s *Scope) emit(v ir.Value, err error) error {
	if err != nil {
		return err
	}

	return s.Append(s.cur, v)
}

func (s *Scope) sub() *Scope {
	return &Scope{
		pkgContext: s.pkgContext,
		funContext: s.funContext,
		par:        s,
		defs:       make(map[string]definition),
		depth:      s.depth + 1,
	}
}

func (s *Scope) define(name ast.Ident, def definition) error {
	if _, ok := s.defs[name.Name]; ok {
		return errAt(name, ErrRedefined, "%v", name.Name)
	}

	tlog.V("vars,define").Printw("define", "name", name.Name, "const", def.konst, "val", def.val, "ptr", def.ptr, "depth", s.depth, "from", loc.Caller(1))

	s.defs[name.Name] = def

	return nil
}

func (s *Scope) lookup(name ast.Ident) (definition, error) {
	for q := s; q != nil; q = q.par {
		if def, ok := q.defs[name.Name]; ok {
			return def, nil
		}
	}

	return definition{}, errAt(name, ErrUndefined, "%v", name.Name)
}
