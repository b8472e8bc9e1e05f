package format

import (
	"context"
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/sysyc/compiler/ir"
	"github.com/slowlang/sysyc/compiler/tp"
)

type irFunc struct {
	*ir.Function

	p     *ir.Program
	names map[ir.Value]string
}

// Program appends the textual IR of p to b.
//
//	fun @main(): i32 {
//	%entry:
//	  %0 = add 1, 2
//	  ret %0
//	}
func Program(ctx context.Context, b []byte, p *ir.Program) (_ []byte, err error) {
	for i, id := range p.Functions() {
		fn, err := p.Function(id)
		if err != nil {
			return nil, err
		}

		if i != 0 {
			b = append(b, '\n')
		}

		b, err = Function(ctx, b, p, fn)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", fn.Name())
		}
	}

	return b, nil
}

func Function(ctx context.Context, b []byte, p *ir.Program, fn *ir.Function) (_ []byte, err error) {
	f := &irFunc{
		Function: fn,
		p:        p,
		names:    make(map[ir.Value]string),
	}

	b = hfmt.Appendf(b, "fun @%s(", fn.Name())

	for i, v := range fn.Params() {
		if i != 0 {
			b = append(b, ", "...)
		}

		name := "@p" + strconv.Itoa(i)
		f.names[v] = name

		b = hfmt.Appendf(b, "%s: %v", name, fn.Signature().Params[i])
	}

	b = append(b, ')')

	if ret := fn.Signature().Ret; !tp.Equal(ret, tp.Unit{}) {
		b = hfmt.Appendf(b, ": %v", ret)
	}

	b = append(b, " {\n"...)

	l := fn.Layout()
	n := 0

	for _, bl := range l.Blocks() {
		for _, v := range l.Insts(bl) {
			d, err := fn.Value(v)
			if err != nil {
				return nil, err
			}

			if ir.HasResult(d.Kind) {
				f.names[v] = "%" + strconv.Itoa(n)
				n++
			}
		}
	}

	for _, bl := range l.Blocks() {
		b = hfmt.Appendf(b, "%s:\n", l.Name(bl))

		for _, v := range l.Insts(bl) {
			b, err = f.inst(b, v)
			if err != nil {
				return nil, errors.Wrap(err, "block %v", l.Name(bl))
			}
		}
	}

	b = append(b, "}\n"...)

	return b, nil
}

func (f *irFunc) inst(b []byte, v ir.Value) (_ []byte, err error) {
	d, err := f.Value(v)
	if err != nil {
		return nil, err
	}

	b = append(b, "  "...)

	if name, ok := f.names[v]; ok {
		b = hfmt.Appendf(b, "%s = ", name)
	}

	var args []ir.Value
	var blocks []ir.Block

	switch k := d.Kind.(type) {
	case ir.Binary:
		b = append(b, k.Op.String()...)
		args = []ir.Value{k.L, k.R}
	case ir.Alloc:
		elem := d.Type.(tp.Ptr).X
		b = hfmt.Appendf(b, "alloc %v", elem)
	case ir.Load:
		b = append(b, "load"...)
		args = []ir.Value{k.Src}
	case ir.Store:
		b = append(b, "store"...)
		args = []ir.Value{k.Value, k.Dst}
	case ir.Return:
		b = append(b, "ret"...)
		args = k.In()
	case ir.Branch:
		b = append(b, "br"...)
		args = []ir.Value{k.Cond}
		blocks = []ir.Block{k.Then, k.Else}
	case ir.Jump:
		b = append(b, "jump"...)
		blocks = []ir.Block{k.Target}
	default:
		return nil, errors.New("unsupported instruction: %T", k)
	}

	sep := " "

	for _, a := range args {
		b = append(b, sep...)
		sep = ", "

		b, err = f.operand(b, a)
		if err != nil {
			return nil, err
		}
	}

	for _, bl := range blocks {
		name := f.Layout().Name(bl)
		if name == "" {
			return nil, errors.Wrap(ir.ErrInvalidBlockReference, "%v", bl)
		}

		b = append(b, sep...)
		sep = ", "

		b = append(b, name...)
	}

	return append(b, '\n'), nil
}

func (f *irFunc) operand(b []byte, v ir.Value) ([]byte, error) {
	if name, ok := f.names[v]; ok {
		return append(b, name...), nil
	}

	d, err := f.p.Resolve(f.ID(), v)
	if err != nil {
		return nil, err
	}

	switch k := d.Kind.(type) {
	case ir.Integer:
		return hfmt.Appendf(b, "%d", k.Value), nil
	case ir.Undef:
		return append(b, "undef"...), nil
	default:
		return nil, errors.New("operand %v is not placed: %T", v, k)
	}
}
