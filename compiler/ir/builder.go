package ir

import (
	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/sysyc/compiler/tp"
)

// Builder constructs instructions of one registered function.
// New values go to the function pool, placing them into blocks
// is a separate Layout step.
type Builder struct {
	p  *Program
	fn *Function
}

var errDetached = errors.New("builder is not attached to a program")

func (b *Builder) Func() *Function { return b.fn }

func (b *Builder) Program() *Program { return b.p }

func (b *Builder) Const(x int32) Value {
	if b.fn == nil {
		return Nil
	}

	return b.fn.pool.Const(x)
}

func (b *Builder) Param(i int) (Value, error) {
	if b.fn == nil {
		return Nil, errDetached
	}

	if i < 0 || i >= len(b.fn.params) {
		return Nil, errors.Wrap(ErrUnresolvedOperand, "param %d of %v", i, b.fn.sig.Name)
	}

	return b.fn.params[i], nil
}

func (b *Builder) Binary(op BinaryOp, l, r Value) (_ Value, err error) {
	if !op.Valid() {
		return Nil, errors.New("unsupported binary op: %v", op)
	}

	for _, v := range []Value{l, r} {
		err = b.expect(v, tp.Int32{})
		if err != nil {
			return Nil, errors.Wrap(err, "%v operand", op)
		}
	}

	return b.fn.pool.alloc(tp.Int32{}, Binary{Op: op, L: l, R: r}), nil
}

// Return builds ret instruction. v may be Nil for unit functions.
func (b *Builder) Return(v Value) (_ Value, err error) {
	if b.fn == nil {
		return Nil, errDetached
	}

	ret := b.fn.sig.Ret

	if v.IsNil() {
		if !tp.Equal(ret, tp.Unit{}) {
			return Nil, b.fail(errors.Wrap(ErrTypeMismatch, "empty return in %v returning %v", b.fn.sig.Name, ret))
		}
	} else {
		err = b.expect(v, ret)
		if err != nil {
			return Nil, errors.Wrap(err, "return value")
		}
	}

	return b.fn.pool.alloc(tp.Unit{}, Return{Value: v}), nil
}

func (b *Builder) Branch(cond Value, then, els Block) (_ Value, err error) {
	err = b.expect(cond, tp.Int32{})
	if err != nil {
		return Nil, errors.Wrap(err, "branch condition")
	}

	for _, bl := range []Block{then, els} {
		if !b.fn.layout.Owns(bl) {
			return Nil, b.fail(errors.Wrap(ErrInvalidBlockReference, "block %v in func %v", bl, b.fn.sig.Name))
		}
	}

	return b.fn.pool.alloc(tp.Unit{}, Branch{Cond: cond, Then: then, Else: els}), nil
}

func (b *Builder) Jump(target Block) (Value, error) {
	if b.fn == nil {
		return Nil, errDetached
	}

	if !b.fn.layout.Owns(target) {
		return Nil, b.fail(errors.Wrap(ErrInvalidBlockReference, "block %v in func %v", target, b.fn.sig.Name))
	}

	return b.fn.pool.alloc(tp.Unit{}, Jump{Target: target}), nil
}

// Alloc reserves a stack variable of type t. The result is a pointer to it.
func (b *Builder) Alloc(t tp.Type) (Value, error) {
	if b.fn == nil {
		return Nil, errDetached
	}

	return b.fn.pool.alloc(tp.Ptr{X: t}, Alloc{}), nil
}

func (b *Builder) Load(src Value) (Value, error) {
	d, err := b.resolve(src)
	if err != nil {
		return Nil, errors.Wrap(err, "load source")
	}

	ptr, ok := d.Type.(tp.Ptr)
	if !ok {
		return Nil, b.fail(errors.Wrap(ErrTypeMismatch, "load from %v", d.Type))
	}

	return b.fn.pool.alloc(ptr.X, Load{Src: src}), nil
}

func (b *Builder) Store(v, dst Value) (Value, error) {
	dd, err := b.resolve(dst)
	if err != nil {
		return Nil, errors.Wrap(err, "store destination")
	}

	ptr, ok := dd.Type.(tp.Ptr)
	if !ok {
		return Nil, b.fail(errors.Wrap(ErrTypeMismatch, "store to %v", dd.Type))
	}

	err = b.expect(v, ptr.X)
	if err != nil {
		return Nil, errors.Wrap(err, "store value")
	}

	return b.fn.pool.alloc(tp.Unit{}, Store{Value: v, Dst: dst}), nil
}

// PushBlock and Append are shortcuts to the function Layout.
func (b *Builder) PushBlock(name string) Block {
	if b.fn == nil {
		return Block{}
	}

	return b.fn.layout.PushBlock(name)
}

func (b *Builder) Append(bl Block, v Value) error {
	if b.fn == nil {
		return errDetached
	}

	err := b.fn.layout.Append(bl, v)
	if err != nil {
		return b.fail(err)
	}

	return nil
}

func (b *Builder) resolve(v Value) (ValueData, error) {
	if b.p == nil || b.fn == nil {
		return ValueData{}, errDetached
	}

	d, err := b.p.Resolve(b.fn.id, v)
	if err != nil {
		return ValueData{}, b.fail(err)
	}

	return d, nil
}

func (b *Builder) expect(v Value, t tp.Type) error {
	d, err := b.resolve(v)
	if err != nil {
		return err
	}

	if !tp.Equal(d.Type, t) {
		return b.fail(errors.Wrap(ErrTypeMismatch, "%v has type %v, want %v", v, d.Type, t))
	}

	return nil
}

func (b *Builder) fail(err error) error {
	tlog.V("ir_build").Printw("build failed", "func", b.fn.sig.Name, "err", err, "from", loc.Caller(2))

	return err
}
