package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/sysyc/compiler/tp"
)

func newFunc(t *testing.T, p *Program, name string, ret tp.Type) *Builder {
	t.Helper()

	f := p.RegisterFunction(Signature{Name: name, Ret: ret})

	b, err := p.Builder(f)
	require.NoError(t, err)

	return b
}

func TestBuildReturn(t *testing.T) {
	p := New()
	b := newFunc(t, p, "main", tp.Int32{})

	_, err := b.Func().Entry()
	require.ErrorIs(t, err, ErrEmptyFunction)

	entry := b.PushBlock("%entry")

	e, err := b.Func().Entry()
	require.NoError(t, err)
	assert.Equal(t, entry, e)

	one := b.Const(1)
	two := b.Const(2)

	sum, err := b.Binary(Add, one, two)
	require.NoError(t, err)

	ret, err := b.Return(sum)
	require.NoError(t, err)

	// building does not place anything
	assert.Empty(t, b.Func().Layout().Insts(entry))

	require.NoError(t, b.Append(entry, sum))
	require.NoError(t, b.Append(entry, ret))

	assert.Equal(t, []Value{sum, ret}, b.Func().Layout().Insts(entry))
	assert.True(t, b.Func().Layout().Terminated(entry))

	d, err := p.Resolve(b.Func().ID(), sum)
	require.NoError(t, err)
	assert.Equal(t, tp.Int32{}, d.Type)
	assert.Equal(t, Binary{Op: Add, L: one, R: two}, d.Kind)

	d, err = p.Resolve(b.Func().ID(), ret)
	require.NoError(t, err)
	assert.Equal(t, tp.Unit{}, d.Type)
}

func TestReturnTypeMismatch(t *testing.T) {
	p := New()

	b := newFunc(t, p, "f", tp.Int32{})

	_, err := b.Return(Nil)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	u := newFunc(t, p, "g", tp.Unit{})

	_, err = u.Return(u.Const(1))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = u.Return(Nil)
	assert.NoError(t, err)

	// nil return type means unit
	v := newFunc(t, p, "h", nil)

	_, err = v.Return(Nil)
	assert.NoError(t, err)
}

func TestCrossFunctionOperand(t *testing.T) {
	p := New()

	a := newFunc(t, p, "a", tp.Int32{})
	b := newFunc(t, p, "b", tp.Int32{})

	x := a.Const(1)
	y := b.Const(2)

	// both functions have a value with the same index
	require.Equal(t, x.ID, y.ID)

	_, err := b.Binary(Add, x, y)
	assert.ErrorIs(t, err, ErrUnresolvedOperand)

	_, err = b.Return(x)
	assert.ErrorIs(t, err, ErrUnresolvedOperand)

	_, err = p.Resolve(b.Func().ID(), x)
	assert.ErrorIs(t, err, ErrUnresolvedOperand)

	_, err = b.Binary(Add, Nil, y)
	assert.ErrorIs(t, err, ErrUnresolvedOperand)

	// global values resolve everywhere
	g := p.Globals().Const(10)

	s, err := b.Binary(Sub, g, y)
	require.NoError(t, err)

	_, err = a.Binary(Sub, g, x)
	require.NoError(t, err)

	d, err := p.Resolve(b.Func().ID(), g)
	require.NoError(t, err)
	assert.Equal(t, Integer{Value: 10}, d.Kind)

	// instruction built against b can't be placed in a
	ab := a.PushBlock("%entry")

	err = a.Append(ab, s)
	assert.ErrorIs(t, err, ErrInstructionNotOwned)
}

func TestCrossFunctionBlock(t *testing.T) {
	p := New()

	a := newFunc(t, p, "a", tp.Int32{})
	b := newFunc(t, p, "b", tp.Int32{})

	ab := a.PushBlock("")
	bb := b.PushBlock("")

	_, err := a.Jump(bb)
	assert.ErrorIs(t, err, ErrInvalidBlockReference)

	_, err = a.Branch(a.Const(1), ab, bb)
	assert.ErrorIs(t, err, ErrInvalidBlockReference)

	_, err = a.Branch(a.Const(1), Block{}, ab)
	assert.ErrorIs(t, err, ErrInvalidBlockReference)

	j, err := a.Jump(ab)
	require.NoError(t, err)

	err = a.Append(bb, j)
	assert.ErrorIs(t, err, ErrInvalidBlockReference)

	br, err := a.Branch(a.Const(1), ab, ab)
	require.NoError(t, err)

	require.NoError(t, a.Append(ab, br))

	err = a.Append(ab, j)
	assert.ErrorIs(t, err, ErrBlockTerminated)
}

func TestAppendRules(t *testing.T) {
	p := New()
	b := newFunc(t, p, "main", tp.Int32{})
	entry := b.PushBlock("%entry")
	next := b.PushBlock("%entry")

	assert.Equal(t, "%entry", b.Func().Layout().Name(entry))
	assert.Equal(t, "%entry_1", b.Func().Layout().Name(next))
	assert.Equal(t, 1, b.Func().Layout().Index(next))

	c := b.Const(3)

	err := b.Append(entry, c)
	assert.ErrorIs(t, err, ErrInstructionNotOwned, "constants are not instructions")

	x, err := b.Binary(Mul, c, c)
	require.NoError(t, err)

	require.NoError(t, b.Append(entry, x))

	err = b.Append(entry, x)
	assert.ErrorIs(t, err, ErrDuplicateInstruction)

	err = b.Append(next, x)
	assert.ErrorIs(t, err, ErrDuplicateInstruction)

	assert.True(t, b.Func().Layout().Placed(x))
}

func TestBuildOperandTypes(t *testing.T) {
	p := New()
	b := newFunc(t, p, "main", tp.Int32{})

	ptr, err := b.Alloc(tp.Int32{})
	require.NoError(t, err)

	_, err = b.Binary(Add, ptr, b.Const(1))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	st, err := b.Store(b.Const(5), ptr)
	require.NoError(t, err)

	_, err = b.Binary(Add, st, b.Const(1))
	assert.ErrorIs(t, err, ErrTypeMismatch, "store has no value")

	_, err = b.Store(ptr, ptr)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = b.Load(b.Const(1))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	ld, err := b.Load(ptr)
	require.NoError(t, err)

	d, err := b.Func().Value(ld)
	require.NoError(t, err)
	assert.Equal(t, tp.Int32{}, d.Type)

	_, err = b.Branch(ptr, b.PushBlock(""), b.PushBlock(""))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = b.Binary(BinaryOp(100), ld, ld)
	assert.Error(t, err)
}

func TestParams(t *testing.T) {
	p := New()
	f := p.RegisterFunction(Signature{Name: "f", Params: []tp.Type{tp.Int32{}, tp.Int32{}}, Ret: tp.Int32{}})

	b, err := p.Builder(f)
	require.NoError(t, err)

	x, err := b.Param(1)
	require.NoError(t, err)

	d, err := b.Func().Value(x)
	require.NoError(t, err)
	assert.Equal(t, Param{Index: 1}, d.Kind)
	assert.Equal(t, tp.Func{In: []tp.Type{tp.Int32{}, tp.Int32{}}, Out: tp.Int32{}}, b.Func().Type())

	_, err = b.Param(2)
	assert.ErrorIs(t, err, ErrUnresolvedOperand)

	err = b.Func().Pool().define(x, Param{Index: 5})
	assert.ErrorIs(t, err, ErrNotUndef)

	u := b.Func().Pool().Undef(tp.Int32{})
	require.NoError(t, b.Func().Pool().define(u, Integer{Value: 7}))
}

func TestDetached(t *testing.T) {
	var b Builder

	assert.Equal(t, Nil, b.Const(1))

	_, err := b.Binary(Add, Nil, Nil)
	assert.Error(t, err)

	_, err = b.Return(Nil)
	assert.Error(t, err)

	_, err = b.Jump(Block{})
	assert.Error(t, err)

	assert.Error(t, b.Append(Block{}, Nil))

	var pool Pool
	v := pool.Const(1)

	p := New()
	_, err = p.Resolve(p.RegisterFunction(Signature{Name: "f"}), v)
	assert.ErrorIs(t, err, ErrUnresolvedOperand)

	var l Layout
	bl := l.PushBlock("x")
	assert.False(t, l.Owns(bl))
	assert.ErrorIs(t, l.Append(bl, v), ErrInvalidBlockReference)

	_, err = p.Builder(Func(10))
	assert.ErrorIs(t, err, ErrUnknownFunction)

	_, err = p.Function(0)
	assert.ErrorIs(t, err, ErrUnknownFunction)
}

func TestFunctionsOrder(t *testing.T) {
	p := New()

	a := p.RegisterFunction(Signature{Name: "a"})
	b := p.RegisterFunction(Signature{Name: "b"})

	assert.Equal(t, []Func{a, b}, p.Functions())

	fb, err := p.Function(b)
	require.NoError(t, err)
	assert.Equal(t, "b", fb.Name())
}
