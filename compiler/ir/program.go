package ir

import (
	"tlog.app/go/errors"

	"github.com/slowlang/sysyc/compiler/tp"
)

type (
	// Program is the arena all functions and global values live in.
	// It's built once and then only read.
	Program struct {
		funcs   []*Function
		globals Pool
	}

	Signature struct {
		Name   string
		Params []tp.Type
		Ret    tp.Type
	}

	// Function is obtained from Program only, so it's always attached to one.
	Function struct {
		id  Func
		sig Signature

		pool   Pool
		layout Layout

		params []Value
	}
)

func New() *Program {
	return &Program{
		globals: Pool{scope: Global},
	}
}

// RegisterFunction creates a new empty function owned by p.
// Parameters get Undef placeholders which are then defined as Param values.
func (p *Program) RegisterFunction(sig Signature) Func {
	if sig.Ret == nil {
		sig.Ret = tp.Unit{}
	}

	sig.Params = append([]tp.Type{}, sig.Params...)

	id := Func(len(p.funcs) + 1)

	f := &Function{
		id:  id,
		sig: sig,
		pool: Pool{
			scope: id,
		},
	}

	f.layout = newLayout(id, &f.pool)

	for i, t := range sig.Params {
		v := f.pool.Undef(t)

		f.pool.data[v.ID-1].Kind = Param{Index: i}

		f.params = append(f.params, v)
	}

	p.funcs = append(p.funcs, f)

	return id
}

func (p *Program) Function(f Func) (*Function, error) {
	if f <= 0 || int(f) > len(p.funcs) {
		return nil, errors.Wrap(ErrUnknownFunction, "func %d", f)
	}

	return p.funcs[f-1], nil
}

// Functions returns function handles in registration order.
func (p *Program) Functions() []Func {
	r := make([]Func, len(p.funcs))

	for i := range p.funcs {
		r[i] = Func(i + 1)
	}

	return r
}

func (p *Program) Globals() *Pool {
	if p.globals.scope == 0 {
		p.globals.scope = Global
	}

	return &p.globals
}

// Resolve returns data of v as seen from function f:
// values of f's own pool first, then program globals.
// Values of other functions never resolve.
func (p *Program) Resolve(f Func, v Value) (ValueData, error) {
	if fn, err := p.Function(f); err == nil {
		if d, ok := fn.pool.Value(v); ok {
			return d, nil
		}
	}

	if d, ok := p.globals.Value(v); ok {
		return d, nil
	}

	return ValueData{}, errors.Wrap(ErrUnresolvedOperand, "value %v in func %d", v, f)
}

// Builder returns the instruction builder of registered function f.
func (p *Program) Builder(f Func) (*Builder, error) {
	fn, err := p.Function(f)
	if err != nil {
		return nil, err
	}

	return &Builder{p: p, fn: fn}, nil
}

func (f *Function) ID() Func { return f.id }

func (f *Function) Name() string { return f.sig.Name }

func (f *Function) Signature() Signature { return f.sig }

func (f *Function) Type() tp.Func {
	return tp.Func{In: f.sig.Params, Out: f.sig.Ret}
}

func (f *Function) Pool() *Pool { return &f.pool }

func (f *Function) Layout() *Layout { return &f.layout }

func (f *Function) Params() []Value { return f.params }

// Entry returns the first pushed block.
func (f *Function) Entry() (Block, error) {
	if f.layout.Len() == 0 {
		return Block{}, errors.Wrap(ErrEmptyFunction, "func %v", f.sig.Name)
	}

	return Block{Func: f.id, ID: 1}, nil
}

// Value returns data of a value of the function's own pool.
func (f *Function) Value(v Value) (ValueData, error) {
	d, ok := f.pool.Value(v)
	if !ok {
		return ValueData{}, errors.Wrap(ErrUnresolvedOperand, "value %v in func %v", v, f.sig.Name)
	}

	return d, nil
}
