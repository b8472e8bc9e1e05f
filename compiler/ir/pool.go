package ir

import (
	"tlog.app/go/errors"

	"github.com/slowlang/sysyc/compiler/tp"
)

// Pool owns value data of one scope.
// Pools are created by Program only: a zero Pool belongs to no scope
// and its values never resolve.
type Pool struct {
	scope Func
	data  []ValueData
}

func (p *Pool) Scope() Func { return p.scope }

func (p *Pool) Len() int { return len(p.data) }

func (p *Pool) Const(x int32) Value {
	return p.alloc(tp.Int32{}, Integer{Value: x})
}

func (p *Pool) Undef(t tp.Type) Value {
	return p.alloc(t, Undef{})
}

// Value returns data of v if v belongs to this pool.
func (p *Pool) Value(v Value) (ValueData, bool) {
	if v.Scope != p.scope || v.ID <= 0 || int(v.ID) > len(p.data) || p.scope == 0 {
		return ValueData{}, false
	}

	return p.data[v.ID-1], true
}

// Values returns handles of all the values in creation order.
func (p *Pool) Values() []Value {
	l := make([]Value, len(p.data))

	for i := range p.data {
		l[i] = Value{Scope: p.scope, ID: int32(i + 1)}
	}

	return l
}

func (p *Pool) alloc(t tp.Type, k Kind) Value {
	p.data = append(p.data, ValueData{Type: t, Kind: k})

	return Value{Scope: p.scope, ID: int32(len(p.data))}
}

// define replaces an Undef placeholder keeping its type.
func (p *Pool) define(v Value, k Kind) error {
	d, ok := p.Value(v)
	if !ok {
		return errors.Wrap(ErrUnresolvedOperand, "define %v", v)
	}

	if _, ok := d.Kind.(Undef); !ok {
		return errors.Wrap(ErrNotUndef, "define %v", v)
	}

	p.data[v.ID-1].Kind = k

	return nil
}
