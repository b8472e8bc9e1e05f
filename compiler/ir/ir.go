package ir

import (
	"fmt"

	"github.com/slowlang/sysyc/compiler/tp"
)

type (
	// Func is a function handle. Functions are numbered from 1 in registration order.
	Func int32

	// Value is a handle into either a function pool (Scope is the function)
	// or the program global pool (Scope is Global).
	// The zero Value is Nil and never resolves.
	Value struct {
		Scope Func
		ID    int32
	}

	// Block is a basic block handle. It is valid only within the layout of Func.
	Block struct {
		Func Func
		ID   int32
	}

	ValueData struct {
		Type tp.Type
		Kind Kind
	}

	Kind interface {
		In() []Value
	}

	BinaryOp int

	Integer struct {
		Value int32
	}

	Param struct {
		Index int
	}

	// Undef is a typed placeholder defined later.
	Undef struct{}

	Binary struct {
		Op   BinaryOp
		L, R Value
	}

	Branch struct {
		Cond       Value
		Then, Else Block
	}

	Jump struct {
		Target Block
	}

	Return struct {
		Value Value
	}

	Alloc struct{}

	Load struct {
		Src Value
	}

	Store struct {
		Value Value
		Dst   Value
	}
)

const Global Func = -1

var Nil Value

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Mod
	Lt
	Gt
	Eq
	NotEq
	And
	Or
	Xor

	numBinaryOps
)

var binaryOpNames = [...]string{
	Add:   "add",
	Sub:   "sub",
	Mul:   "mul",
	Div:   "div",
	Mod:   "mod",
	Lt:    "lt",
	Gt:    "gt",
	Eq:    "eq",
	NotEq: "ne",
	And:   "and",
	Or:    "or",
	Xor:   "xor",
}

func (x Integer) In() []Value { return nil }
func (x Param) In() []Value   { return nil }
func (x Undef) In() []Value   { return nil }
func (x Alloc) In() []Value   { return nil }
func (x Jump) In() []Value    { return nil }

func (x Binary) In() []Value { return []Value{x.L, x.R} }
func (x Branch) In() []Value { return []Value{x.Cond} }
func (x Load) In() []Value   { return []Value{x.Src} }
func (x Store) In() []Value  { return []Value{x.Value, x.Dst} }

func (x Return) In() []Value {
	if x.Value.IsNil() {
		return nil
	}

	return []Value{x.Value}
}

func (v Value) IsNil() bool { return v == Nil }

func (v Value) IsGlobal() bool { return v.Scope == Global && v.ID > 0 }

func (v Value) String() string {
	switch {
	case v.IsNil():
		return "nil"
	case v.Scope == Global:
		return fmt.Sprintf("@g%d", v.ID)
	default:
		return fmt.Sprintf("f%d:%d", v.Scope, v.ID)
	}
}

func (b Block) IsNil() bool { return b == Block{} }

func (b Block) String() string { return fmt.Sprintf("f%d:bb%d", b.Func, b.ID) }

func (op BinaryOp) Valid() bool { return op >= 0 && op < numBinaryOps }

func (op BinaryOp) String() string {
	if !op.Valid() {
		return fmt.Sprintf("BinaryOp(%d)", int(op))
	}

	return binaryOpNames[op]
}

// IsInst reports whether k is an instruction payload, as opposed to a
// constant, parameter or placeholder.
func IsInst(k Kind) bool {
	switch k.(type) {
	case Binary, Branch, Jump, Return, Alloc, Load, Store:
		return true
	default:
		return false
	}
}

// HasResult reports whether the instruction produces a value other code can refer to.
func HasResult(k Kind) bool {
	switch k.(type) {
	case Binary, Alloc, Load:
		return true
	default:
		return false
	}
}

func IsTerminator(k Kind) bool {
	switch k.(type) {
	case Branch, Jump, Return:
		return true
	default:
		return false
	}
}
