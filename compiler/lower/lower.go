// Package lower holds the rewriting rules from source operators
// to sequences of IR binary instructions.
//
// The target IR has no boolean type and no <=, >=, ==, != or logical operators.
// Those are expressed with lt, xor, sub, the zero tests eq/ne against 0, and bitwise and/or.
// Both operands of && and || are always evaluated.
package lower

import (
	"math"

	"tlog.app/go/errors"

	"github.com/slowlang/sysyc/compiler/ir"
	"github.com/slowlang/sysyc/compiler/tp"
)

type (
	Source int

	// Operand is an input of a Step: a sequence argument, a result of an earlier step or an immediate.
	Operand struct {
		Src Source
		N   int32
	}

	Step struct {
		Op   ir.BinaryOp
		L, R Operand
	}

	// Seq is a rewriting of one operator. The result is the last step, or the first argument if there are no steps.
	Seq struct {
		Args  int
		Steps []Step
	}

	Builder interface {
		Const(x int32) ir.Value
		Binary(op ir.BinaryOp, l, r ir.Value) (ir.Value, error)
	}
)

const (
	FromArg Source = iota
	FromStep
	FromImm
)

var ErrUnknownOperator = errors.New("unknown operator")

func A(i int) Operand     { return Operand{Src: FromArg, N: int32(i)} }
func S(i int) Operand     { return Operand{Src: FromStep, N: int32(i)} }
func Imm(x int32) Operand { return Operand{Src: FromImm, N: x} }

func step(op ir.BinaryOp, l, r Operand) Step { return Step{Op: op, L: l, R: r} }

var binary = map[string]Seq{
	"+": {Args: 2, Steps: []Step{step(ir.Add, A(0), A(1))}},
	"-": {Args: 2, Steps: []Step{step(ir.Sub, A(0), A(1))}},
	"*": {Args: 2, Steps: []Step{step(ir.Mul, A(0), A(1))}},
	"/": {Args: 2, Steps: []Step{step(ir.Div, A(0), A(1))}},
	"%": {Args: 2, Steps: []Step{step(ir.Mod, A(0), A(1))}},

	"<": {Args: 2, Steps: []Step{step(ir.Lt, A(0), A(1))}},
	">": {Args: 2, Steps: []Step{step(ir.Gt, A(0), A(1))}},

	"<=": {Args: 2, Steps: []Step{
		step(ir.Lt, A(1), A(0)),
		step(ir.Xor, S(0), Imm(1)),
	}},
	">=": {Args: 2, Steps: []Step{
		step(ir.Lt, A(0), A(1)),
		step(ir.Xor, S(0), Imm(1)),
	}},

	"==": {Args: 2, Steps: []Step{
		step(ir.Sub, A(0), A(1)),
		step(ir.Eq, S(0), Imm(0)),
	}},
	"!=": {Args: 2, Steps: []Step{
		step(ir.Sub, A(0), A(1)),
		step(ir.NotEq, S(0), Imm(0)),
	}},

	"&&": {Args: 2, Steps: []Step{
		step(ir.NotEq, A(0), Imm(0)),
		step(ir.NotEq, A(1), Imm(0)),
		step(ir.And, S(0), S(1)),
	}},
	"||": {Args: 2, Steps: []Step{
		step(ir.Or, A(0), A(1)),
		step(ir.NotEq, S(0), Imm(0)),
	}},
}

var unary = map[string]Seq{
	"+": {Args: 1},
	"-": {Args: 1, Steps: []Step{step(ir.Sub, Imm(0), A(0))}},
	"!": {Args: 1, Steps: []Step{step(ir.Eq, A(0), Imm(0))}},
}

// Binary returns the rewriting of binary source operator op applied to operands of types l and r.
func Binary(op string, l, r tp.Type) (Seq, error) {
	s, ok := binary[op]
	if !ok {
		return Seq{}, errors.Wrap(ErrUnknownOperator, "binary %q", op)
	}

	if !tp.IsInt(l) || !tp.IsInt(r) {
		return Seq{}, errors.Wrap(ir.ErrTypeMismatch, "%v %s %v", l, op, r)
	}

	return s, nil
}

// Unary returns the rewriting of unary source operator op applied to an operand of type x.
func Unary(op string, x tp.Type) (Seq, error) {
	s, ok := unary[op]
	if !ok {
		return Seq{}, errors.Wrap(ErrUnknownOperator, "unary %q", op)
	}

	if !tp.IsInt(x) {
		return Seq{}, errors.Wrap(ir.ErrTypeMismatch, "%s%v", op, x)
	}

	return s, nil
}

// Build emits s with b. It returns the created instructions in order,
// and the value holding the result.
func Build(b Builder, s Seq, args ...ir.Value) (insts []ir.Value, res ir.Value, err error) {
	if len(args) != s.Args {
		return nil, ir.Nil, errors.New("%d args expected, got %d", s.Args, len(args))
	}

	get := func(o Operand) ir.Value {
		switch o.Src {
		case FromArg:
			return args[o.N]
		case FromStep:
			return insts[o.N]
		default:
			return b.Const(o.N)
		}
	}

	for i, st := range s.Steps {
		v, err := b.Binary(st.Op, get(st.L), get(st.R))
		if err != nil {
			return nil, ir.Nil, errors.Wrap(err, "step %d", i)
		}

		insts = append(insts, v)
	}

	if len(insts) == 0 {
		return nil, args[0], nil
	}

	return insts, insts[len(insts)-1], nil
}

// Eval computes s over constant arguments.
func Eval(s Seq, args ...int32) (int32, error) {
	if len(args) != s.Args {
		return 0, errors.New("%d args expected, got %d", s.Args, len(args))
	}

	res := make([]int32, 0, len(s.Steps))

	get := func(o Operand) int32 {
		switch o.Src {
		case FromArg:
			return args[o.N]
		case FromStep:
			return res[o.N]
		default:
			return o.N
		}
	}

	for _, st := range s.Steps {
		res = append(res, EvalOp(st.Op, get(st.L), get(st.R)))
	}

	if len(res) == 0 {
		return args[0], nil
	}

	return res[len(res)-1], nil
}

// EvalOp computes a single IR operation the way the target machine does:
// 32-bit wrapping arithmetic, division by zero gives -1 and remainder by zero gives the dividend.
func EvalOp(op ir.BinaryOp, l, r int32) int32 {
	switch op {
	case ir.Add:
		return l + r
	case ir.Sub:
		return l - r
	case ir.Mul:
		return l * r
	case ir.Div:
		switch {
		case r == 0:
			return -1
		case l == math.MinInt32 && r == -1:
			return l
		}

		return l / r
	case ir.Mod:
		switch {
		case r == 0:
			return l
		case l == math.MinInt32 && r == -1:
			return 0
		}

		return l % r
	case ir.Lt:
		return b2i(l < r)
	case ir.Gt:
		return b2i(l > r)
	case ir.Eq:
		return b2i(l == r)
	case ir.NotEq:
		return b2i(l != r)
	case ir.And:
		return l & r
	case ir.Or:
		return l | r
	case ir.Xor:
		return l ^ r
	default:
		panic(op)
	}
}

func b2i(x bool) int32 {
	if x {
		return 1
	}

	return 0
}
