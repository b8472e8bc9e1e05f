// Package riscv models the RV32IM subset the backend emits.
package riscv

import (
	"fmt"

	"github.com/slowlang/sysyc/compiler/asm"
)

type (
	// Reg is an integer register x0..x31.
	Reg int

	// Op is a register-register operation.
	Op int

	Li struct {
		Out [1]Reg
		Imm int32
	}

	Lw struct {
		Out  [1]Reg
		Base Reg
		Off  int32
	}

	Sw struct {
		In   [1]Reg
		Base Reg
		Off  int32
	}

	Addi struct {
		Out [1]Reg
		In  [1]Reg
		Imm int32
	}

	R struct {
		Op  Op
		Out [1]Reg
		In  [2]Reg
	}

	Seqz struct {
		Out [1]Reg
		In  [1]Reg
	}

	Snez struct {
		Out [1]Reg
		In  [1]Reg
	}

	Mv struct {
		Out [1]Reg
		In  [1]Reg
	}

	J struct {
		Label asm.Label
	}

	Bnez struct {
		In    [1]Reg
		Label asm.Label
	}

	Beqz struct {
		In    [1]Reg
		Label asm.Label
	}

	Ret struct{}
)

const (
	Zero Reg = iota
	RA
	SP
	GP
	TP
	T0
	T1
	T2
	S0
	S1
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	T3
	T4
	T5
	T6

	NumRegs
)

const (
	Add Op = iota
	Sub
	Mul
	Div
	Rem
	Slt
	Sgt
	Xor
	And
	Or

	numOps
)

// Immediate range of I and S formats.
const (
	MinImm12 = -1 << 11
	MaxImm12 = 1<<11 - 1
)

var regNames = [NumRegs]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

var opNames = [numOps]string{
	Add: "add",
	Sub: "sub",
	Mul: "mul",
	Div: "div",
	Rem: "rem",
	Slt: "slt",
	Sgt: "sgt",
	Xor: "xor",
	And: "and",
	Or:  "or",
}

var regByName = func() map[string]Reg {
	m := make(map[string]Reg, 2*NumRegs+1)

	for r, n := range regNames {
		m[n] = Reg(r)
		m[fmt.Sprintf("x%d", r)] = Reg(r)
	}

	m["fp"] = S0

	return m
}()

var opByName = func() map[string]Op {
	m := make(map[string]Op, numOps)

	for op, n := range opNames {
		m[n] = Op(op)
	}

	return m
}()

// FitsImm12 reports whether x can be an immediate of addi, lw or sw.
func FitsImm12(x int32) bool {
	return x >= MinImm12 && x <= MaxImm12
}

// RegByName accepts ABI names, x0..x31 and fp.
func RegByName(s string) (Reg, bool) {
	r, ok := regByName[s]
	return r, ok
}

func OpByName(s string) (Op, bool) {
	op, ok := opByName[s]
	return op, ok
}

func (r Reg) String() string {
	if r < 0 || r >= NumRegs {
		return fmt.Sprintf("x?%d", int(r))
	}

	return regNames[r]
}

func (op Op) String() string {
	if op < 0 || op >= numOps {
		return fmt.Sprintf("op?%d", int(op))
	}

	return opNames[op]
}
