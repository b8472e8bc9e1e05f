package back

import "github.com/slowlang/sysyc/compiler/asm/riscv"

// Target describes machine parameters code generation depends on.
type Target struct {
	WordSize   int
	StackAlign int

	// Scratch registers: two operands and an address temporary.
	Scratch [3]riscv.Reg

	Ret   riscv.Reg
	Stack riscv.Reg

	// Args are registers parameters arrive in.
	Args []riscv.Reg
}

func RV32() Target {
	return Target{
		WordSize:   4,
		StackAlign: 16,
		Scratch:    [3]riscv.Reg{riscv.T0, riscv.T1, riscv.T2},
		Ret:        riscv.A0,
		Stack:      riscv.SP,
		Args:       []riscv.Reg{riscv.A0, riscv.A1, riscv.A2, riscv.A3, riscv.A4, riscv.A5, riscv.A6, riscv.A7},
	}
}
