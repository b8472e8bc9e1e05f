// Package asm holds target independent assembly containers.
// Instructions are target specific and live in subpackages.
package asm

type (
	// Label defines a jump target at its place in a body.
	Label string

	Comment string

	// Directive is an assembler directive like .text or .globl main.
	Directive struct {
		Name string
		Args []string
	}

	Func struct {
		Name string
		Body []Instr
	}

	Instr any
)

func (f *Func) Add(x ...Instr) {
	f.Body = append(f.Body, x...)
}
