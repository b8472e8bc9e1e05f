// Package sim executes RISC-V assembly text produced by the backend.
//
// Only the instructions the backend emits are supported.
// Memory is a flat stack the sp register starts at the top of.
package sim

import (
	"context"
	"encoding/binary"
	"math"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/sysyc/compiler/asm"
	"github.com/slowlang/sysyc/compiler/asm/riscv"
)

type Machine struct {
	Regs [riscv.NumRegs]int32
	PC   int

	Mem []byte

	// MaxSteps limits a single call. Zero means DefaultMaxSteps.
	MaxSteps int

	prog   []asm.Instr
	labels map[asm.Label]int
	globl  map[string]struct{}
}

const (
	DefaultStackSize = 1 << 20
	DefaultMaxSteps  = 10_000_000
)

// exitPC is the return address the caller of an entry function has.
const exitPC = -1

var (
	ErrUnknownLabel = errors.New("unknown label")
	ErrMemoryFault  = errors.New("memory fault")
	ErrStepLimit    = errors.New("step limit exceeded")
	ErrBadPC        = errors.New("pc out of program")
	ErrDuplicate    = errors.New("duplicate label")
)

// Run loads text and calls entry.
func Run(ctx context.Context, text []byte, entry string, args ...int32) (int32, error) {
	m, err := Load(text)
	if err != nil {
		return 0, err
	}

	return m.Call(ctx, entry, args...)
}

// Load parses text and prepares a machine with DefaultStackSize memory.
func Load(text []byte) (*Machine, error) {
	prog, err := riscv.Parse(text)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	m := &Machine{
		Mem:    make([]byte, DefaultStackSize),
		prog:   prog,
		labels: make(map[asm.Label]int),
		globl:  make(map[string]struct{}),
	}

	for i, x := range prog {
		switch x := x.(type) {
		case asm.Label:
			if _, ok := m.labels[x]; ok {
				return nil, errors.Wrap(ErrDuplicate, "%v", x)
			}

			m.labels[x] = i
		case asm.Directive:
			if x.Name == ".globl" || x.Name == ".global" {
				for _, a := range x.Args {
					m.globl[a] = struct{}{}
				}
			}
		}
	}

	return m, nil
}

// Global reports whether name is declared with .globl.
func (m *Machine) Global(name string) bool {
	_, ok := m.globl[name]
	return ok
}

// Call runs function entry with arguments in a0..a7 until it returns
// and gives the a0 value back.
func (m *Machine) Call(ctx context.Context, entry string, args ...int32) (res int32, err error) {
	pc, ok := m.labels[asm.Label(entry)]
	if !ok {
		return 0, errors.Wrap(ErrUnknownLabel, "entry %v", entry)
	}

	if len(args) > 8 {
		return 0, errors.New("too many args: %d", len(args))
	}

	m.Regs = [riscv.NumRegs]int32{}
	m.Regs[riscv.SP] = int32(len(m.Mem))
	m.Regs[riscv.RA] = exitPC

	for i, a := range args {
		m.Regs[riscv.A0+riscv.Reg(i)] = a
	}

	m.PC = pc

	limit := m.MaxSteps
	if limit == 0 {
		limit = DefaultMaxSteps
	}

	for step := 0; m.PC != exitPC; step++ {
		if step == limit {
			return 0, errors.Wrap(ErrStepLimit, "%d steps", limit)
		}

		if step&0xfff == 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			default:
			}
		}

		err = m.Step()
		if err != nil {
			return 0, errors.Wrap(err, "pc %d", m.PC)
		}
	}

	tlog.V("sim").Printw("returned", "entry", entry, "a0", m.Regs[riscv.A0], "sp", m.Regs[riscv.SP])

	return m.Regs[riscv.A0], nil
}

// Step executes one instruction.
func (m *Machine) Step() (err error) {
	if m.PC < 0 || m.PC >= len(m.prog) {
		return errors.Wrap(ErrBadPC, "pc %d", m.PC)
	}

	x := m.prog[m.PC]
	next := m.PC + 1

	if tlog.If("sim_trace") {
		tlog.Printw("step", "pc", m.PC, "instr", x)
	}

	switch x := x.(type) {
	case asm.Label, asm.Directive, asm.Comment:
	case riscv.Li:
		m.set(x.Out[0], x.Imm)
	case riscv.Lw:
		v, err := m.Read32(m.Regs[x.Base] + x.Off)
		if err != nil {
			return err
		}

		m.set(x.Out[0], v)
	case riscv.Sw:
		err = m.Write32(m.Regs[x.Base]+x.Off, m.Regs[x.In[0]])
		if err != nil {
			return err
		}
	case riscv.Addi:
		m.set(x.Out[0], m.Regs[x.In[0]]+x.Imm)
	case riscv.R:
		m.set(x.Out[0], Eval(x.Op, m.Regs[x.In[0]], m.Regs[x.In[1]]))
	case riscv.Seqz:
		m.set(x.Out[0], b2i(m.Regs[x.In[0]] == 0))
	case riscv.Snez:
		m.set(x.Out[0], b2i(m.Regs[x.In[0]] != 0))
	case riscv.Mv:
		m.set(x.Out[0], m.Regs[x.In[0]])
	case riscv.J:
		next, err = m.jump(x.Label)
	case riscv.Bnez:
		if m.Regs[x.In[0]] != 0 {
			next, err = m.jump(x.Label)
		}
	case riscv.Beqz:
		if m.Regs[x.In[0]] == 0 {
			next, err = m.jump(x.Label)
		}
	case riscv.Ret:
		next = int(m.Regs[riscv.RA])
	default:
		return errors.New("unsupported instruction %T", x)
	}

	if err != nil {
		return err
	}

	m.PC = next

	return nil
}

// Eval computes a register-register operation.
// Division by zero and overflow follow the RISC-V M extension.
func Eval(op riscv.Op, l, r int32) int32 {
	switch op {
	case riscv.Add:
		return l + r
	case riscv.Sub:
		return l - r
	case riscv.Mul:
		return l * r
	case riscv.Div:
		switch {
		case r == 0:
			return -1
		case l == math.MinInt32 && r == -1:
			return l
		}

		return l / r
	case riscv.Rem:
		switch {
		case r == 0:
			return l
		case l == math.MinInt32 && r == -1:
			return 0
		}

		return l % r
	case riscv.Slt:
		return b2i(l < r)
	case riscv.Sgt:
		return b2i(l > r)
	case riscv.Xor:
		return l ^ r
	case riscv.And:
		return l & r
	case riscv.Or:
		return l | r
	default:
		panic(op)
	}
}

func (m *Machine) Read32(addr int32) (int32, error) {
	if err := m.check(addr); err != nil {
		return 0, err
	}

	return int32(binary.LittleEndian.Uint32(m.Mem[addr:])), nil
}

func (m *Machine) Write32(addr, v int32) error {
	if err := m.check(addr); err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(m.Mem[addr:], uint32(v))

	return nil
}

func (m *Machine) check(addr int32) error {
	if addr < 0 || int(addr) > len(m.Mem)-4 || addr%4 != 0 {
		return errors.Wrap(ErrMemoryFault, "address %#x", addr)
	}

	return nil
}

func (m *Machine) set(r riscv.Reg, v int32) {
	if r == riscv.Zero {
		return
	}

	m.Regs[r] = v
}

func (m *Machine) jump(l asm.Label) (int, error) {
	pc, ok := m.labels[l]
	if !ok {
		return 0, errors.Wrap(ErrUnknownLabel, "%v", l)
	}

	return pc, nil
}

func b2i(x bool) int32 {
	if x {
		return 1
	}

	return 0
}
