package back

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/sysyc/compiler/asm"
	"github.com/slowlang/sysyc/compiler/asm/riscv"
	"github.com/slowlang/sysyc/compiler/ir"
	"github.com/slowlang/sysyc/compiler/set"
)

type (
	// Compiler generates RISC-V assembly from ir.Program.
	// The Program is only read.
	Compiler struct {
		Target Target
	}

	funContext struct {
		*ir.Function

		p *ir.Program
		t Target

		alloc *StackAllocator
		frame int32

		out asm.Func
	}
)

var ErrUnsupportedInstruction = errors.New("unsupported instruction")

func New() *Compiler {
	return &Compiler{
		Target: RV32(),
	}
}

// CompileProgram appends assembly text of p to b.
func (c *Compiler) CompileProgram(ctx context.Context, b []byte, p *ir.Program) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile program", "funcs", len(p.Functions()))
	defer tr.Finish("err", &err)

	funcs, err := c.Lower(ctx, p)
	if err != nil {
		return b, err
	}

	st := len(b)

	b, err = riscv.AppendFile(b, funcs...)
	if err != nil {
		return b, errors.Wrap(err, "render")
	}

	tr.V("fingerprint").Printw("assembly", "size", len(b)-st, "hash", Fingerprint(b[st:]))

	return b, nil
}

// Lower generates instructions of every function in registration order.
func (c *Compiler) Lower(ctx context.Context, p *ir.Program) (funcs []asm.Func, err error) {
	for _, id := range p.Functions() {
		fn, err := p.Function(id)
		if err != nil {
			return nil, err
		}

		f, err := c.compileFunc(ctx, p, fn)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", fn.Name())
		}

		funcs = append(funcs, f)
	}

	return funcs, nil
}

// Fingerprint identifies generated text. Equal programs give equal fingerprints.
func Fingerprint(b []byte) uint64 {
	return xxhash.Sum64(b)
}

func (c *Compiler) compileFunc(ctx context.Context, p *ir.Program, fn *ir.Function) (_ asm.Func, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "compile function", "name", fn.Name())
	defer tr.Finish("err", &err)

	f := &funContext{
		Function: fn,
		p:        p,
		t:        c.Target,
		alloc:    NewStackAllocator(c.Target),
		out:      asm.Func{Name: fn.Name()},
	}

	err = f.alloc.Analyze(fn)
	if err != nil {
		return asm.Func{}, errors.Wrap(err, "allocate stack")
	}

	f.frame = f.alloc.FrameSize()

	if tr.If("dump_slots") {
		for _, v := range f.alloc.Slots() {
			off, _ := f.alloc.Locate(v)
			tr.Printw("slot", "value", v, "off", off)
		}

		tr.Printw("frame", "size", f.frame)
	}

	l := fn.Layout()

	if l.Len() == 0 {
		return asm.Func{}, errors.Wrap(ir.ErrEmptyFunction, "func %v", fn.Name())
	}

	targets := f.targets()

	if tr.If("dump_targets") {
		tr.Printw("branch targets", "count", targets.Size(), "blocks", targets)
	}

	f.adjustStack(-f.frame)

	for i, b := range l.Blocks() {
		if i != 0 || targets.IsSet(0) {
			f.out.Add(f.label(b))
		}

		for _, v := range l.Insts(b) {
			err = f.compileInst(v)
			if err != nil {
				return asm.Func{}, errors.Wrap(err, "block %v", l.Name(b))
			}
		}
	}

	return f.out, nil
}

// targets returns layout indexes of blocks branched to.
func (f *funContext) targets() (s BitsInt) {
	s = set.MakeBits(0)

	l := f.Layout()

	add := func(b ir.Block) {
		if i := l.Index(b); i >= 0 {
			s.Set(i)
		}
	}

	for _, b := range l.Blocks() {
		for _, v := range l.Insts(b) {
			d, err := f.Value(v)
			if err != nil {
				continue
			}

			switch k := d.Kind.(type) {
			case ir.Branch:
				add(k.Then)
				add(k.Else)
			case ir.Jump:
				add(k.Target)
			}
		}
	}

	return s
}

func (f *funContext) compileInst(v ir.Value) error {
	d, err := f.Value(v)
	if err != nil {
		return err
	}

	t0, t1 := f.t.Scratch[0], f.t.Scratch[1]

	switch k := d.Kind.(type) {
	case ir.Binary:
		err = f.load(t0, k.L)
		if err != nil {
			return errors.Wrap(err, "%v lhs", k.Op)
		}

		zero := f.isZero(k.R)

		if !zero || (k.Op != ir.Eq && k.Op != ir.NotEq) {
			err = f.load(t1, k.R)
			if err != nil {
				return errors.Wrap(err, "%v rhs", k.Op)
			}
		}

		switch k.Op {
		case ir.Eq, ir.NotEq:
			if !zero {
				f.out.Add(riscv.R{Op: riscv.Xor, Out: [1]riscv.Reg{t0}, In: [2]riscv.Reg{t0, t1}})
			}

			if k.Op == ir.Eq {
				f.out.Add(riscv.Seqz{Out: [1]riscv.Reg{t0}, In: [1]riscv.Reg{t0}})
			} else {
				f.out.Add(riscv.Snez{Out: [1]riscv.Reg{t0}, In: [1]riscv.Reg{t0}})
			}
		default:
			op, ok := opcodes[k.Op]
			if !ok {
				return errors.Wrap(ErrUnsupportedInstruction, "binary %v", k.Op)
			}

			f.out.Add(riscv.R{Op: op, Out: [1]riscv.Reg{t0}, In: [2]riscv.Reg{t0, t1}})
		}

		return f.store(t0, v)
	case ir.Alloc:
		return nil
	case ir.Load:
		err = f.loadSlot(t0, k.Src)
		if err != nil {
			return errors.Wrap(err, "load")
		}

		return f.store(t0, v)
	case ir.Store:
		err = f.load(t0, k.Value)
		if err != nil {
			return errors.Wrap(err, "store value")
		}

		return f.storeSlot(t0, k.Dst)
	case ir.Return:
		if !k.Value.IsNil() {
			err = f.load(f.t.Ret, k.Value)
			if err != nil {
				return errors.Wrap(err, "return value")
			}
		}

		f.adjustStack(f.frame)
		f.out.Add(riscv.Ret{})

		return nil
	case ir.Branch:
		err = f.load(t0, k.Cond)
		if err != nil {
			return errors.Wrap(err, "branch condition")
		}

		then, err := f.target(k.Then)
		if err != nil {
			return err
		}

		els, err := f.target(k.Else)
		if err != nil {
			return err
		}

		f.out.Add(
			riscv.Bnez{In: [1]riscv.Reg{t0}, Label: then},
			riscv.J{Label: els},
		)

		return nil
	case ir.Jump:
		dst, err := f.target(k.Target)
		if err != nil {
			return err
		}

		f.out.Add(riscv.J{Label: dst})

		return nil
	default:
		return errors.Wrap(ErrUnsupportedInstruction, "%T", k)
	}
}

var opcodes = map[ir.BinaryOp]riscv.Op{
	ir.Add: riscv.Add,
	ir.Sub: riscv.Sub,
	ir.Mul: riscv.Mul,
	ir.Div: riscv.Div,
	ir.Mod: riscv.Rem,
	ir.Lt:  riscv.Slt,
	ir.Gt:  riscv.Sgt,
	ir.Xor: riscv.Xor,
	ir.And: riscv.And,
	ir.Or:  riscv.Or,
}

// load puts operand v into reg.
func (f *funContext) load(reg riscv.Reg, v ir.Value) error {
	d, err := f.p.Resolve(f.ID(), v)
	if err != nil {
		return err
	}

	switch k := d.Kind.(type) {
	case ir.Integer:
		f.out.Add(riscv.Li{Out: [1]riscv.Reg{reg}, Imm: k.Value})
		return nil
	case ir.Param:
		if k.Index >= len(f.t.Args) {
			return errors.Wrap(ErrUnsupportedInstruction, "param %d passed on stack", k.Index)
		}

		if src := f.t.Args[k.Index]; src != reg {
			f.out.Add(riscv.Mv{Out: [1]riscv.Reg{reg}, In: [1]riscv.Reg{src}})
		}

		return nil
	}

	off, ok := f.alloc.Locate(v)
	if !ok {
		return errors.Wrap(ir.ErrUnresolvedOperand, "no slot for %v (%T)", v, d.Kind)
	}

	if _, ok := d.Kind.(ir.Alloc); ok {
		return errors.Wrap(ErrUnsupportedInstruction, "address of %v taken", v)
	}

	base, off := f.addr(off)
	f.out.Add(riscv.Lw{Out: [1]riscv.Reg{reg}, Base: base, Off: off})

	return nil
}

// store saves reg into the slot of v.
func (f *funContext) store(reg riscv.Reg, v ir.Value) error {
	off, ok := f.alloc.Locate(v)
	if !ok {
		return errors.Wrap(ir.ErrUnresolvedOperand, "no slot for %v", v)
	}

	base, off := f.addr(off)
	f.out.Add(riscv.Sw{In: [1]riscv.Reg{reg}, Base: base, Off: off})

	return nil
}

// loadSlot reads the variable ptr points to. ptr must be an alloc.
func (f *funContext) loadSlot(reg riscv.Reg, ptr ir.Value) error {
	off, err := f.varSlot(ptr)
	if err != nil {
		return err
	}

	base, off := f.addr(off)
	f.out.Add(riscv.Lw{Out: [1]riscv.Reg{reg}, Base: base, Off: off})

	return nil
}

func (f *funContext) storeSlot(reg riscv.Reg, ptr ir.Value) error {
	off, err := f.varSlot(ptr)
	if err != nil {
		return err
	}

	base, off := f.addr(off)
	f.out.Add(riscv.Sw{In: [1]riscv.Reg{reg}, Base: base, Off: off})

	return nil
}

func (f *funContext) varSlot(ptr ir.Value) (int32, error) {
	d, err := f.Value(ptr)
	if err != nil {
		return 0, err
	}

	if _, ok := d.Kind.(ir.Alloc); !ok {
		return 0, errors.Wrap(ErrUnsupportedInstruction, "indirect access through %T", d.Kind)
	}

	off, ok := f.alloc.Locate(ptr)
	if !ok {
		return 0, errors.Wrap(ir.ErrUnresolvedOperand, "no slot for %v", ptr)
	}

	return off, nil
}

// addr returns base register and immediate addressing sp+off.
// Offsets out of the immediate range are computed into the address scratch register.
func (f *funContext) addr(off int32) (riscv.Reg, int32) {
	if riscv.FitsImm12(off) {
		return f.t.Stack, off
	}

	t2 := f.t.Scratch[2]

	f.out.Add(
		riscv.Li{Out: [1]riscv.Reg{t2}, Imm: off},
		riscv.R{Op: riscv.Add, Out: [1]riscv.Reg{t2}, In: [2]riscv.Reg{f.t.Stack, t2}},
	)

	return t2, 0
}

func (f *funContext) adjustStack(d int32) {
	if d == 0 {
		return
	}

	sp := f.t.Stack

	if riscv.FitsImm12(d) {
		f.out.Add(riscv.Addi{Out: [1]riscv.Reg{sp}, In: [1]riscv.Reg{sp}, Imm: d})
		return
	}

	t2 := f.t.Scratch[2]

	f.out.Add(
		riscv.Li{Out: [1]riscv.Reg{t2}, Imm: d},
		riscv.R{Op: riscv.Add, Out: [1]riscv.Reg{sp}, In: [2]riscv.Reg{sp, t2}},
	)
}

func (f *funContext) isZero(v ir.Value) bool {
	d, err := f.p.Resolve(f.ID(), v)
	if err != nil {
		return false
	}

	x, ok := d.Kind.(ir.Integer)

	return ok && x.Value == 0
}

func (f *funContext) target(b ir.Block) (asm.Label, error) {
	if !f.Layout().Owns(b) {
		return "", errors.Wrap(ir.ErrInvalidBlockReference, "block %v", b)
	}

	return f.label(b), nil
}

func (f *funContext) label(b ir.Block) asm.Label {
	return asm.Label(fmt.Sprintf(".L%s_%d", f.Name(), f.Layout().Index(b)))
}
