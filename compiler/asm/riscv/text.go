package riscv

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/sysyc/compiler/asm"
)

var ErrSyntax = errors.New("assembly syntax")

// AppendFile renders funcs as one text section.
func AppendFile(b []byte, funcs ...asm.Func) (_ []byte, err error) {
	b, err = Append(b, asm.Directive{Name: ".text"})
	if err != nil {
		return b, err
	}

	for i, f := range funcs {
		if i != 0 {
			b = append(b, '\n')
		}

		b, err = AppendFunc(b, f)
		if err != nil {
			return b, errors.Wrap(err, "func %v", f.Name)
		}
	}

	return b, nil
}

func AppendFunc(b []byte, f asm.Func) (_ []byte, err error) {
	b, _ = Append(b, asm.Directive{Name: ".globl", Args: []string{f.Name}})
	b, _ = Append(b, asm.Label(f.Name))

	for _, x := range f.Body {
		b, err = Append(b, x)
		if err != nil {
			return b, err
		}
	}

	return b, nil
}

// Append renders a single line.
func Append(b []byte, x asm.Instr) ([]byte, error) {
	switch x := x.(type) {
	case asm.Label:
		return hfmt.Appendf(b, "%s:\n", x), nil
	case asm.Comment:
		return hfmt.Appendf(b, "  # %s\n", x), nil
	case asm.Directive:
		b = append(b, x.Name...)

		for i, a := range x.Args {
			if i == 0 {
				b = append(b, ' ')
			} else {
				b = append(b, ", "...)
			}

			b = append(b, a...)
		}

		return append(b, '\n'), nil
	case Li:
		return hfmt.Appendf(b, "  li %v, %d\n", x.Out[0], x.Imm), nil
	case Lw:
		return hfmt.Appendf(b, "  lw %v, %d(%v)\n", x.Out[0], x.Off, x.Base), nil
	case Sw:
		return hfmt.Appendf(b, "  sw %v, %d(%v)\n", x.In[0], x.Off, x.Base), nil
	case Addi:
		return hfmt.Appendf(b, "  addi %v, %v, %d\n", x.Out[0], x.In[0], x.Imm), nil
	case R:
		return hfmt.Appendf(b, "  %v %v, %v, %v\n", x.Op, x.Out[0], x.In[0], x.In[1]), nil
	case Seqz:
		return hfmt.Appendf(b, "  seqz %v, %v\n", x.Out[0], x.In[0]), nil
	case Snez:
		return hfmt.Appendf(b, "  snez %v, %v\n", x.Out[0], x.In[0]), nil
	case Mv:
		return hfmt.Appendf(b, "  mv %v, %v\n", x.Out[0], x.In[0]), nil
	case J:
		return hfmt.Appendf(b, "  j %s\n", x.Label), nil
	case Bnez:
		return hfmt.Appendf(b, "  bnez %v, %s\n", x.In[0], x.Label), nil
	case Beqz:
		return hfmt.Appendf(b, "  beqz %v, %s\n", x.In[0], x.Label), nil
	case Ret:
		return append(b, "  ret\n"...), nil
	default:
		return b, errors.New("unsupported instruction: %T", x)
	}
}

// Parse reads assembly text back into instructions, labels and directives.
// Comments are dropped.
func Parse(text []byte) (l []asm.Instr, err error) {
	for n, line := range bytes.Split(text, []byte("\n")) {
		s := string(line)

		if i := strings.IndexByte(s, '#'); i >= 0 {
			s = s[:i]
		}

		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}

		x, err := ParseLine(s)
		if err != nil {
			return nil, errors.Wrap(err, "line %d", n+1)
		}

		l = append(l, x)
	}

	return l, nil
}

// ParseLine parses a single line without comments.
func ParseLine(s string) (asm.Instr, error) {
	if strings.HasSuffix(s, ":") {
		return asm.Label(strings.TrimSpace(s[:len(s)-1])), nil
	}

	name, rest, _ := strings.Cut(strings.ReplaceAll(s, "\t", " "), " ")
	rest = strings.TrimSpace(rest)

	var args []string
	if rest != "" {
		args = strings.Split(rest, ",")

		for i := range args {
			args[i] = strings.TrimSpace(args[i])
		}
	}

	if strings.HasPrefix(name, ".") {
		return asm.Directive{Name: name, Args: args}, nil
	}

	p := operands{name: name, args: args}

	var x asm.Instr

	switch name {
	case "li":
		p.want(2)
		x = Li{Out: [1]Reg{p.reg(0)}, Imm: p.imm(1)}
	case "lw":
		p.want(2)
		off, base := p.mem(1)
		x = Lw{Out: [1]Reg{p.reg(0)}, Base: base, Off: off}
	case "sw":
		p.want(2)
		off, base := p.mem(1)
		x = Sw{In: [1]Reg{p.reg(0)}, Base: base, Off: off}
	case "addi":
		p.want(3)
		x = Addi{Out: [1]Reg{p.reg(0)}, In: [1]Reg{p.reg(1)}, Imm: p.imm12(2)}
	case "seqz":
		p.want(2)
		x = Seqz{Out: [1]Reg{p.reg(0)}, In: [1]Reg{p.reg(1)}}
	case "snez":
		p.want(2)
		x = Snez{Out: [1]Reg{p.reg(0)}, In: [1]Reg{p.reg(1)}}
	case "mv":
		p.want(2)
		x = Mv{Out: [1]Reg{p.reg(0)}, In: [1]Reg{p.reg(1)}}
	case "j":
		p.want(1)
		x = J{Label: p.label(0)}
	case "bnez":
		p.want(2)
		x = Bnez{In: [1]Reg{p.reg(0)}, Label: p.label(1)}
	case "beqz":
		p.want(2)
		x = Beqz{In: [1]Reg{p.reg(0)}, Label: p.label(1)}
	case "ret":
		p.want(0)
		x = Ret{}
	default:
		op, ok := OpByName(name)
		if !ok {
			return nil, errors.Wrap(ErrSyntax, "unknown instruction %q", name)
		}

		p.want(3)
		x = R{Op: op, Out: [1]Reg{p.reg(0)}, In: [2]Reg{p.reg(1), p.reg(2)}}
	}

	if p.err != nil {
		return nil, p.err
	}

	return x, nil
}

// operands keeps the first error so a case can read all the arguments at once.
type operands struct {
	name string
	args []string
	err  error
}

func (p *operands) want(n int) {
	if len(p.args) != n {
		p.fail("%v: %d operands expected, got %d", p.name, n, len(p.args))
	}
}

func (p *operands) arg(i int) string {
	if i >= len(p.args) {
		return ""
	}

	return p.args[i]
}

func (p *operands) reg(i int) Reg {
	r, ok := RegByName(p.arg(i))
	if !ok {
		p.fail("%v: register expected, got %q", p.name, p.arg(i))
	}

	return r
}

func (p *operands) imm(i int) int32 {
	x, err := strconv.ParseInt(p.arg(i), 0, 64)
	if err != nil || x < -1<<31 || x > 1<<32-1 {
		p.fail("%v: 32-bit immediate expected, got %q", p.name, p.arg(i))
	}

	return int32(uint32(x))
}

func (p *operands) imm12(i int) int32 {
	x := p.imm(i)
	if !FitsImm12(x) {
		p.fail("%v: 12-bit immediate expected, got %q", p.name, p.arg(i))
	}

	return x
}

func (p *operands) mem(i int) (off int32, base Reg) {
	s := p.arg(i)

	o, r, ok := strings.Cut(s, "(")
	if !ok || !strings.HasSuffix(r, ")") {
		p.fail("%v: memory operand expected, got %q", p.name, s)
		return 0, Zero
	}

	if o != "" {
		x, err := strconv.ParseInt(o, 0, 32)
		if err != nil || !FitsImm12(int32(x)) {
			p.fail("%v: offset out of range: %q", p.name, o)
		}

		off = int32(x)
	}

	base, ok = RegByName(r[:len(r)-1])
	if !ok {
		p.fail("%v: base register expected, got %q", p.name, s)
	}

	return off, base
}

func (p *operands) label(i int) asm.Label {
	s := p.arg(i)
	if s == "" {
		p.fail("%v: label expected", p.name)
	}

	return asm.Label(s)
}

func (p *operands) fail(format string, args ...any) {
	if p.err == nil {
		p.err = errors.Wrap(ErrSyntax, format, args...)
	}
}
