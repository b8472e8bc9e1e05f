package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/sysyc/compiler/ast"
	"github.com/slowlang/sysyc/compiler/back"
	"github.com/slowlang/sysyc/compiler/format"
	"github.com/slowlang/sysyc/compiler/front"
	"github.com/slowlang/sysyc/compiler/ir"
	"github.com/slowlang/sysyc/compiler/parse"
	"github.com/slowlang/sysyc/compiler/sim"
)

// Stage is an output the pipeline can stop at.
type Stage string

const (
	StageAST Stage = "ast"
	StageIR  Stage = "ir"
	StageAsm Stage = "asm"
)

var ErrUnknownStage = errors.New("unknown stage")

func CompileFile(ctx context.Context, name string) (obj []byte, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text)
}

// Compile translates source text into RISC-V assembly text.
func Compile(ctx context.Context, name string, text []byte) (obj []byte, err error) {
	return Emit(ctx, nil, StageAsm, name, text)
}

// Emit appends the representation of text at stage to b.
func Emit(ctx context.Context, b []byte, stage Stage, name string, text []byte) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compiler: emit", "stage", stage, "name", name)
	defer tr.Finish("err", &err)

	switch stage {
	case StageAST, StageIR, StageAsm:
	default:
		return nil, errors.Wrap(ErrUnknownStage, "%q", stage)
	}

	st, f, err := parseText(ctx, name, text)
	if err != nil {
		return nil, err
	}

	if stage == StageAST {
		return format.Format(ctx, b, f)
	}

	p, err := lower(ctx, st, f)
	if err != nil {
		return nil, err
	}

	if stage == StageIR {
		return format.Program(ctx, b, p)
	}

	b, err = back.New().CompileProgram(ctx, b, p)
	if err != nil {
		return nil, errors.Wrap(err, "codegen")
	}

	return b, nil
}

// Lower parses text and lowers it into IR.
func Lower(ctx context.Context, name string, text []byte) (*ir.Program, error) {
	st, f, err := parseText(ctx, name, text)
	if err != nil {
		return nil, err
	}

	return lower(ctx, st, f)
}

// Run compiles text and executes function entry on the simulator.
func Run(ctx context.Context, name string, text []byte, entry string, args ...int32) (int32, error) {
	obj, err := Compile(ctx, name, text)
	if err != nil {
		return 0, err
	}

	res, err := sim.Run(ctx, obj, entry, args...)
	if err != nil {
		return 0, errors.Wrap(err, "run")
	}

	return res, nil
}

func parseText(ctx context.Context, name string, text []byte) (*parse.State, *ast.File, error) {
	st := parse.New()
	st.AddFile(name, text)

	f, err := st.Parse(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse")
	}

	return st, f, nil
}

func lower(ctx context.Context, st *parse.State, f *ast.File) (*ir.Program, error) {
	p, err := front.New().Compile(ctx, f)
	if pos, ok := front.Position(err); ok {
		return nil, errors.Wrap(err, "%v", st.Position(pos.Pos))
	}
	if err != nil {
		return nil, errors.Wrap(err, "lower")
	}

	return p, nil
}
