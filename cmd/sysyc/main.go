package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/term"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/sysyc/compiler"
	"github.com/slowlang/sysyc/compiler/back"
	"github.com/slowlang/sysyc/compiler/sim"
)

var errFailed = errors.New("compilation failed")

var logFile *os.File

func main() {
	parseCmd := &cli.Command{
		Name:        "parse",
		Description: "print parsed source back in canonical form",
		Action:      stageAct(compiler.StageAST),
		Args:        cli.Args{},
	}

	irCmd := &cli.Command{
		Name:        "ir",
		Description: "print intermediate representation",
		Action:      stageAct(compiler.StageIR),
		Args:        cli.Args{},
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile to RISC-V assembly",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "", "output file, stdout if empty"),
			cli.NewFlag("emit", "asm", "output stage: ast, ir or asm"),
		},
	}

	runCmd := &cli.Command{
		Name:        "run",
		Description: "compile and execute on the simulator",
		Action:      runAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("entry", "main", "function to call"),
		},
	}

	app := &cli.Command{
		Name:        "sysyc",
		Description: "sysyc compiles a subset of SysY into RISC-V assembly",
		Before:      before,
		After:       after,
		Flags: []*cli.Flag{
			cli.NewFlag("log", "stderr", "log output file (or stderr)"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			parseCmd,
			irCmd,
			compileCmd,
			runCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	w := os.Stderr

	if q := c.String("log"); q != "" && q != "stderr" {
		f, err := os.Create(q)
		if err != nil {
			return errors.Wrap(err, "open log file")
		}

		w = f
		logFile = f
	}

	l := tlog.New(tlog.NewConsoleWriter(w, tlog.LstdFlags))

	l.SetVerbosity(c.String("verbosity"))

	tlog.DefaultLogger = l

	return nil
}

func after(c *cli.Command) error {
	if logFile == nil {
		return nil
	}

	err := logFile.Sync()
	if e := logFile.Close(); err == nil {
		err = e
	}

	logFile = nil

	if err != nil {
		return errors.Wrap(err, "close log file")
	}

	return nil
}

func stageAct(stage compiler.Stage) func(*cli.Command) error {
	return func(c *cli.Command) error {
		ctx := context.Background()
		ctx = tlog.ContextWithSpan(ctx, tlog.Root())

		for _, a := range c.Args {
			text, err := os.ReadFile(a)
			if err != nil {
				return errors.Wrap(err, "read %v", a)
			}

			b, err := compiler.Emit(ctx, nil, stage, a, text)
			if err != nil {
				return diag(err)
			}

			_, err = os.Stdout.Write(b)
			if err != nil {
				return errors.Wrap(err, "write")
			}
		}

		return nil
	}
}

func compileAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	stage := compiler.Stage(c.String("emit"))
	out := c.String("output")

	if out != "" && len(c.Args) != 1 {
		return errors.New("exactly one input expected with --output")
	}

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		obj, err := compiler.Emit(ctx, nil, stage, a, text)
		if err != nil {
			return diag(err)
		}

		if out == "" {
			fmt.Printf("%s", obj)
			continue
		}

		changed, err := writeIfChanged(out, obj)
		if err != nil {
			return errors.Wrap(err, "write %v", out)
		}

		tlog.Printw("output", "file", out, "size", len(obj), "changed", changed)
	}

	return nil
}

func runAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	entry := c.String("entry")

	for _, a := range c.Args {
		obj, err := compiler.CompileFile(ctx, a)
		if err != nil {
			return diag(err)
		}

		res, err := sim.Run(ctx, obj, entry)
		if err != nil {
			return errors.Wrap(err, "run %v", a)
		}

		fmt.Printf("%v: %v\n", a, res)
	}

	return nil
}

// writeIfChanged keeps the file and its mtime untouched if content hash is the same.
func writeIfChanged(name string, data []byte) (bool, error) {
	sum, err := hashFile(name)
	if err == nil && sum == back.Fingerprint(data) {
		return false, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	err = os.WriteFile(name, data, 0o644)
	if err != nil {
		return false, err
	}

	return true, nil
}

func hashFile(name string) (uint64, error) {
	f, err := os.Open(name)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := xxhash.New()

	_, err = io.Copy(h, f)
	if err != nil {
		return 0, err
	}

	return h.Sum64(), nil
}

func diag(err error) error {
	msg := err.Error()

	if term.IsTerminal(int(os.Stderr.Fd())) {
		msg = "\x1b[1;31merror:\x1b[0m " + msg
	} else {
		msg = "error: " + msg
	}

	fmt.Fprintln(os.Stderr, msg)

	return errFailed
}
