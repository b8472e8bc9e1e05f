package parse

import (
	"context"
	"fmt"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/sysyc/compiler/ast"
)

type (
	State struct {
		b []byte // all files concatenated

		Grammar Parser

		files []file
	}

	file struct {
		base int
		size int
		name string
	}

	Parser interface {
		Parse(ctx context.Context, b []byte, st int) (x any, i int, err error)
	}

	Position struct {
		File string
		Line int
		Col  int
	}

	SyntaxError struct {
		Pos Position
		Err error
	}

	PartialReadError struct {
		End int
	}
)

func ParseFile(ctx context.Context, name string) (*ast.File, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	return Parse(ctx, name, data)
}

func Parse(ctx context.Context, name string, text []byte) (*ast.File, error) {
	s := New()

	s.AddFile(name, text)

	return s.Parse(ctx)
}

func New() *State {
	return &State{
		Grammar: CompUnit{},
	}
}

func (s *State) Parse(ctx context.Context) (f *ast.File, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "parse", "size", len(s.b))
	defer tr.Finish("err", &err)

	x, i, err := s.Grammar.Parse(ctx, s.b, 0)
	if err != nil {
		return nil, &SyntaxError{Pos: s.Position(i), Err: err}
	}

	i = Blanks.Skip(s.b, i)

	if i != len(s.b) {
		return nil, &SyntaxError{Pos: s.Position(i), Err: PartialReadError{End: i}}
	}

	f, ok := x.(*ast.File)
	if !ok {
		return nil, errors.New("grammar returned %T, want *ast.File", x)
	}

	if tr.If("dump_ast") {
		tr.Printw("ast", "funcs", len(f.Funcs), "file", f)
	}

	return f, nil
}

func (s *State) AddFile(name string, text []byte) {
	f := file{
		name: name,
		base: len(s.b),
		size: len(text),
	}

	s.b = append(s.b, text...)

	s.files = append(s.files, f)
}

func (s *State) Text(pos, end int) []byte {
	return s.b[pos:end]
}

// Position converts byte offset pos into file, line and column, both 1-based.
func (s *State) Position(pos int) (p Position) {
	var f file

	for _, ff := range s.files {
		if pos >= ff.base {
			f = ff
		}
	}

	p.File = f.name
	p.Line = 1
	p.Col = 1

	for i := f.base; i < pos && i < len(s.b); i++ {
		if s.b[i] == '\n' {
			p.Line++
			p.Col = 1
		} else {
			p.Col++
		}
	}

	return p
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}

	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v: %v", e.Pos, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

func (e PartialReadError) Error() string {
	return "unexpected text after the end of the program"
}
