package front

import (
	"fmt"

	"tlog.app/go/errors"

	"github.com/slowlang/sysyc/compiler/ast"
)

type (
	// Front lowers a parsed file into ir.Program.
	Front struct{}

	// UnsupportedError is a construct lowering doesn't handle.
	// It matches ErrUnsupportedConstruct.
	UnsupportedError struct {
		Pos  ast.Base
		What string
	}

	// Error is a semantic error at some source position.
	Error struct {
		Pos ast.Base
		Err error
	}
)

var (
	ErrUnsupportedConstruct = errors.New("unsupported construct")

	ErrUndefined    = errors.New("undefined")
	ErrRedefined    = errors.New("redefined")
	ErrNotConstant  = errors.New("not a constant")
	ErrAssignConst  = errors.New("assignment to constant")
	ErrMissedReturn = errors.New("missing return")
)

func New() *Front { return &Front{} }

func unsupported(n ast.Node, format string, args ...any) error {
	return &UnsupportedError{
		Pos:  n.Span(),
		What: fmt.Sprintf(format, args...),
	}
}

func errAt(n ast.Node, err error, format string, args ...any) error {
	return &Error{
		Pos: n.Span(),
		Err: errors.Wrap(err, format, args...),
	}
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported %v", e.What)
}

func (e *UnsupportedError) Is(target error) bool { return target == ErrUnsupportedConstruct }

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Position returns the source offset of the error if it's known.
func Position(err error) (ast.Base, bool) {
	var ue *UnsupportedError
	if errors.As(err, &ue) {
		return ue.Pos, true
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe.Pos, true
	}

	return ast.Base{}, false
}
