package parse

import (
	"context"
)

type (
	Expr struct{}
)

func (p Expr) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	return Math{}.Parse(ctx, b, st)
}

func (p Expr) String() string { return "expression" }
