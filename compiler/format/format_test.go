package format

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/sysyc/compiler/ir"
	"github.com/slowlang/sysyc/compiler/parse"
	"github.com/slowlang/sysyc/compiler/tp"
)

func TestProgram(t *testing.T) {
	p := ir.New()

	f := p.RegisterFunction(ir.Signature{Name: "main", Ret: tp.Int32{}})
	b, err := p.Builder(f)
	require.NoError(t, err)

	entry := b.PushBlock("%entry")
	exit := b.PushBlock("%exit")

	to := func(bl ir.Block) func(ir.Value, error) ir.Value {
		return func(v ir.Value, err error) ir.Value {
			require.NoError(t, err)
			require.NoError(t, b.Append(bl, v))
			return v
		}
	}

	ptr := to(entry)(b.Alloc(tp.Int32{}))
	x := to(entry)(b.Binary(ir.Add, b.Const(1), b.Const(2)))
	to(entry)(b.Store(x, ptr))
	to(entry)(b.Branch(x, exit, exit))
	y := to(exit)(b.Load(ptr))
	to(exit)(b.Return(y))

	g := p.RegisterFunction(ir.Signature{Name: "g", Params: []tp.Type{tp.Int32{}}})
	b, err = p.Builder(g)
	require.NoError(t, err)

	gb := b.PushBlock("")
	to(gb)(b.Jump(gb))

	text, err := Format(context.Background(), nil, p)
	require.NoError(t, err)

	exp := `fun @main(): i32 {
%entry:
  %0 = alloc i32
  %1 = add 1, 2
  store %1, %0
  br %1, %exit, %exit
%exit:
  %2 = load %0
  ret %2
}

fun @g(@p0: i32) {
%bb0:
  jump %bb0
}
`

	if diff := cmp.Diff(exp, string(text)); diff != "" {
		t.Errorf("ir text mismatch (-want +got):\n%s", diff)
	}
}

func TestFileRoundTrip(t *testing.T) {
	src := `int main() {
	const int a = 1, b = -a;
	int x, y = (a + b) * 3;
	x = y - (2 - 1);
	;
	{
		x = !x || y && a != 2;
	}
	return x % 2;
}

void f() {
	return;
}
`

	ctx := context.Background()

	f, err := parse.Parse(ctx, "src.c", []byte(src))
	require.NoError(t, err)

	text, err := Format(ctx, nil, f)
	require.NoError(t, err)

	if diff := cmp.Diff(src, string(text)); diff != "" {
		t.Errorf("format mismatch (-want +got):\n%s", diff)
	}

	f2, err := parse.Parse(ctx, "src2.c", text)
	require.NoError(t, err)

	text2, err := Format(ctx, nil, f2)
	require.NoError(t, err)
	require.Equal(t, string(text), string(text2))
}
