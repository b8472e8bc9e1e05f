package parse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/sysyc/compiler/ast"
)

func parseExpr(t *testing.T, s string) ast.Node {
	t.Helper()

	x, i, err := Expr{}.Parse(context.Background(), []byte(s), 0)
	require.NoError(t, err, "expr %q", s)
	require.Equal(t, len(s), i, "expr %q", s)

	return x.(ast.Node)
}

// sexp renders an expression with explicit parens.
func sexp(n ast.Node) string {
	switch n := n.(type) {
	case ast.Int:
		return itoa(n.Value)
	case ast.Ident:
		return n.Name
	case ast.Unary:
		return "(" + n.Op + sexp(n.X) + ")"
	case ast.Binary:
		return "(" + sexp(n.Left) + " " + n.Op + " " + sexp(n.Right) + ")"
	default:
		return "?"
	}
}

func itoa(x int32) string {
	if x < 0 {
		return "-" + itoa(-x)
	}

	if x < 10 {
		return string(rune('0' + x))
	}

	return itoa(x/10) + itoa(x%10)
}

func TestExprPrecedence(t *testing.T) {
	for _, tc := range []struct {
		in, exp string
	}{
		{"1", "1"},
		{"1+2*3", "(1 + (2 * 3))"},
		{"1 - 2 - 3", "((1 - 2) - 3)"},
		{"(1 - 2) * 3", "((1 - 2) * 3)"},
		{"1+2*3<10&&5>=5", "(((1 + (2 * 3)) < 10) && (5 >= 5))"},
		{"a || b && c", "(a || (b && c))"},
		{"a == b != c", "((a == b) != c)"},
		{"-!+x", "(-(!(+x)))"},
		{"1 - -2", "(1 - (-2))"},
		{"a<=b", "(a <= b)"},
		{"a < b", "(a < b)"},
		{"x % 3 / 2", "((x % 3) / 2)"},
		{"0x1F + 010", "(31 + 8)"},
		{"1 /* two */ + // three\n 3", "(1 + 3)"},
	} {
		n := parseExpr(t, tc.in)
		assert.Equal(t, tc.exp, sexp(n), "expr %q", tc.in)
	}
}

func TestExprSpan(t *testing.T) {
	n := parseExpr(t, "  12 + foo")

	assert.Equal(t, ast.Base{Pos: 2, End: 10}, n.Span())

	bin := n.(ast.Binary)
	assert.Equal(t, ast.Base{Pos: 2, End: 4}, bin.Left.Span())
	assert.Equal(t, ast.Base{Pos: 7, End: 10}, bin.Right.Span())
}

func TestIntLiterals(t *testing.T) {
	for _, tc := range []struct {
		in  string
		exp int32
	}{
		{"0", 0},
		{"2147483647", 2147483647},
		{"2147483648", -2147483648},
		{"0xffffffff", -1},
		{"0X10", 16},
		{"017", 15},
	} {
		x, i, err := Int{}.Parse(context.Background(), []byte(tc.in), 0)
		require.NoError(t, err, "%q", tc.in)
		assert.Equal(t, len(tc.in), i)
		assert.Equal(t, tc.exp, x.(ast.Int).Value, "%q", tc.in)
	}

	for _, in := range []string{"09", "0x", "12abc", "4294967296"} {
		_, _, err := Int{}.Parse(context.Background(), []byte(in), 0)
		assert.Error(t, err, "%q", in)
	}
}

func TestOpLongestMatch(t *testing.T) {
	ctx := context.Background()

	_, i, err := Op{"<"}.Parse(ctx, []byte("<= 1"), 0)
	assert.Error(t, err)
	assert.Equal(t, 0, i)

	_, _, err = Op{"="}.Parse(ctx, []byte("== 1"), 0)
	assert.Error(t, err)

	x, i, err := Op{"<", "<="}.Parse(ctx, []byte("<= 1"), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, i)
	assert.Equal(t, "<=", x.(opTok).Op)
}

func TestKeywordIdent(t *testing.T) {
	ctx := context.Background()

	_, _, err := Keyword("int").Parse(ctx, []byte("integer"), 0)
	assert.Error(t, err)

	_, _, err = Ident{}.Parse(ctx, []byte("return"), 0)
	assert.Error(t, err)

	x, i, err := Ident{}.Parse(ctx, []byte("return_1 "), 0)
	require.NoError(t, err)
	assert.Equal(t, 8, i)
	assert.Equal(t, "return_1", x.(ast.Ident).Name)
}

func TestParseMain(t *testing.T) {
	f, err := Parse(context.Background(), "main.c", []byte("int main() {\n  return 0;\n}\n"))
	require.NoError(t, err)
	require.Len(t, f.Funcs, 1)

	fn := f.Funcs[0]
	assert.Equal(t, "main", fn.Name.Name)
	assert.Equal(t, "int", fn.Type.Name)
	require.Len(t, fn.Body.Items, 1)

	ret, ok := fn.Body.Items[0].(ast.Return)
	require.True(t, ok, "got %T", fn.Body.Items[0])
	assert.Equal(t, ast.Int{Base: ast.Base{Pos: 22, End: 23}, Value: 0}, ret.Value)
}

func TestParseStatements(t *testing.T) {
	src := `
// leading comment
void nop() { }

int main() {
	const int a = 1, b = a + 1;
	int x, y = 2;
	x = b * y;
	;
	{
		int x = 3;
		x;
	}
	return x;
}
`

	f, err := Parse(context.Background(), "s.c", []byte(src))
	require.NoError(t, err)
	require.Len(t, f.Funcs, 2)

	assert.Equal(t, "void", f.Funcs[0].Type.Name)
	assert.Empty(t, f.Funcs[0].Body.Items)

	items := f.Funcs[1].Body.Items
	require.Len(t, items, 6)

	cd := items[0].(ast.ConstDecl)
	require.Len(t, cd.Defs, 2)
	assert.Equal(t, "b", cd.Defs[1].Name.Name)
	assert.Equal(t, "(a + 1)", sexp(cd.Defs[1].Init))

	vd := items[1].(ast.VarDecl)
	require.Len(t, vd.Defs, 2)
	assert.Nil(t, vd.Defs[0].Init)
	assert.NotNil(t, vd.Defs[1].Init)

	as := items[2].(ast.Assign)
	assert.Equal(t, "x", as.LVal.Name)
	assert.Equal(t, "(b * y)", sexp(as.Value))

	es := items[3].(ast.ExprStmt)
	assert.Nil(t, es.X)

	blk := items[4].(*ast.Block)
	require.Len(t, blk.Items, 2)
	assert.Equal(t, "x", sexp(blk.Items[1].(ast.ExprStmt).X))

	ret := items[5].(ast.Return)
	assert.Equal(t, "x", sexp(ret.Value))
}

func TestParseEmptyReturn(t *testing.T) {
	f, err := Parse(context.Background(), "", []byte("void f() { return; }"))
	require.NoError(t, err)

	ret := f.Funcs[0].Body.Items[0].(ast.Return)
	assert.Nil(t, ret.Value)
}

func TestSyntaxErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
		line int
	}{
		{"empty", "", 1},
		{"missing_semicolon", "int main() {\n  return 1\n}", 2},
		{"bad_operand", "int main() {\n  return 1 + ;\n}", 2},
		{"const_no_init", "int main() {\n const int a;\n return a; }", 2},
		{"unclosed", "int main() { return 0;", 1},
		{"global_var", "int a;", 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(context.Background(), "x.c", []byte(tc.src))
			require.Error(t, err)

			var se *SyntaxError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.Equal(t, "x.c", se.Pos.File)
			assert.Equal(t, tc.line, se.Pos.Line, "%v", err)
		})
	}
}

func TestPartialRead(t *testing.T) {
	_, err := Parse(context.Background(), "x.c", []byte("int main() { return 0; }\n}"))
	require.Error(t, err)

	var pr PartialReadError
	require.True(t, errors.As(err, &pr), "got %v", err)
	assert.Equal(t, 25, pr.End)
}

func TestPosition(t *testing.T) {
	s := New()
	s.AddFile("a.c", []byte("ab\ncd"))
	s.AddFile("b.c", []byte("x"))

	assert.Equal(t, Position{File: "a.c", Line: 1, Col: 1}, s.Position(0))
	assert.Equal(t, Position{File: "a.c", Line: 2, Col: 2}, s.Position(4))
	assert.Equal(t, Position{File: "b.c", Line: 1, Col: 1}, s.Position(5))
	assert.Equal(t, "a.c:2:2", s.Position(4).String())
}
