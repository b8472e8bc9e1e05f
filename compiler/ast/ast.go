package ast

type (
	Node interface {
		Span() Base
	}

	Expr = Node

	// Base is a byte range in the source text.
	Base struct {
		Pos int
		End int
	}

	File struct {
		Base `tlog:",embed"`

		Funcs []*FuncDef
	}

	FuncDef struct {
		Base `tlog:",embed"`

		Type Type
		Name Ident
		Body *Block
	}

	Type struct {
		Base `tlog:",embed"`

		Name string
	}

	Block struct {
		Base `tlog:",embed"`

		Items []Node
	}

	ConstDecl struct {
		Base `tlog:",embed"`

		Type Type
		Defs []Def
	}

	VarDecl struct {
		Base `tlog:",embed"`

		Type Type
		Defs []Def
	}

	Def struct {
		Base `tlog:",embed"`

		Name Ident
		Init Expr // nil for uninitialized var
	}

	Return struct {
		Base `tlog:",embed"`

		Value Expr // nil for empty return
	}

	Assign struct {
		Base `tlog:",embed"`

		LVal  Ident
		Value Expr
	}

	ExprStmt struct {
		Base `tlog:",embed"`

		X Expr // nil for empty statement
	}

	Ident struct {
		Base `tlog:",embed"`

		Name string
	}

	Int struct {
		Base `tlog:",embed"`

		Value int32
	}

	Unary struct {
		Base `tlog:",embed"`

		Op string
		X  Expr
	}

	Binary struct {
		Base `tlog:",embed"`

		Op    string
		Left  Expr
		Right Expr
	}
)

func (b Base) Span() Base { return b }
