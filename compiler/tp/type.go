package tp

import (
	"strings"
)

type (
	Type interface {
		Size() int
		String() string
	}

	Int32 struct{}

	Unit struct{}

	Ptr struct {
		X Type
	}

	Func struct {
		In  []Type
		Out Type
	}
)

const PtrSize = 4

func (x Int32) Size() int { return 4 }
func (x Unit) Size() int  { return 0 }
func (x Ptr) Size() int   { return PtrSize }
func (x Func) Size() int  { return 0 }

func (x Int32) String() string { return "i32" }
func (x Unit) String() string  { return "unit" }
func (x Ptr) String() string   { return "*" + str(x.X) }

func (x Func) String() string {
	var b strings.Builder

	b.WriteString("(")

	for i, t := range x.In {
		if i != 0 {
			b.WriteString(", ")
		}

		b.WriteString(str(t))
	}

	b.WriteString(")")

	if _, ok := x.Out.(Unit); !ok && x.Out != nil {
		b.WriteString(": ")
		b.WriteString(str(x.Out))
	}

	return b.String()
}

// SizeOf returns the number of bytes a value of type t occupies. nil is zero sized.
func SizeOf(t Type) int {
	if t == nil {
		return 0
	}

	return t.Size()
}

// Equal compares types by shape. nil equals only nil.
func Equal(a, b Type) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case Int32:
		_, ok := b.(Int32)
		return ok
	case Unit:
		_, ok := b.(Unit)
		return ok
	case Ptr:
		b, ok := b.(Ptr)
		return ok && Equal(a.X, b.X)
	case Func:
		b, ok := b.(Func)
		if !ok || len(a.In) != len(b.In) || !Equal(a.Out, b.Out) {
			return false
		}

		for i := range a.In {
			if !Equal(a.In[i], b.In[i]) {
				return false
			}
		}

		return true
	default:
		return false
	}
}

func IsInt(t Type) bool {
	_, ok := t.(Int32)
	return ok
}

func str(t Type) string {
	if t == nil {
		return "<nil>"
	}

	return t.String()
}
