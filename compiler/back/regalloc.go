package back

import (
	"tlog.app/go/errors"

	"github.com/slowlang/sysyc/compiler/ir"
)

// StackAllocator gives every value producing instruction its own stack slot.
// Slots are assigned in layout order starting from offset 0 from sp.
// Constants are immediates and get no slot.
type StackAllocator struct {
	word  int32
	align int32

	slots map[ir.Value]int32
	order []ir.Value
}

func NewStackAllocator(t Target) *StackAllocator {
	return &StackAllocator{
		word:  int32(t.WordSize),
		align: int32(t.StackAlign),
		slots: make(map[ir.Value]int32),
	}
}

// Analyze assigns slots for fn. Previous assignment is dropped.
func (a *StackAllocator) Analyze(fn *ir.Function) error {
	a.Reset()

	l := fn.Layout()

	for _, b := range l.Blocks() {
		for _, v := range l.Insts(b) {
			d, err := fn.Value(v)
			if err != nil {
				return errors.Wrap(err, "block %v", l.Name(b))
			}

			if !ir.HasResult(d.Kind) {
				continue
			}

			a.slots[v] = int32(len(a.order)) * a.word
			a.order = append(a.order, v)
		}
	}

	return nil
}

// Locate returns the sp relative offset of v's slot.
func (a *StackAllocator) Locate(v ir.Value) (int32, bool) {
	off, ok := a.slots[v]
	return off, ok
}

// Slots returns values having a slot in offset order.
func (a *StackAllocator) Slots() []ir.Value { return a.order }

// FrameSize is the slots size rounded up to the stack alignment.
func (a *StackAllocator) FrameSize() int32 {
	return alignUp(int32(len(a.order))*a.word, a.align)
}

func (a *StackAllocator) Reset() {
	clear(a.slots)
	a.order = a.order[:0]
}
