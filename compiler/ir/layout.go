package ir

import (
	"fmt"

	"tlog.app/go/errors"

	"github.com/slowlang/sysyc/compiler/set"
)

// Layout keeps the order of blocks and instructions of one function.
// It refers to instructions by handle only, data stays in the pool.
type Layout struct {
	fn   Func
	pool *Pool

	blocks []blockNode
	names  map[string]struct{}

	placed set.Bits[int32]
}

type blockNode struct {
	name  string
	insts []Value
}

func newLayout(fn Func, pool *Pool) Layout {
	return Layout{
		fn:     fn,
		pool:   pool,
		names:  make(map[string]struct{}),
		placed: set.MakeBits[int32](1),
	}
}

// PushBlock creates a new block at the end of the layout.
// Empty or repeated names are made unique.
func (l *Layout) PushBlock(name string) Block {
	id := int32(len(l.blocks) + 1)

	if name == "" {
		name = fmt.Sprintf("%%bb%d", id-1)
	}

	if _, ok := l.names[name]; ok {
		name = fmt.Sprintf("%s_%d", name, id-1)
	}

	if l.names == nil {
		l.names = make(map[string]struct{})
	}

	l.names[name] = struct{}{}
	l.blocks = append(l.blocks, blockNode{name: name})

	return Block{Func: l.fn, ID: id}
}

// Append places instruction v at the end of block b.
func (l *Layout) Append(b Block, v Value) error {
	if !l.Owns(b) {
		return errors.Wrap(ErrInvalidBlockReference, "block %v in func %d", b, l.fn)
	}

	if l.pool == nil {
		return errors.Wrap(ErrInstructionNotOwned, "layout is not attached to a function")
	}

	d, ok := l.pool.Value(v)
	if !ok || !IsInst(d.Kind) {
		return errors.Wrap(ErrInstructionNotOwned, "value %v in func %d", v, l.fn)
	}

	if l.placed.IsSet(v.ID) {
		return errors.Wrap(ErrDuplicateInstruction, "value %v", v)
	}

	bn := &l.blocks[b.ID-1]

	if n := len(bn.insts); n != 0 {
		last, _ := l.pool.Value(bn.insts[n-1])

		if IsTerminator(last.Kind) {
			return errors.Wrap(ErrBlockTerminated, "block %v", bn.name)
		}
	}

	bn.insts = append(bn.insts, v)
	l.placed.Set(v.ID)

	return nil
}

func (l *Layout) Owns(b Block) bool {
	return l.pool != nil && b.Func == l.fn && b.ID > 0 && int(b.ID) <= len(l.blocks)
}

func (l *Layout) Len() int { return len(l.blocks) }

func (l *Layout) Blocks() []Block {
	r := make([]Block, len(l.blocks))

	for i := range l.blocks {
		r[i] = Block{Func: l.fn, ID: int32(i + 1)}
	}

	return r
}

// Insts returns instructions of b in execution order. It's nil for foreign blocks.
func (l *Layout) Insts(b Block) []Value {
	if !l.Owns(b) {
		return nil
	}

	return l.blocks[b.ID-1].insts
}

func (l *Layout) Name(b Block) string {
	if !l.Owns(b) {
		return ""
	}

	return l.blocks[b.ID-1].name
}

// Index returns registration index of b, or -1 if b is not in the layout.
func (l *Layout) Index(b Block) int {
	if !l.Owns(b) {
		return -1
	}

	return int(b.ID - 1)
}

// Terminated reports whether the last instruction of b is a branch, jump or return.
func (l *Layout) Terminated(b Block) bool {
	insts := l.Insts(b)
	if len(insts) == 0 {
		return false
	}

	d, _ := l.pool.Value(insts[len(insts)-1])

	return IsTerminator(d.Kind)
}

// Placed reports whether instruction v is already in some block.
func (l *Layout) Placed(v Value) bool {
	return v.Scope == l.fn && l.placed.IsSet(v.ID)
}
