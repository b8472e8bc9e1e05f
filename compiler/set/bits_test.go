package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"tlog.app/go/tlog/tlwire"
)

func TestBits(t *testing.T) {
	s := MakeBits[int32](1)

	assert.False(t, s.IsSet(1))
	assert.False(t, s.IsSet(0))

	s.Set(1)
	s.Set(65)
	s.Set(200)

	assert.True(t, s.IsSet(1))
	assert.True(t, s.IsSet(65))
	assert.True(t, s.IsSet(200))
	assert.False(t, s.IsSet(2))
	assert.False(t, s.IsSet(1000))
	assert.Equal(t, 3, s.Size())

	var got []int32

	s.Range(func(k int32) bool {
		got = append(got, k)
		return true
	})

	assert.Equal(t, []int32{1, 65, 200}, got)

	s.Reset()
	assert.Equal(t, 0, s.Size())
}

func TestBitsZero(t *testing.T) {
	var s Bits[int]

	assert.False(t, s.IsSet(3))

	s.Set(3)
	assert.True(t, s.IsSet(3))
}

func TestBitsTlogAppend(t *testing.T) {
	var e tlwire.LowEncoder

	var s Bits[int]
	assert.Equal(t, e.AppendNil(nil), s.TlogAppend(nil))

	s = MakeBits(0)
	s.Set(2)
	s.Set(70)

	exp := e.AppendTag(nil, tlwire.Array, -1)
	exp = e.AppendInt(exp, 2)
	exp = e.AppendInt(exp, 70)
	exp = e.AppendBreak(exp)

	assert.Equal(t, exp, s.TlogAppend(nil))
}
