package parse

import (
	"context"
	"math"

	"tlog.app/go/errors"

	"github.com/slowlang/sysyc/compiler/ast"
)

type (
	// Int is a decimal, octal (0 prefix) or hexadecimal (0x prefix) integer constant.
	// Values up to 2^32-1 are accepted and wrapped to 32 bits.
	Int struct{}
)

func (p Int) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	i = st

	base := uint64(10)

	if i+1 < len(b) && b[i] == '0' && (b[i+1] == 'x' || b[i+1] == 'X') {
		base = 16
		i += 2
	} else if i < len(b) && b[i] == '0' {
		base = 8
	}

	dst := i

	var v uint64

	for ; i < len(b); i++ {
		d := digit(b[i])
		if d < 0 {
			break
		}

		if uint64(d) >= base {
			return nil, i, errors.New("bad digit %q in base %d constant", b[i], base)
		}

		v = v*base + uint64(d)

		if v > math.MaxUint32 {
			return nil, i, errors.New("integer constant out of range")
		}
	}

	if i == dst {
		if base == 16 {
			return nil, i, errors.New("hex digits expected")
		}

		return nil, st, errors.New("integer expected")
	}

	if i < len(b) && isIdentChar(b[i]) {
		return nil, i, errors.New("bad integer suffix")
	}

	return ast.Int{
		Base: ast.Base{
			Pos: st,
			End: i,
		},
		Value: int32(uint32(v)),
	}, i, nil
}

func (p Int) String() string { return "integer" }

func digit(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	default:
		return -1
	}
}
