package back

import "github.com/slowlang/sysyc/compiler/set"

type BitsInt = set.Bits[int]

func alignUp[K ~int | ~int32](x, a K) K {
	if a <= 1 {
		return x
	}

	return (x + a - 1) / a * a
}
