package parse

import (
	"bytes"
	"context"
)

type (
	Skipper interface {
		Skip(b []byte, st int) int
	}

	Spaces uint64

	// blanks skips spaces and comments.
	blanks struct{}

	Spacer struct {
		Skip Skipper
		Of   Parser
	}
)

var (
	Space    = NewSpaces(' ')
	SpaceTab = NewSpaces(' ', '\t')
	SpaceAll = NewSpaces(' ', '\t', '\r', '\n')

	Blanks blanks
)

func NewSpaces(skip ...byte) (ss Spaces) {
	for _, q := range skip {
		if q >= 64 {
			panic("too high char code")
		}

		ss |= 1 << q
	}

	return
}

func (s Spaces) Skip(b []byte, st int) (i int) {
	i = st

	for i < len(b) && b[i] < 64 && s&(1<<b[i]) != 0 {
		i++
	}

	return
}

func (blanks) Skip(b []byte, st int) (i int) {
	i = st

	for {
		i = SpaceAll.Skip(b, i)

		switch {
		case bytes.HasPrefix(b[i:], []byte("//")):
			end := bytes.IndexByte(b[i:], '\n')
			if end < 0 {
				return len(b)
			}

			i += end + 1
		case bytes.HasPrefix(b[i:], []byte("/*")):
			end := bytes.Index(b[i+2:], []byte("*/"))
			if end < 0 {
				return i // unterminated comment is left for the parser to reject
			}

			i += 2 + end + 2
		default:
			return i
		}
	}
}

func Spaced(p Parser, s Skipper) Spacer {
	return Spacer{
		Skip: s,
		Of:   p,
	}
}

// Tok is p preceded by any blanks.
func Tok(p Parser) Spacer {
	return Spaced(p, Blanks)
}

func (p Spacer) Parse(ctx context.Context, b []byte, st int) (x any, i int, err error) {
	vst := p.Skip.Skip(b, st)

	x, i, err = p.Of.Parse(ctx, b, vst)
	if err != nil && i == vst {
		i = st
	}

	return
}

func (p Spacer) String() string { return name(p.Of) }
