package ir

import "tlog.app/go/errors"

var (
	ErrUnresolvedOperand     = errors.New("unresolved operand")
	ErrTypeMismatch          = errors.New("type mismatch")
	ErrInvalidBlockReference = errors.New("invalid block reference")
	ErrInstructionNotOwned   = errors.New("instruction not owned")
	ErrDuplicateInstruction  = errors.New("instruction already placed")
	ErrBlockTerminated       = errors.New("block already terminated")
	ErrEmptyFunction         = errors.New("empty function")
	ErrUnknownFunction       = errors.New("unknown function")
	ErrNotUndef              = errors.New("value is already defined")
)
