package protocol

import "errors"

var (
	ErrMissingStart     = errors.New("protocol: missing start marker")
	ErrMissingEnd       = errors.New("protocol: missing end marker")
	ErrMissingValue     = errors.New("protocol: response value not parenthesised")
	ErrEmptyPayload     = errors.New("protocol: empty payload")
	ErrInvalidOpcode    = errors.New("protocol: invalid opcode")
	ErrReservedArgument = errors.New("protocol: argument contains frame marker")
	ErrValueKind        = errors.New("protocol: value kind mismatch")
)
