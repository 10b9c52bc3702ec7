package types

import "errors"

var (
	// ErrOverflow is returned when an addition would leave the 256-bit domain.
	ErrOverflow = errors.New("balance overflow")
	// ErrUnderflow is returned when a checked subtraction would go below zero.
	ErrUnderflow = errors.New("balance underflow")
	// ErrTokenCount is returned when two vectors disagree on the number of tokens.
	ErrTokenCount = errors.New("token count mismatch")
)
