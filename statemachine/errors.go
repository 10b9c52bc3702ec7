package statemachine

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

var (
	ErrIdMismatch         = errors.New("account id mismatch")
	ErrStaleWitness       = errors.New("stale witness")
	ErrInvalidId          = errors.New("Invalid Account Id")
	ErrInvalidRoot        = errors.New("Invalid Merkle Root")
	ErrStaleAggregate     = errors.New("stale total balances")
	ErrStaleOracle        = errors.New("stale oracle balances")
	ErrSolvencyExceeded   = errors.New("liabilities exceed reserves")
	ErrBadSignature       = errors.New("bad oracle signature")
	ErrUninitialized      = errors.New("ledger not initialized")
	ErrAlreadyInitialized = errors.New("ledger already initialized")
)

// SolvencyError reports the first token whose liabilities exceed the attested reserves.
type SolvencyError struct {
	Token       int
	Liabilities uint256.Int
	Reserves    uint256.Int
}

func (e *SolvencyError) Error() string {
	return fmt.Sprintf("%s: token %d liabilities %s reserves %s",
		ErrSolvencyExceeded, e.Token, e.Liabilities.Dec(), e.Reserves.Dec())
}

func (e *SolvencyError) Is(target error) bool {
	return target == ErrSolvencyExceeded
}

// IsTransient reports whether err was caused by a concurrent transition and
// the call may succeed after refreshing witness and aggregate.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStaleWitness) ||
		errors.Is(err, ErrStaleAggregate) ||
		errors.Is(err, ErrStaleOracle)
}
