package types

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Balances is an ordered vector holding one amount per token.
type Balances []uint256.Int

func NewBalances(numTokens int) Balances {
	return make(Balances, numTokens)
}

func BalancesFromUint64(values ...uint64) Balances {
	balances := make(Balances, len(values))
	for i, v := range values {
		balances[i].SetUint64(v)
	}
	return balances
}

// BalancesFromBig converts ABI decoded amounts. Negative or wider than 256 bits is an overflow.
func BalancesFromBig(values []*big.Int) (Balances, error) {
	balances := make(Balances, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		if v.Sign() < 0 {
			return nil, fmt.Errorf("%w: token %d is negative", ErrUnderflow, i)
		}
		converted, overflow := uint256.FromBig(v)
		if overflow {
			return nil, fmt.Errorf("%w: token %d", ErrOverflow, i)
		}
		balances[i] = *converted
	}
	return balances, nil
}

func (b Balances) Clone() Balances {
	if b == nil {
		return nil
	}
	clone := make(Balances, len(b))
	copy(clone, b)
	return clone
}

func (b Balances) Equal(other Balances) bool {
	if len(b) != len(other) {
		return false
	}
	for i := range b {
		if !b[i].Eq(&other[i]) {
			return false
		}
	}
	return true
}

// Encode packs every amount as a 32 byte big endian word, in token order.
func (b Balances) Encode() []byte {
	encoded := make([]byte, 0, 32*len(b))
	for i := range b {
		word := b[i].Bytes32()
		encoded = append(encoded, word[:]...)
	}
	return encoded
}

// Hash is the commitment H(balances).
func (b Balances) Hash() common.Hash {
	return crypto.Keccak256Hash(b.Encode())
}

func (b Balances) Big() []*big.Int {
	values := make([]*big.Int, len(b))
	for i := range b {
		values[i] = b[i].ToBig()
	}
	return values
}

func (b Balances) String() string {
	parts := make([]string, len(b))
	for i := range b {
		parts[i] = b[i].Dec()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func checkTokenCount(want int, got int) error {
	if want != got {
		return fmt.Errorf("%w: want %d, got %d", ErrTokenCount, want, got)
	}
	return nil
}
