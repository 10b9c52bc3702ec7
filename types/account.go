package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Account is a customer's liabilities, one balance per supported token.
type Account struct {
	ID       uint64
	Balances Balances
}

func NewAccount(id uint64, values ...uint64) *Account {
	return &Account{
		ID:       id,
		Balances: BalancesFromUint64(values...),
	}
}

// Hash is the leaf commitment H(id, balances).
func (a *Account) Hash() common.Hash {
	id := uint256.NewInt(a.ID).Bytes32()
	return crypto.Keccak256Hash(id[:], a.Balances.Encode())
}

func (a *Account) Clone() *Account {
	return &Account{
		ID:       a.ID,
		Balances: a.Balances.Clone(),
	}
}

func (a *Account) Equal(other *Account) bool {
	return other != nil && a.ID == other.ID && a.Balances.Equal(other.Balances)
}
