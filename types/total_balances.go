package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// TotalBalances is the running per-token sum over all accounts. Values are
// immutable: Add and Sub return a new aggregate and leave the receiver untouched.
type TotalBalances struct {
	balances Balances
}

func NewTotalBalances(numTokens int) TotalBalances {
	return TotalBalances{balances: NewBalances(numTokens)}
}

func TotalBalancesOf(balances Balances) TotalBalances {
	return TotalBalances{balances: balances.Clone()}
}

// SumBalances recomputes the aggregate from scratch.
func SumBalances(numTokens int, accounts []*Account) (TotalBalances, error) {
	total := NewTotalBalances(numTokens)
	for _, account := range accounts {
		var err error
		total, err = total.Add(account)
		if err != nil {
			return TotalBalances{}, fmt.Errorf("account %d: %w", account.ID, err)
		}
	}
	return total, nil
}

func (t TotalBalances) Len() int {
	return len(t.balances)
}

// Balances returns a copy of the per-token totals.
func (t TotalBalances) Balances() Balances {
	return t.balances.Clone()
}

func (t TotalBalances) Add(account *Account) (TotalBalances, error) {
	if err := checkTokenCount(len(t.balances), len(account.Balances)); err != nil {
		return TotalBalances{}, err
	}
	next := NewBalances(len(t.balances))
	for i := range t.balances {
		if _, overflow := next[i].AddOverflow(&t.balances[i], &account.Balances[i]); overflow {
			return TotalBalances{}, fmt.Errorf("%w: token %d", ErrOverflow, i)
		}
	}
	return TotalBalances{balances: next}, nil
}

// Sub removes an account's balances. With checked set, any token where the
// account holds more than the aggregate fails with ErrUnderflow; unchecked
// subtraction wraps modulo 2^256 and is meant for replay from a trusted source.
func (t TotalBalances) Sub(account *Account, checked bool) (TotalBalances, error) {
	if err := checkTokenCount(len(t.balances), len(account.Balances)); err != nil {
		return TotalBalances{}, err
	}
	next := NewBalances(len(t.balances))
	for i := range t.balances {
		if _, underflow := next[i].SubOverflow(&t.balances[i], &account.Balances[i]); underflow && checked {
			return TotalBalances{}, fmt.Errorf("%w: token %d", ErrUnderflow, i)
		}
	}
	return TotalBalances{balances: next}, nil
}

func (t TotalBalances) Hash() common.Hash {
	return t.balances.Hash()
}

func (t TotalBalances) Equal(other TotalBalances) bool {
	return t.balances.Equal(other.balances)
}

// Exceeds returns the first token whose total is above reserves, or -1.
func (t TotalBalances) Exceeds(reserves Balances) (int, error) {
	if err := checkTokenCount(len(t.balances), len(reserves)); err != nil {
		return -1, err
	}
	for i := range t.balances {
		if t.balances[i].Gt(&reserves[i]) {
			return i, nil
		}
	}
	return -1, nil
}

func (t TotalBalances) String() string {
	return t.balances.String()
}
