package types

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maxBalance() uint256.Int {
	var max uint256.Int
	max.SetAllOne()
	return max
}

func TestTotalBalancesAddIsImmutable(t *testing.T) {
	total := NewTotalBalances(2)
	next, err := total.Add(NewAccount(1, 100, 100))
	require.NoError(t, err)

	assert.True(t, total.Equal(NewTotalBalances(2)), "receiver must not change")
	assert.True(t, next.Balances().Equal(BalancesFromUint64(100, 100)))
	assert.Equal(t, BalancesFromUint64(100, 100).Hash(), next.Hash())
}

func TestTotalBalancesAddOverflow(t *testing.T) {
	balances := NewBalances(2)
	balances[1] = maxBalance()
	total := TotalBalancesOf(balances)

	_, err := total.Add(NewAccount(1, 0, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOverflow))
	assert.Contains(t, err.Error(), "token 1")

	next, err := total.Add(NewAccount(1, 5, 0))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), next.Balances()[0].Uint64())
}

func TestTotalBalancesCheckedSub(t *testing.T) {
	total := TotalBalancesOf(BalancesFromUint64(100, 50))

	next, err := total.Sub(NewAccount(1, 40, 50), true)
	require.NoError(t, err)
	assert.True(t, next.Balances().Equal(BalancesFromUint64(60, 0)))

	_, err = total.Sub(NewAccount(1, 40, 51), true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnderflow))
	assert.True(t, total.Balances().Equal(BalancesFromUint64(100, 50)))
}

func TestTotalBalancesUncheckedSubWraps(t *testing.T) {
	total := TotalBalancesOf(BalancesFromUint64(0))

	wrapped, err := total.Sub(NewAccount(1, 1), false)
	require.NoError(t, err)
	max := maxBalance()
	assert.True(t, wrapped.Balances()[0].Eq(&max))

	restored, err := wrapped.Add(NewAccount(1, 1))
	assert.True(t, errors.Is(err, ErrOverflow), "wrapping back is still an overflow")
	assert.True(t, restored.Equal(TotalBalances{}))
}

func TestTotalBalancesTokenCount(t *testing.T) {
	total := NewTotalBalances(2)
	_, err := total.Add(NewAccount(1, 1, 2, 3))
	assert.True(t, errors.Is(err, ErrTokenCount))
	_, err = total.Sub(NewAccount(1, 1), true)
	assert.True(t, errors.Is(err, ErrTokenCount))
	_, err = total.Exceeds(BalancesFromUint64(1))
	assert.True(t, errors.Is(err, ErrTokenCount))
}

func TestSumBalancesMatchesIncremental(t *testing.T) {
	accounts := []*Account{
		NewAccount(1, 10, 20, 30),
		NewAccount(7, 1, 2, 3),
		NewAccount(9, 100, 0, 5),
	}
	total, err := SumBalances(3, accounts)
	require.NoError(t, err)
	assert.True(t, total.Balances().Equal(BalancesFromUint64(111, 22, 38)))

	// replace account 7 the way an update does
	updated, err := total.Sub(accounts[1], true)
	require.NoError(t, err)
	updated, err = updated.Add(NewAccount(7, 4, 4, 4))
	require.NoError(t, err)

	accounts[1] = NewAccount(7, 4, 4, 4)
	fromScratch, err := SumBalances(3, accounts)
	require.NoError(t, err)
	assert.Equal(t, fromScratch.Hash(), updated.Hash())
}

func TestExceeds(t *testing.T) {
	total := TotalBalancesOf(BalancesFromUint64(100, 1050))
	token, err := total.Exceeds(BalancesFromUint64(1000, 1000))
	require.NoError(t, err)
	assert.Equal(t, 1, token)

	token, err = total.Exceeds(BalancesFromUint64(100, 1050))
	require.NoError(t, err)
	assert.Equal(t, -1, token)
}
