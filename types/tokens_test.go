package types

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenSetRejectsBadNames(t *testing.T) {
	_, err := NewTokenSet()
	assert.Error(t, err)
	_, err = NewTokenSet("ETH", "ETH")
	assert.Error(t, err)
	_, err = NewTokenSet("ETH", "id")
	assert.Error(t, err)
}

func TestDecodeAccount(t *testing.T) {
	tokens := DefaultTokenSet()
	account, err := tokens.DecodeAccount([]byte(`{"id": 1001, "ETH": 5, "MATIC": "123456789012345678901234567890", "BTC": 1}`))
	require.NoError(t, err)

	assert.Equal(t, uint64(1001), account.ID)
	require.Len(t, account.Balances, 4)
	assert.Equal(t, "5", account.Balances[0].Dec())
	assert.Equal(t, "123456789012345678901234567890", account.Balances[1].Dec())
	assert.True(t, account.Balances[2].IsZero(), "missing token defaults to zero")
	assert.Equal(t, "1", account.Balances[3].Dec())
}

func TestDecodeAccountErrors(t *testing.T) {
	tokens := DefaultTokenSet()
	_, err := tokens.DecodeAccount([]byte(`{"ETH": 5}`))
	assert.Error(t, err)
	_, err = tokens.DecodeAccount([]byte(`{"id": 1, "DOGE": 5}`))
	assert.Error(t, err)
	_, err = tokens.DecodeAccount([]byte(`{"id": 1, "ETH": -5}`))
	assert.Error(t, err)
	_, err = tokens.DecodeAccount([]byte(`{"id": -1}`))
	assert.Error(t, err)
}

func TestEncodeAccount(t *testing.T) {
	tokens, err := NewTokenSet("ETH", "USDC")
	require.NoError(t, err)

	data, err := tokens.EncodeAccount(NewAccount(42, 7, 9))
	require.NoError(t, err)

	var fields map[string]json.Number
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, json.Number("42"), fields["id"])
	assert.Equal(t, json.Number("7"), fields["ETH"])
	assert.Equal(t, json.Number("9"), fields["USDC"])

	decoded, err := tokens.DecodeAccount(data)
	require.NoError(t, err)
	assert.True(t, decoded.Equal(NewAccount(42, 7, 9)))
}

func TestLoadAccountsKeepsLatestRecord(t *testing.T) {
	tokens := DefaultTokenSet()
	file := `[
		{"id": 1000, "ETH": 1, "MATIC": 2, "USDC": 3, "BTC": 1},
		{"id": 1001, "ETH": 4, "MATIC": 5, "USDC": 6, "BTC": 1},
		{"id": 1000, "ETH": 9, "MATIC": 9, "USDC": 9, "BTC": 9}
	]`
	accounts, err := tokens.LoadAccounts(strings.NewReader(file))
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.True(t, accounts[0].Equal(NewAccount(1000, 9, 9, 9, 9)))
	assert.True(t, accounts[1].Equal(NewAccount(1001, 4, 5, 6, 1)))

	_, err = tokens.LoadAccounts(strings.NewReader(`{"id": 1}`))
	assert.Error(t, err)
}
