package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// DefaultTokenNames is the agreed token ordering of the aggregate vector.
var DefaultTokenNames = []string{"ETH", "MATIC", "USDC", "BTC"}

const accountIDField = "id"

// TokenSet maps token names to vector indices and converts account records
// between the external JSON form and Account.
type TokenSet struct {
	names []string
	index map[string]int
}

func NewTokenSet(names ...string) (*TokenSet, error) {
	if len(names) == 0 {
		return nil, errors.New("token set must not be empty")
	}
	index := make(map[string]int, len(names))
	for i, name := range names {
		if name == "" || name == accountIDField {
			return nil, fmt.Errorf("invalid token name %q", name)
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate token name %q", name)
		}
		index[name] = i
	}
	return &TokenSet{
		names: append([]string{}, names...),
		index: index,
	}, nil
}

func DefaultTokenSet() *TokenSet {
	tokens, _ := NewTokenSet(DefaultTokenNames...)
	return tokens
}

func (ts *TokenSet) Len() int {
	return len(ts.names)
}

func (ts *TokenSet) Names() []string {
	return append([]string{}, ts.names...)
}

func (ts *TokenSet) Index(name string) (int, bool) {
	i, ok := ts.index[name]
	return i, ok
}

// DecodeBalances reads {"ETH": n, ...}. Missing tokens are zero, unknown keys are rejected.
func (ts *TokenSet) DecodeBalances(fields map[string]json.RawMessage) (Balances, error) {
	balances := NewBalances(ts.Len())
	for name, raw := range fields {
		i, ok := ts.index[name]
		if !ok {
			return nil, fmt.Errorf("unknown token %q", name)
		}
		value, err := decodeAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", name, err)
		}
		balances[i] = *value
	}
	return balances, nil
}

// EncodeBalances writes balances as a token name keyed object with decimal strings.
func (ts *TokenSet) EncodeBalances(balances Balances) (map[string]string, error) {
	if err := checkTokenCount(ts.Len(), len(balances)); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(balances))
	for i, name := range ts.names {
		out[name] = balances[i].Dec()
	}
	return out, nil
}

// DecodeAccount parses the external record {"id": n, "<TOKEN>": n, ...}.
func (ts *TokenSet) DecodeAccount(data []byte) (*Account, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	rawID, ok := fields[accountIDField]
	if !ok {
		return nil, errors.New("account record without id")
	}
	delete(fields, accountIDField)
	id, err := decodeID(rawID)
	if err != nil {
		return nil, err
	}
	balances, err := ts.DecodeBalances(fields)
	if err != nil {
		return nil, fmt.Errorf("account %d: %w", id, err)
	}
	return &Account{ID: id, Balances: balances}, nil
}

func (ts *TokenSet) EncodeAccount(account *Account) ([]byte, error) {
	fields, err := ts.EncodeBalances(account.Balances)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(fields)+1)
	for name, value := range fields {
		out[name] = json.Number(value)
	}
	out[accountIDField] = account.ID
	return json.Marshal(out)
}

// LoadAccounts reads a JSON array of account records. A repeated id replaces
// the earlier record; the result keeps first-seen order.
func (ts *TokenSet) LoadAccounts(r io.Reader) ([]*Account, error) {
	var records []json.RawMessage
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode account file: %w", err)
	}
	position := make(map[uint64]int, len(records))
	accounts := make([]*Account, 0, len(records))
	for i, record := range records {
		account, err := ts.DecodeAccount(record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if at, seen := position[account.ID]; seen {
			accounts[at] = account
			continue
		}
		position[account.ID] = len(accounts)
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// amounts may be JSON numbers or decimal strings, so values above 2^53 survive.
func decodeAmount(raw json.RawMessage) (*uint256.Int, error) {
	text, err := numberText(raw)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(text, "-") {
		return nil, fmt.Errorf("negative amount %s", text)
	}
	value, err := uint256.FromDecimal(text)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %s: %w", text, err)
	}
	return value, nil
}

func decodeID(raw json.RawMessage) (uint64, error) {
	text, err := numberText(raw)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid account id %s: %w", text, err)
	}
	return id, nil
}

func numberText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
