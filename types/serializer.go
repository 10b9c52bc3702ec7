package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Serializer ABI encodes the records the keeper persists: account records
// and bare balance vectors (aggregate and attested reserves).
type Serializer struct {
	typeRegistry      *typeRegistry
	accountArguments  abi.Arguments
	balancesArguments abi.Arguments
}

type accountRecord struct {
	Id       uint64
	Balances []*big.Int
}

func NewSerializer() (*Serializer, error) {
	r, err := newTypeRegistry()
	if err != nil {
		return nil, err
	}
	return &Serializer{
		typeRegistry: r,
		accountArguments: abi.Arguments([]abi.Argument{
			{Name: "id", Type: r.uint64Ty, Indexed: false},
			{Name: "balances", Type: r.uint256SliceTy, Indexed: false},
		}),
		balancesArguments: abi.Arguments([]abi.Argument{
			{Name: "balances", Type: r.uint256SliceTy, Indexed: false},
		}),
	}, nil
}

func (s *Serializer) SerializeAccount(account *Account) ([]byte, error) {
	data, err := s.accountArguments.Pack(account.ID, account.Balances.Big())
	if err != nil {
		return nil, fmt.Errorf("Serialize Account %d: %w", account.ID, err)
	}
	return data, nil
}

func (s *Serializer) DeserializeAccount(data []byte) (*Account, error) {
	var record accountRecord
	err := s.accountArguments.Unpack(&record, data)
	if err != nil {
		return nil, fmt.Errorf("Deserialize Account, data %x: %w", data, err)
	}
	balances, err := BalancesFromBig(record.Balances)
	if err != nil {
		return nil, fmt.Errorf("Deserialize Account %d: %w", record.Id, err)
	}
	return &Account{ID: record.Id, Balances: balances}, nil
}

func (s *Serializer) SerializeBalances(balances Balances) ([]byte, error) {
	data, err := s.balancesArguments.Pack(balances.Big())
	if err != nil {
		return nil, fmt.Errorf("Serialize Balances %s: %w", balances, err)
	}
	return data, nil
}

func (s *Serializer) DeserializeBalances(data []byte) (Balances, error) {
	var values []*big.Int
	err := s.balancesArguments.Unpack(&values, data)
	if err != nil {
		return nil, fmt.Errorf("Deserialize Balances, data %x: %w", data, err)
	}
	return BalancesFromBig(values)
}
