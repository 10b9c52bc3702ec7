package keeper

import (
	reservesdb "github.com/celer-network/go-reserves/db"
	"github.com/celer-network/go-reserves/types"
	"github.com/ethereum/go-ethereum/common"
)

// store keeps account records, aggregates and attestations keyed by their
// commitment. Records are written before a transition is submitted, so any
// committed state can be read back by its hashes no matter which keeper
// produced it, and records of rejected transitions are harmless.
type store struct {
	db         reservesdb.DB
	serializer *types.Serializer
}

func newStore(db reservesdb.DB) (*store, error) {
	serializer, err := types.NewSerializer()
	if err != nil {
		return nil, err
	}
	return &store{db: db, serializer: serializer}, nil
}

func (s *store) putAccounts(bulk reservesdb.Bulk, accounts ...*types.Account) error {
	for _, account := range accounts {
		data, err := s.serializer.SerializeAccount(account)
		if err != nil {
			return err
		}
		if err = bulk.Set(reservesdb.NamespaceAccount, account.Hash().Bytes(), data); err != nil {
			return err
		}
	}
	return nil
}

func (s *store) putTotals(bulk reservesdb.Bulk, totals types.TotalBalances) error {
	data, err := s.serializer.SerializeBalances(totals.Balances())
	if err != nil {
		return err
	}
	return bulk.Set(reservesdb.NamespaceTotals, totals.Hash().Bytes(), data)
}

func (s *store) putOracle(bulk reservesdb.Bulk, oracle types.OracleBalances) error {
	data, err := s.serializer.SerializeBalances(oracle.Balances())
	if err != nil {
		return err
	}
	return bulk.Set(reservesdb.NamespaceOracle, oracle.Hash().Bytes(), data)
}

func (s *store) account(leaf common.Hash) (*types.Account, error) {
	data, exists, err := s.db.Get(reservesdb.NamespaceAccount, leaf.Bytes())
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrMissingRecord
	}
	return s.serializer.DeserializeAccount(data)
}

func (s *store) totals(hash common.Hash) (types.TotalBalances, error) {
	balances, err := s.balances(reservesdb.NamespaceTotals, hash)
	if err != nil {
		return types.TotalBalances{}, err
	}
	return types.TotalBalancesOf(balances), nil
}

func (s *store) oracle(hash common.Hash) (types.OracleBalances, error) {
	balances, err := s.balances(reservesdb.NamespaceOracle, hash)
	if err != nil {
		return types.OracleBalances{}, err
	}
	return types.NewOracleBalances(balances), nil
}

func (s *store) balances(namespace []byte, hash common.Hash) (types.Balances, error) {
	data, exists, err := s.db.Get(namespace, hash.Bytes())
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrMissingRecord
	}
	return s.serializer.DeserializeBalances(data)
}

// forEachAccount visits every stored account record, current or not.
func (s *store) forEachAccount(fn func(account *types.Account) error) error {
	return reservesdb.ForEach(s.db, reservesdb.NamespaceAccount, func(key []byte, value []byte) error {
		account, err := s.serializer.DeserializeAccount(value)
		if err != nil {
			return err
		}
		return fn(account)
	})
}
