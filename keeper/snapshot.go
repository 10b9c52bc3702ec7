package keeper

import (
	"fmt"
	"io/ioutil"

	"github.com/celer-network/go-reserves/statemachine"
	"github.com/celer-network/go-reserves/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"gopkg.in/yaml.v2"
)

// Snapshot is the published form of the ledger: the committed quadruple and
// the policy it runs under. With a snapshot, an account record and its
// witness anyone can rerun VerifyAccount.
type Snapshot struct {
	AccountTreeRoot    string   `yaml:"account_tree_root"`
	TotalBalancesHash  string   `yaml:"total_balances_hash"`
	OraclePublicKey    string   `yaml:"oracle_public_key"`
	OracleBalancesHash string   `yaml:"oracle_balances_hash"`
	Depth              int      `yaml:"depth"`
	Tokens             []string `yaml:"tokens"`
	AllowReinit        bool     `yaml:"allow_reinit"`
	RequireEmptyLeaf   bool     `yaml:"require_empty_leaf"`
}

func NewSnapshot(state statemachine.LedgerState, opts statemachine.Options, tokens *types.TokenSet) *Snapshot {
	return &Snapshot{
		AccountTreeRoot:    state.AccountTreeRoot.Hex(),
		TotalBalancesHash:  state.TotalBalancesHash.Hex(),
		OraclePublicKey:    state.OraclePublicKey.Hex(),
		OracleBalancesHash: state.OracleBalancesHash.Hex(),
		Depth:              opts.Depth,
		Tokens:             tokens.Names(),
		AllowReinit:        opts.AllowReinit,
		RequireEmptyLeaf:   opts.RequireEmptyLeaf,
	}
}

func (s *Snapshot) LedgerState() (statemachine.LedgerState, error) {
	var state statemachine.LedgerState
	var err error
	if state.AccountTreeRoot, err = decodeHash(s.AccountTreeRoot); err != nil {
		return state, fmt.Errorf("account_tree_root: %w", err)
	}
	if state.TotalBalancesHash, err = decodeHash(s.TotalBalancesHash); err != nil {
		return state, fmt.Errorf("total_balances_hash: %w", err)
	}
	if state.OracleBalancesHash, err = decodeHash(s.OracleBalancesHash); err != nil {
		return state, fmt.Errorf("oracle_balances_hash: %w", err)
	}
	if err = state.OraclePublicKey.UnmarshalText([]byte(s.OraclePublicKey)); err != nil {
		// the zero key is what an unset oracle serializes to
		if s.OraclePublicKey != (types.PublicKey{}).Hex() {
			return state, fmt.Errorf("oracle_public_key: %w", err)
		}
	}
	return state, nil
}

func (s *Snapshot) Options() statemachine.Options {
	return statemachine.Options{
		AllowReinit:      s.AllowReinit,
		RequireEmptyLeaf: s.RequireEmptyLeaf,
		Depth:            s.Depth,
	}
}

func (s *Snapshot) TokenSet() (*types.TokenSet, error) {
	return types.NewTokenSet(s.Tokens...)
}

func SaveSnapshot(path string, snapshot *Snapshot) error {
	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, data, 0644)
}

func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snapshot Snapshot
	if err = yaml.UnmarshalStrict(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return &snapshot, nil
}

func decodeHash(s string) (common.Hash, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(raw) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid hash length %d", len(raw))
	}
	return common.BytesToHash(raw), nil
}
