// Package keeper holds the off-chain replica of the ledger: the full account
// tree, the account records, the aggregate and the attested reserves. It
// prepares transitions with fresh witnesses, submits them and rebases on
// stale rejections.
package keeper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	reservesdb "github.com/celer-network/go-reserves/db"
	"github.com/celer-network/go-reserves/log"
	"github.com/celer-network/go-reserves/smt"
	"github.com/celer-network/go-reserves/statemachine"
	"github.com/celer-network/go-reserves/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

var logger = log.NewLogger("keeper")

// Ledger is the committed ledger transitions are submitted to.
type Ledger interface {
	State() (statemachine.LedgerState, bool)
	InitState(state statemachine.LedgerState) error
	AddAccount(
		account *types.Account,
		witness *smt.Witness,
		currentAggregate types.TotalBalances,
		oracle types.OracleBalances,
	) (statemachine.LedgerState, error)
	UpdateAccount(
		oldAccount *types.Account,
		oldWitness *smt.Witness,
		newAccount *types.Account,
		currentAggregate types.TotalBalances,
		oracle types.OracleBalances,
	) (statemachine.LedgerState, error)
	UpdateOracleBalance(attestation types.OracleBalances, signature []byte) (statemachine.LedgerState, error)
	VerifyAccount(account *types.Account, witness *smt.Witness) error
}

var _ Ledger = (*statemachine.StateMachine)(nil)

// Proof bundles what an account holder needs to check inclusion.
type Proof struct {
	Account *types.Account `json:"-"`
	Witness *smt.Witness   `json:"witness"`
	Root    common.Hash    `json:"root"`
}

type Keeper struct {
	lock    sync.Mutex
	config  Config
	ledger  Ledger
	store   *store
	tree    *smt.SparseMerkleTree
	state   statemachine.LedgerState
	synced  bool
	totals  types.TotalBalances
	oracle  types.OracleBalances
	metrics *metrics
}

// NewKeeper opens the replica stored in db. If the ledger is initialized the
// replica is loaded from its commitments, otherwise Genesis must be called.
func NewKeeper(config Config, db reservesdb.DB, ledger Ledger) (*Keeper, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	st, err := newStore(db)
	if err != nil {
		return nil, err
	}
	tree, err := smt.NewSparseMerkleTree(db, smt.NewHasher(), common.Hash{}, config.Depth)
	if err != nil {
		return nil, err
	}
	k := &Keeper{
		config:  config,
		ledger:  ledger,
		store:   st,
		tree:    tree,
		totals:  types.NewTotalBalances(config.Tokens.Len()),
		metrics: newMetrics(),
	}
	if _, initialized := ledger.State(); initialized {
		if err = k.reload(); err != nil {
			return nil, err
		}
	}
	return k, nil
}

func (k *Keeper) Config() Config {
	return k.config
}

// Registry exposes the keeper's metrics for scraping.
func (k *Keeper) Registry() *prometheus.Registry {
	return k.metrics.registry
}

// Genesis builds the replica from accounts and initializes the ledger with it.
// Later records win when ids repeat. An empty reserves vector leaves the
// ledger without attestation.
func (k *Keeper) Genesis(accounts []*types.Account, oraclePublicKey types.PublicKey, reserves types.OracleBalances) (statemachine.LedgerState, error) {
	k.lock.Lock()
	defer k.lock.Unlock()
	k.synced = false

	numTokens := k.config.Tokens.Len()
	latest := make(map[uint64]*types.Account, len(accounts))
	keys := make([]uint64, 0, len(accounts))
	for _, account := range accounts {
		if _, seen := latest[account.ID]; !seen {
			keys = append(keys, account.ID)
		}
		latest[account.ID] = account
	}
	unique := make([]*types.Account, 0, len(keys))
	leaves := make([]common.Hash, 0, len(keys))
	for _, id := range keys {
		unique = append(unique, latest[id])
		leaves = append(leaves, latest[id].Hash())
	}

	totals, err := types.SumBalances(numTokens, unique)
	if err != nil {
		return statemachine.LedgerState{}, err
	}
	if reserves.Len() != 0 && reserves.Len() != numTokens {
		return statemachine.LedgerState{}, fmt.Errorf("%w: reserves", types.ErrTokenCount)
	}
	k.tree.SetRoot(k.tree.EmptyRoot())
	root, err := k.tree.UpdateBatch(keys, leaves)
	if err != nil {
		return statemachine.LedgerState{}, err
	}

	bulk := k.store.db.NewBulk()
	if err = k.store.putAccounts(bulk, unique...); err != nil {
		return statemachine.LedgerState{}, err
	}
	if err = k.store.putTotals(bulk, totals); err != nil {
		return statemachine.LedgerState{}, err
	}
	state := statemachine.LedgerState{
		AccountTreeRoot:   root,
		TotalBalancesHash: totals.Hash(),
		OraclePublicKey:   oraclePublicKey,
	}
	if reserves.Len() != 0 {
		if err = k.store.putOracle(bulk, reserves); err != nil {
			return statemachine.LedgerState{}, err
		}
		state.OracleBalancesHash = reserves.Hash()
	}
	if err = bulk.Flush(); err != nil {
		return statemachine.LedgerState{}, err
	}

	if err = k.ledger.InitState(state); err != nil {
		return statemachine.LedgerState{}, err
	}
	logger.Info().Int("accounts", len(unique)).Str("totals", totals.String()).Msg("Genesis applied")
	return state, k.reload()
}

// Reload rebuilds the replica from the ledger's current commitments.
func (k *Keeper) Reload() error {
	k.lock.Lock()
	defer k.lock.Unlock()
	return k.reload()
}

func (k *Keeper) reload() error {
	state, initialized := k.ledger.State()
	if !initialized {
		return statemachine.ErrUninitialized
	}
	if k.synced && state == k.state {
		return nil
	}
	exists, err := k.tree.HasRoot(state.AccountTreeRoot)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("account tree root %s: %w", state.AccountTreeRoot.Hex(), ErrMissingRecord)
	}
	totals, err := k.store.totals(state.TotalBalancesHash)
	if err != nil {
		return fmt.Errorf("total balances %s: %w", state.TotalBalancesHash.Hex(), err)
	}
	oracle := types.OracleBalances{}
	if state.HasOracleBalances() {
		oracle, err = k.store.oracle(state.OracleBalancesHash)
		if errors.Is(err, ErrMissingRecord) {
			// attested by someone else; AcceptOracleBalances supplies the vector
			logger.Warn().Str("hash", state.OracleBalancesHash.Hex()).Msg("Oracle balances unknown to replica")
			oracle = types.OracleBalances{}
		} else if err != nil {
			return err
		}
	}
	k.tree.SetRoot(state.AccountTreeRoot)
	k.state = state
	k.totals = totals
	k.oracle = oracle
	k.synced = true
	logger.Debug().Str("root", state.AccountTreeRoot.Hex()).Msg("Replica reloaded")
	return nil
}

// State returns the commitments the replica was last synced to.
func (k *Keeper) State() statemachine.LedgerState {
	k.lock.Lock()
	defer k.lock.Unlock()
	return k.state
}

func (k *Keeper) TotalBalances() types.TotalBalances {
	k.lock.Lock()
	defer k.lock.Unlock()
	return k.totals
}

func (k *Keeper) OracleBalances() types.OracleBalances {
	k.lock.Lock()
	defer k.lock.Unlock()
	return k.oracle
}

func (k *Keeper) Account(id uint64) (*types.Account, error) {
	k.lock.Lock()
	defer k.lock.Unlock()
	return k.account(id)
}

func (k *Keeper) account(id uint64) (*types.Account, error) {
	leaf, err := k.tree.Get(id)
	if err != nil {
		return nil, err
	}
	if leaf == k.tree.EmptyLeaf() {
		return nil, ErrAccountNotFound
	}
	account, err := k.store.account(leaf)
	if err != nil {
		return nil, fmt.Errorf("account %d: %w", id, err)
	}
	return account, nil
}

func (k *Keeper) Witness(id uint64) (*smt.Witness, error) {
	k.lock.Lock()
	defer k.lock.Unlock()
	return k.tree.Prove(id)
}

func (k *Keeper) Proof(id uint64) (*Proof, error) {
	k.lock.Lock()
	defer k.lock.Unlock()

	account, err := k.account(id)
	if err != nil {
		return nil, err
	}
	witness, err := k.tree.Prove(id)
	if err != nil {
		return nil, err
	}
	return &Proof{Account: account, Witness: witness, Root: k.tree.Root()}, nil
}

// VerifyAccount runs the ledger's inclusion check for the replica's record of id.
func (k *Keeper) VerifyAccount(id uint64) error {
	proof, err := k.Proof(id)
	if err != nil {
		return err
	}
	return k.ledger.VerifyAccount(proof.Account, proof.Witness)
}

// Accounts lists the accounts of the committed tree ordered by id.
func (k *Keeper) Accounts() ([]*types.Account, error) {
	k.lock.Lock()
	defer k.lock.Unlock()

	var accounts []*types.Account
	err := k.store.forEachAccount(func(account *types.Account) error {
		leaf, err := k.tree.Get(account.ID)
		if errors.Is(err, smt.ErrKeyOutOfRange) {
			return nil
		}
		if err != nil {
			return err
		}
		if leaf == account.Hash() {
			accounts = append(accounts, account)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

// AddAccount inserts a new account.
func (k *Keeper) AddAccount(ctx context.Context, account *types.Account) (statemachine.LedgerState, error) {
	account = account.Clone()
	return k.transition(ctx, opAdd, func() (submission, error) {
		if err := k.checkTokens(account); err != nil {
			return nil, err
		}
		_, err := k.account(account.ID)
		if err == nil {
			return nil, ErrAccountExists
		}
		if !errors.Is(err, ErrAccountNotFound) {
			return nil, err
		}
		witness, err := k.tree.Prove(account.ID)
		if err != nil {
			return nil, err
		}
		if _, err = k.tree.UpdateForRoot(account.ID, account.Hash(), k.tree.Root()); err != nil {
			return nil, err
		}
		newTotals, err := k.totals.Add(account)
		if err != nil {
			return nil, err
		}
		if err = k.putRecords(account, newTotals); err != nil {
			return nil, err
		}
		totals, oracle := k.totals, k.oracle
		return func() (statemachine.LedgerState, error) {
			return k.ledger.AddAccount(account, witness, totals, oracle)
		}, nil
	})
}

// UpdateAccount replaces the balances of an existing account.
func (k *Keeper) UpdateAccount(ctx context.Context, account *types.Account) (statemachine.LedgerState, error) {
	account = account.Clone()
	return k.transition(ctx, opUpdate, func() (submission, error) {
		if err := k.checkTokens(account); err != nil {
			return nil, err
		}
		oldAccount, err := k.account(account.ID)
		if err != nil {
			return nil, err
		}
		if oldAccount.Equal(account) {
			return nil, nil
		}
		witness, err := k.tree.Prove(account.ID)
		if err != nil {
			return nil, err
		}
		if _, err = k.tree.UpdateForRoot(account.ID, account.Hash(), k.tree.Root()); err != nil {
			return nil, err
		}
		newTotals, err := k.totals.Sub(oldAccount, true)
		if err != nil {
			return nil, err
		}
		if newTotals, err = newTotals.Add(account); err != nil {
			return nil, err
		}
		if err = k.putRecords(account, newTotals); err != nil {
			return nil, err
		}
		totals, oracle := k.totals, k.oracle
		return func() (statemachine.LedgerState, error) {
			return k.ledger.UpdateAccount(oldAccount, witness, account, totals, oracle)
		}, nil
	})
}

// UpdateOracleBalance submits a signed reserve attestation.
func (k *Keeper) UpdateOracleBalance(ctx context.Context, attestation types.OracleBalances, signature []byte) (statemachine.LedgerState, error) {
	return k.transition(ctx, opOracle, func() (submission, error) {
		if attestation.Len() != k.config.Tokens.Len() {
			return nil, fmt.Errorf("%w: attestation", types.ErrTokenCount)
		}
		if attestation.Hash() == k.state.OracleBalancesHash {
			k.oracle = attestation
			return nil, nil
		}
		bulk := k.store.db.NewBulk()
		if err := k.store.putOracle(bulk, attestation); err != nil {
			return nil, err
		}
		if err := bulk.Flush(); err != nil {
			return nil, err
		}
		return func() (statemachine.LedgerState, error) {
			return k.ledger.UpdateOracleBalance(attestation, signature)
		}, nil
	})
}

// AcceptOracleBalances installs a reserve vector attested outside this keeper.
// It must hash to the committed oracleBalancesHash.
func (k *Keeper) AcceptOracleBalances(balances types.OracleBalances) error {
	k.lock.Lock()
	defer k.lock.Unlock()

	if err := k.reload(); err != nil {
		return err
	}
	if balances.Hash() != k.state.OracleBalancesHash {
		return statemachine.ErrStaleOracle
	}
	bulk := k.store.db.NewBulk()
	if err := k.store.putOracle(bulk, balances); err != nil {
		return err
	}
	if err := bulk.Flush(); err != nil {
		return err
	}
	k.oracle = balances
	return nil
}

func (k *Keeper) checkTokens(account *types.Account) error {
	if len(account.Balances) != k.config.Tokens.Len() {
		return fmt.Errorf("%w: account %d", types.ErrTokenCount, account.ID)
	}
	return nil
}

func (k *Keeper) putRecords(account *types.Account, totals types.TotalBalances) error {
	bulk := k.store.db.NewBulk()
	if err := k.store.putAccounts(bulk, account); err != nil {
		return err
	}
	if err := k.store.putTotals(bulk, totals); err != nil {
		return err
	}
	return bulk.Flush()
}
