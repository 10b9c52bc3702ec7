// Package statemachine applies ledger transitions against the committed
// LedgerState. Account data, aggregates and attestations are supplied by the
// caller with every transition and are checked against the commitments.
package statemachine

import (
	"fmt"
	"hash"
	"sync"

	"github.com/celer-network/go-reserves/log"
	"github.com/celer-network/go-reserves/smt"
	"github.com/celer-network/go-reserves/types"
	"github.com/ethereum/go-ethereum/common"
)

var logger = log.NewLogger("statemachine")

// LedgerState is the whole durable, trust anchored state of the ledger.
type LedgerState struct {
	AccountTreeRoot    common.Hash
	TotalBalancesHash  common.Hash
	OraclePublicKey    types.PublicKey
	OracleBalancesHash common.Hash
}

// HasOracleBalances reports whether an attestation has been committed.
func (s LedgerState) HasOracleBalances() bool {
	return s.OracleBalancesHash != (common.Hash{})
}

type Options struct {
	// AllowReinit lets InitState overwrite an initialized ledger.
	AllowReinit bool
	// RequireEmptyLeaf makes AddAccount prove that the slot is empty under the committed root.
	RequireEmptyLeaf bool
	// Depth of every account witness.
	Depth int
}

func DefaultOptions() Options {
	return Options{
		AllowReinit: true,
		Depth:       smt.MaxDepth,
	}
}

type StateMachine struct {
	lock        sync.RWMutex
	opts        Options
	hasher      hash.Hash
	state       LedgerState
	initialized bool
}

func NewStateMachine(opts Options) *StateMachine {
	if opts.Depth == 0 {
		opts.Depth = smt.MaxDepth
	}
	return &StateMachine{
		opts:   opts,
		hasher: smt.NewHasher(),
	}
}

func (sm *StateMachine) Options() Options {
	return sm.opts
}

// State returns the committed state and whether InitState has been called.
func (sm *StateMachine) State() (LedgerState, bool) {
	sm.lock.RLock()
	defer sm.lock.RUnlock()
	return sm.state, sm.initialized
}

// InitState sets all four commitments.
func (sm *StateMachine) InitState(state LedgerState) error {
	sm.lock.Lock()
	defer sm.lock.Unlock()

	if sm.initialized && !sm.opts.AllowReinit {
		return ErrAlreadyInitialized
	}
	if sm.initialized {
		logger.Warn().Str("root", sm.state.AccountTreeRoot.Hex()).Msg("Reinitializing ledger")
	}
	sm.state = state
	sm.initialized = true
	logger.Info().
		Str("root", state.AccountTreeRoot.Hex()).
		Str("totals", state.TotalBalancesHash.Hex()).
		Str("oracle", state.OraclePublicKey.Hex()).
		Msg("Ledger initialized")
	return nil
}

// AddAccount places account at the slot proven by witness and adds its
// balances to the aggregate.
func (sm *StateMachine) AddAccount(
	account *types.Account,
	witness *smt.Witness,
	currentAggregate types.TotalBalances,
	oracle types.OracleBalances,
) (LedgerState, error) {
	sm.lock.Lock()
	defer sm.lock.Unlock()

	next, err := sm.addAccount(account, witness, currentAggregate, oracle)
	return sm.commit("add", account.ID, next, err)
}

func (sm *StateMachine) addAccount(
	account *types.Account,
	witness *smt.Witness,
	currentAggregate types.TotalBalances,
	oracle types.OracleBalances,
) (LedgerState, error) {
	if !sm.initialized {
		return LedgerState{}, ErrUninitialized
	}
	next := sm.state

	newRoot, err := sm.recompute(witness, account.ID, account.Hash())
	if err != nil {
		return LedgerState{}, err
	}
	if sm.opts.RequireEmptyLeaf {
		emptyRoot, err := sm.recompute(witness, account.ID, common.Hash{})
		if err != nil {
			return LedgerState{}, err
		}
		if emptyRoot != sm.state.AccountTreeRoot {
			return LedgerState{}, ErrStaleWitness
		}
	}
	next.AccountTreeRoot = newRoot

	if currentAggregate.Hash() != sm.state.TotalBalancesHash {
		return LedgerState{}, ErrStaleAggregate
	}
	newAggregate, err := currentAggregate.Add(account)
	if err != nil {
		return LedgerState{}, err
	}
	next.TotalBalancesHash = newAggregate.Hash()

	if err = sm.checkSolvency(newAggregate, oracle); err != nil {
		return LedgerState{}, err
	}
	return next, nil
}

// UpdateAccount replaces oldAccount with newAccount at the same slot and
// moves the aggregate by the difference.
func (sm *StateMachine) UpdateAccount(
	oldAccount *types.Account,
	oldWitness *smt.Witness,
	newAccount *types.Account,
	currentAggregate types.TotalBalances,
	oracle types.OracleBalances,
) (LedgerState, error) {
	sm.lock.Lock()
	defer sm.lock.Unlock()

	next, err := sm.updateAccount(oldAccount, oldWitness, newAccount, currentAggregate, oracle)
	return sm.commit("update", newAccount.ID, next, err)
}

func (sm *StateMachine) updateAccount(
	oldAccount *types.Account,
	oldWitness *smt.Witness,
	newAccount *types.Account,
	currentAggregate types.TotalBalances,
	oracle types.OracleBalances,
) (LedgerState, error) {
	if !sm.initialized {
		return LedgerState{}, ErrUninitialized
	}
	if oldAccount.ID != newAccount.ID {
		return LedgerState{}, ErrIdMismatch
	}
	next := sm.state

	oldRoot, err := sm.recompute(oldWitness, oldAccount.ID, oldAccount.Hash())
	if err != nil {
		return LedgerState{}, err
	}
	if oldRoot != sm.state.AccountTreeRoot {
		return LedgerState{}, ErrStaleWitness
	}
	newRoot, err := sm.recompute(oldWitness, newAccount.ID, newAccount.Hash())
	if err != nil {
		return LedgerState{}, err
	}
	next.AccountTreeRoot = newRoot

	if currentAggregate.Hash() != sm.state.TotalBalancesHash {
		return LedgerState{}, ErrStaleAggregate
	}
	newAggregate, err := currentAggregate.Sub(oldAccount, true)
	if err != nil {
		return LedgerState{}, err
	}
	newAggregate, err = newAggregate.Add(newAccount)
	if err != nil {
		return LedgerState{}, err
	}
	next.TotalBalancesHash = newAggregate.Hash()

	if err = sm.checkSolvency(newAggregate, oracle); err != nil {
		return LedgerState{}, err
	}
	return next, nil
}

// VerifyAccount checks that account is included under the committed root.
func (sm *StateMachine) VerifyAccount(account *types.Account, witness *smt.Witness) error {
	sm.lock.Lock()
	defer sm.lock.Unlock()

	if !sm.initialized {
		return ErrUninitialized
	}
	return VerifyInclusion(sm.hasher, sm.state.AccountTreeRoot, account, witness)
}

// VerifyInclusion is VerifyAccount against an explicit root. It needs no ledger
// instance, so auditors holding only a published root can run it.
func VerifyInclusion(hasher hash.Hash, root common.Hash, account *types.Account, witness *smt.Witness) error {
	computedRoot, key, err := witness.Recompute(hasher, account.Hash())
	if err != nil {
		return err
	}
	if key != account.ID {
		return ErrInvalidId
	}
	if computedRoot != root {
		return ErrInvalidRoot
	}
	return nil
}

// UpdateOracleBalance commits a new reserve attestation signed by the oracle key.
func (sm *StateMachine) UpdateOracleBalance(attestation types.OracleBalances, signature []byte) (LedgerState, error) {
	sm.lock.Lock()
	defer sm.lock.Unlock()

	next, err := sm.updateOracleBalance(attestation, signature)
	return sm.commit("oracle", 0, next, err)
}

func (sm *StateMachine) updateOracleBalance(attestation types.OracleBalances, signature []byte) (LedgerState, error) {
	if !sm.initialized {
		return LedgerState{}, ErrUninitialized
	}
	if !attestation.Verify(sm.state.OraclePublicKey, signature) {
		return LedgerState{}, ErrBadSignature
	}
	next := sm.state
	next.OracleBalancesHash = attestation.Hash()
	return next, nil
}

func (sm *StateMachine) recompute(witness *smt.Witness, id uint64, leaf common.Hash) (common.Hash, error) {
	if witness.Depth() != sm.opts.Depth {
		return common.Hash{}, fmt.Errorf("%w: got %d want %d", smt.ErrWitnessDepth, witness.Depth(), sm.opts.Depth)
	}
	root, key, err := witness.Recompute(sm.hasher, leaf)
	if err != nil {
		return common.Hash{}, err
	}
	if key != id {
		return common.Hash{}, ErrInvalidId
	}
	return root, nil
}

// checkSolvency compares aggregate to the attested reserves. It is skipped
// until an attestation is committed.
func (sm *StateMachine) checkSolvency(aggregate types.TotalBalances, oracle types.OracleBalances) error {
	if !sm.state.HasOracleBalances() {
		return nil
	}
	if oracle.Hash() != sm.state.OracleBalancesHash {
		return ErrStaleOracle
	}
	reserves := oracle.Balances()
	token, err := aggregate.Exceeds(reserves)
	if err != nil {
		return err
	}
	if token >= 0 {
		liabilities := aggregate.Balances()
		return &SolvencyError{
			Token:       token,
			Liabilities: liabilities[token],
			Reserves:    reserves[token],
		}
	}
	return nil
}

// commit installs next when err is nil. Called with the lock held.
func (sm *StateMachine) commit(op string, id uint64, next LedgerState, err error) (LedgerState, error) {
	if err != nil {
		logger.Warn().Err(err).Str("op", op).Uint64("id", id).Msg("Transition rejected")
		return sm.state, err
	}
	sm.state = next
	logger.Debug().
		Str("op", op).
		Uint64("id", id).
		Str("root", next.AccountTreeRoot.Hex()).
		Str("totals", next.TotalBalancesHash.Hex()).
		Msg("Transition applied")
	return next, nil
}
