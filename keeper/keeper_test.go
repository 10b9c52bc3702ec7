package keeper

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/celer-network/go-reserves/db/memorydb"
	"github.com/celer-network/go-reserves/oracle"
	"github.com/celer-network/go-reserves/smt"
	"github.com/celer-network/go-reserves/statemachine"
	"github.com/celer-network/go-reserves/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	tokens, err := types.NewTokenSet("ETH", "USDC")
	require.NoError(t, err)
	config := DefaultConfig()
	config.Depth = 16
	config.Tokens = tokens
	config.SubmitTimeout = time.Second
	config.PollInterval = time.Millisecond
	return config
}

func testLedger() *statemachine.StateMachine {
	opts := statemachine.DefaultOptions()
	opts.Depth = 16
	return statemachine.NewStateMachine(opts)
}

func newTestKeeper(t *testing.T, ledger Ledger, accounts ...*types.Account) (*Keeper, *oracle.Signer) {
	signer, err := oracle.GenerateSigner()
	require.NoError(t, err)
	k, err := NewKeeper(testConfig(t), memorydb.NewDB(), ledger)
	require.NoError(t, err)
	_, err = k.Genesis(accounts, signer.PublicKey(), types.NewOracleBalances(types.BalancesFromUint64(1000, 1000)))
	require.NoError(t, err)
	return k, signer
}

func TestGenesis(t *testing.T) {
	ledger := testLedger()
	k, signer := newTestKeeper(t, ledger,
		types.NewAccount(1, 10, 20),
		types.NewAccount(2, 30, 40),
		types.NewAccount(1, 15, 25),
	)

	state, initialized := ledger.State()
	require.True(t, initialized)
	assert.Equal(t, state, k.State())
	assert.Equal(t, signer.PublicKey(), state.OraclePublicKey)
	assert.True(t, k.TotalBalances().Balances().Equal(types.BalancesFromUint64(45, 65)))
	assert.Equal(t, k.TotalBalances().Hash(), state.TotalBalancesHash)

	account, err := k.Account(1)
	require.NoError(t, err)
	assert.True(t, account.Equal(types.NewAccount(1, 15, 25)))
	_, err = k.Account(3)
	assert.Equal(t, ErrAccountNotFound, err)

	accounts, err := k.Accounts()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, uint64(1), accounts[0].ID)
	assert.Equal(t, uint64(2), accounts[1].ID)

	assert.NoError(t, k.VerifyAccount(1))
	assert.NoError(t, k.VerifyAccount(2))
}

func TestGenesisTokenCount(t *testing.T) {
	k, err := NewKeeper(testConfig(t), memorydb.NewDB(), testLedger())
	require.NoError(t, err)
	_, err = k.Genesis([]*types.Account{types.NewAccount(1, 1)}, types.PublicKey{}, types.OracleBalances{})
	assert.True(t, errors.Is(err, types.ErrTokenCount))
}

func TestAddAndUpdate(t *testing.T) {
	ledger := testLedger()
	k, _ := newTestKeeper(t, ledger)
	ctx := context.Background()

	_, err := k.AddAccount(ctx, types.NewAccount(5, 100, 100))
	require.NoError(t, err)
	_, err = k.AddAccount(ctx, types.NewAccount(5, 1, 1))
	assert.Equal(t, ErrAccountExists, err)

	state, err := k.UpdateAccount(ctx, types.NewAccount(5, 200, 50))
	require.NoError(t, err)
	current, _ := ledger.State()
	assert.Equal(t, current, state)
	assert.True(t, k.TotalBalances().Balances().Equal(types.BalancesFromUint64(200, 50)))

	_, err = k.UpdateAccount(ctx, types.NewAccount(6, 1, 1))
	assert.Equal(t, ErrAccountNotFound, err)

	// unchanged balances need no submission
	same, err := k.UpdateAccount(ctx, types.NewAccount(5, 200, 50))
	require.NoError(t, err)
	assert.Equal(t, state, same)

	_, err = k.AddAccount(ctx, types.NewAccount(7, 900, 0))
	assert.True(t, errors.Is(err, statemachine.ErrSolvencyExceeded))
	_, err = k.Account(7)
	assert.Equal(t, ErrAccountNotFound, err)

	_, err = k.AddAccount(ctx, types.NewAccount(8, 1))
	assert.True(t, errors.Is(err, types.ErrTokenCount))

	proof, err := k.Proof(5)
	require.NoError(t, err)
	assert.NoError(t, statemachine.VerifyInclusion(smt.NewHasher(), proof.Root, proof.Account, proof.Witness))

	assert.Equal(t, float64(1), testutil.ToFloat64(k.metrics.transitions.WithLabelValues(opAdd, resultApplied)))
	assert.Equal(t, float64(3), testutil.ToFloat64(k.metrics.transitions.WithLabelValues(opAdd, resultRejected)))
	assert.Equal(t, float64(1), testutil.ToFloat64(k.metrics.transitions.WithLabelValues(opUpdate, resultApplied)))
	assert.Equal(t, 4, testutil.CollectAndCount(k.metrics.transitions))
}

func TestUpdateOracleBalance(t *testing.T) {
	ledger := testLedger()
	k, signer := newTestKeeper(t, ledger, types.NewAccount(1, 500, 500))
	ctx := context.Background()

	attestation, sig, err := signer.Attest(types.BalancesFromUint64(600, 500))
	require.NoError(t, err)
	state, err := k.UpdateOracleBalance(ctx, attestation, sig)
	require.NoError(t, err)
	assert.Equal(t, attestation.Hash(), state.OracleBalancesHash)
	assert.True(t, k.OracleBalances().Equal(attestation))

	_, err = k.UpdateAccount(ctx, types.NewAccount(1, 600, 501))
	assert.True(t, errors.Is(err, statemachine.ErrSolvencyExceeded))
	_, err = k.UpdateAccount(ctx, types.NewAccount(1, 600, 500))
	assert.NoError(t, err)

	impostor, err := oracle.GenerateSigner()
	require.NoError(t, err)
	attestation, sig, err = impostor.Attest(types.BalancesFromUint64(9999, 9999))
	require.NoError(t, err)
	_, err = k.UpdateOracleBalance(ctx, attestation, sig)
	assert.Equal(t, statemachine.ErrBadSignature, err)
}

func TestAcceptOracleBalances(t *testing.T) {
	ledger := testLedger()
	k, signer := newTestKeeper(t, ledger, types.NewAccount(1, 10, 10))

	// the oracle submits directly; the keeper has never seen the vector
	attestation, sig, err := signer.Attest(types.BalancesFromUint64(20, 20))
	require.NoError(t, err)
	_, err = ledger.UpdateOracleBalance(attestation, sig)
	require.NoError(t, err)

	_, err = k.UpdateAccount(context.Background(), types.NewAccount(1, 11, 11))
	assert.Equal(t, statemachine.ErrStaleOracle, err)

	wrong := types.NewOracleBalances(types.BalancesFromUint64(20, 21))
	assert.Equal(t, statemachine.ErrStaleOracle, k.AcceptOracleBalances(wrong))
	require.NoError(t, k.AcceptOracleBalances(attestation))

	_, err = k.UpdateAccount(context.Background(), types.NewAccount(1, 11, 11))
	assert.NoError(t, err)
}

// racingLedger lets another keeper commit right before the first submission.
type racingLedger struct {
	*statemachine.StateMachine
	once sync.Once
	race func()
}

func (l *racingLedger) UpdateAccount(
	oldAccount *types.Account,
	oldWitness *smt.Witness,
	newAccount *types.Account,
	currentAggregate types.TotalBalances,
	oracle types.OracleBalances,
) (statemachine.LedgerState, error) {
	l.once.Do(l.race)
	return l.StateMachine.UpdateAccount(oldAccount, oldWitness, newAccount, currentAggregate, oracle)
}

func TestConcurrentKeepersRebase(t *testing.T) {
	ledger := testLedger()
	db := memorydb.NewDB()
	config := testConfig(t)
	signer, err := oracle.GenerateSigner()
	require.NoError(t, err)

	first, err := NewKeeper(config, db, ledger)
	require.NoError(t, err)
	_, err = first.Genesis(
		[]*types.Account{types.NewAccount(1, 10, 10), types.NewAccount(2, 20, 20)},
		signer.PublicKey(),
		types.NewOracleBalances(types.BalancesFromUint64(1000, 1000)),
	)
	require.NoError(t, err)

	racing := &racingLedger{StateMachine: ledger}
	second, err := NewKeeper(config, db, racing)
	require.NoError(t, err)
	racing.race = func() {
		_, raceErr := first.UpdateAccount(context.Background(), types.NewAccount(1, 11, 11))
		require.NoError(t, raceErr)
	}

	_, err = second.UpdateAccount(context.Background(), types.NewAccount(2, 25, 25))
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(second.metrics.retries.WithLabelValues(opUpdate)))

	require.NoError(t, first.Reload())
	accounts, err := first.Accounts()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.True(t, accounts[0].Equal(types.NewAccount(1, 11, 11)))
	assert.True(t, accounts[1].Equal(types.NewAccount(2, 25, 25)))

	fromScratch, err := types.SumBalances(2, accounts)
	require.NoError(t, err)
	state, _ := ledger.State()
	assert.Equal(t, fromScratch.Hash(), state.TotalBalancesHash)
}

// frozenLedger never reports the effect of a submission.
type frozenLedger struct {
	*statemachine.StateMachine
	lock   sync.Mutex
	frozen *statemachine.LedgerState
	polls  int
	thaw   int
}

func (l *frozenLedger) State() (statemachine.LedgerState, bool) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.frozen != nil {
		l.polls++
		if l.thaw == 0 || l.polls < l.thaw {
			return *l.frozen, true
		}
	}
	return l.StateMachine.State()
}

func (l *frozenLedger) freeze() {
	state, _ := l.StateMachine.State()
	l.lock.Lock()
	defer l.lock.Unlock()
	l.frozen = &state
}

func TestSubmissionPolls(t *testing.T) {
	ledger := &frozenLedger{StateMachine: testLedger(), thaw: 4}
	k, _ := newTestKeeper(t, ledger)
	ledger.freeze()

	_, err := k.AddAccount(context.Background(), types.NewAccount(1, 1, 1))
	require.NoError(t, err)
	assert.True(t, ledger.polls >= 4)
}

func TestSubmissionTimeout(t *testing.T) {
	ledger := &frozenLedger{StateMachine: testLedger()}
	config := testConfig(t)
	config.MaxAttempts = 1
	config.SubmitTimeout = 20 * time.Millisecond
	k, err := NewKeeper(config, memorydb.NewDB(), ledger)
	require.NoError(t, err)
	_, err = k.Genesis(nil, types.PublicKey{}, types.OracleBalances{})
	require.NoError(t, err)
	ledger.freeze()

	_, err = k.AddAccount(context.Background(), types.NewAccount(1, 1, 1))
	assert.True(t, errors.Is(err, ErrSubmissionTimeout))
	assert.Equal(t, float64(1), testutil.ToFloat64(k.metrics.transitions.WithLabelValues(opAdd, resultExhaust)))
}

func TestReopenReplica(t *testing.T) {
	ledger := testLedger()
	db := memorydb.NewDB()
	k, err := NewKeeper(testConfig(t), db, ledger)
	require.NoError(t, err)
	_, err = k.Genesis([]*types.Account{types.NewAccount(3, 1, 2)}, types.PublicKey{}, types.OracleBalances{})
	require.NoError(t, err)
	_, err = k.AddAccount(context.Background(), types.NewAccount(4, 3, 4))
	require.NoError(t, err)

	reopened, err := NewKeeper(testConfig(t), db, ledger)
	require.NoError(t, err)
	account, err := reopened.Account(4)
	require.NoError(t, err)
	assert.True(t, account.Equal(types.NewAccount(4, 3, 4)))
	assert.True(t, reopened.TotalBalances().Equal(k.TotalBalances()))
}

func TestSnapshot(t *testing.T) {
	ledger := testLedger()
	k, _ := newTestKeeper(t, ledger, types.NewAccount(1, 1, 1))
	path := filepath.Join(t.TempDir(), "ledger.yaml")

	snapshot := NewSnapshot(k.State(), ledger.Options(), k.Config().Tokens)
	require.NoError(t, SaveSnapshot(path, snapshot))
	loaded, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, snapshot, loaded)

	state, err := loaded.LedgerState()
	require.NoError(t, err)
	assert.Equal(t, k.State(), state)
	assert.Equal(t, ledger.Options(), loaded.Options())
	tokens, err := loaded.TokenSet()
	require.NoError(t, err)
	assert.Equal(t, []string{"ETH", "USDC"}, tokens.Names())

	// a verifier holding only the snapshot
	verifier := statemachine.NewStateMachine(loaded.Options())
	require.NoError(t, verifier.InitState(state))
	proof, err := k.Proof(1)
	require.NoError(t, err)
	assert.NoError(t, verifier.VerifyAccount(proof.Account, proof.Witness))

	// an unset oracle key survives the round trip
	empty := NewSnapshot(statemachine.LedgerState{}, ledger.Options(), k.Config().Tokens)
	state, err = empty.LedgerState()
	require.NoError(t, err)
	assert.True(t, state.OraclePublicKey.IsZero())
}
