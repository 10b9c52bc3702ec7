// Package ctl implements the reservesctl commands. Every command opens the
// keeper replica under the home directory, replays the published snapshot
// into a ledger state machine, runs and writes the snapshot back.
package ctl

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"

	"github.com/celer-network/go-reserves/db/badgerdb"
	"github.com/celer-network/go-reserves/keeper"
	"github.com/celer-network/go-reserves/log"
	"github.com/celer-network/go-reserves/oracle"
	"github.com/celer-network/go-reserves/statemachine"
	"github.com/celer-network/go-reserves/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	FlagConfig = "config"
	FlagHome   = "home"

	flagAccounts          = "accounts"
	flagAccount           = "account"
	flagID                = "id"
	flagProof             = "proof"
	flagBalances          = "balances"
	flagOracleKey         = "oracle-key"
	flagOracleKeystore    = "oracle-keystore"
	flagPassword          = "password"
	flagReserveMultiplier = "reserve-multiplier"
	flagTokens            = "tokens"
	flagDepth             = "depth"
	flagAllowReinit       = "allow-reinit"
	flagRequireEmptyLeaf  = "require-empty-leaf"

	configSubmitTimeout = "keeper.submitTimeout"
	configPollInterval  = "keeper.pollInterval"
	configMaxAttempts   = "keeper.maxAttempts"

	snapshotFile = "ledger.yaml"
	dbDir        = "db"
)

var logger = log.NewLogger("ctl")

func homePath(elem ...string) string {
	return filepath.Join(append([]string{viper.GetString(FlagHome)}, elem...)...)
}

// ledgerEnv is an opened ledger: the snapshot driven state machine and the keeper over it.
type ledgerEnv struct {
	db       *badgerdb.DB
	ledger   *statemachine.StateMachine
	keeper   *keeper.Keeper
	tokens   *types.TokenSet
	snapshot *keeper.Snapshot
}

func keeperConfig(tokens *types.TokenSet, depth int) keeper.Config {
	config := keeper.DefaultConfig()
	config.Tokens = tokens
	config.Depth = depth
	if viper.IsSet(configSubmitTimeout) {
		config.SubmitTimeout = viper.GetDuration(configSubmitTimeout)
	}
	if viper.IsSet(configPollInterval) {
		config.PollInterval = viper.GetDuration(configPollInterval)
	}
	if viper.IsSet(configMaxAttempts) {
		config.MaxAttempts = viper.GetInt(configMaxAttempts)
	}
	return config
}

func openLedger() (*ledgerEnv, error) {
	snapshot, err := keeper.LoadSnapshot(homePath(snapshotFile))
	if err != nil {
		return nil, fmt.Errorf("ledger not initialized under %s: %w", viper.GetString(FlagHome), err)
	}
	state, err := snapshot.LedgerState()
	if err != nil {
		return nil, err
	}
	tokens, err := snapshot.TokenSet()
	if err != nil {
		return nil, err
	}
	ledger := statemachine.NewStateMachine(snapshot.Options())
	if err = ledger.InitState(state); err != nil {
		return nil, err
	}
	db, err := badgerdb.NewDB(homePath(dbDir))
	if err != nil {
		return nil, err
	}
	k, err := keeper.NewKeeper(keeperConfig(tokens, snapshot.Depth), db, ledger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &ledgerEnv{db: db, ledger: ledger, keeper: k, tokens: tokens, snapshot: snapshot}, nil
}

// close publishes the ledger's current state and releases the replica.
func (env *ledgerEnv) close() error {
	state, _ := env.ledger.State()
	err := keeper.SaveSnapshot(homePath(snapshotFile), keeper.NewSnapshot(state, env.ledger.Options(), env.tokens))
	if closeErr := env.db.Close(); err == nil {
		err = closeErr
	}
	return err
}

func withLedger(fn func(env *ledgerEnv) error) error {
	env, err := openLedger()
	if err != nil {
		return err
	}
	err = fn(env)
	if closeErr := env.close(); err == nil {
		err = closeErr
	}
	return err
}

func loadSigner() (*oracle.Signer, error) {
	return oracle.LoadSigner(
		viper.GetString(flagOracleKey),
		viper.GetString(flagOracleKeystore),
		viper.GetString(flagPassword),
	)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func stateView(state statemachine.LedgerState) map[string]string {
	return map[string]string{
		"accountTreeRoot":    state.AccountTreeRoot.Hex(),
		"totalBalancesHash":  state.TotalBalancesHash.Hex(),
		"oraclePublicKey":    state.OraclePublicKey.Hex(),
		"oracleBalancesHash": state.OracleBalancesHash.Hex(),
	}
}

// readArg returns the flag value, or the content of the named file when it starts with '@'.
func readArg(name string) ([]byte, error) {
	value := viper.GetString(name)
	if len(value) > 0 && value[0] == '@' {
		return ioutil.ReadFile(value[1:])
	}
	return []byte(value), nil
}

func bindFlags(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		if err := viper.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}
