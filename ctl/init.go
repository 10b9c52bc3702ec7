package ctl

import (
	"os"

	"github.com/celer-network/go-reserves/db/badgerdb"
	"github.com/celer-network/go-reserves/keeper"
	"github.com/celer-network/go-reserves/oracle"
	"github.com/celer-network/go-reserves/smt"
	"github.com/celer-network/go-reserves/statemachine"
	"github.com/celer-network/go-reserves/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func initLedger(cmd *cobra.Command) error {
	tokens, err := types.NewTokenSet(viper.GetStringSlice(flagTokens)...)
	if err != nil {
		return err
	}
	var accounts []*types.Account
	if path := viper.GetString(flagAccounts); path != "" {
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		accounts, err = tokens.LoadAccounts(file)
		file.Close()
		if err != nil {
			return err
		}
	}
	signer, err := loadSigner()
	if err != nil {
		return err
	}

	opts := statemachine.Options{
		AllowReinit:      viper.GetBool(flagAllowReinit),
		RequireEmptyLeaf: viper.GetBool(flagRequireEmptyLeaf),
		Depth:            viper.GetInt(flagDepth),
	}
	ledger := statemachine.NewStateMachine(opts)
	// an existing ledger keeps the reinit policy it was created with
	if previous, err := keeper.LoadSnapshot(homePath(snapshotFile)); err == nil {
		state, err := previous.LedgerState()
		if err != nil {
			return err
		}
		guard := statemachine.NewStateMachine(previous.Options())
		if err = guard.InitState(state); err != nil {
			return err
		}
		if err = guard.InitState(state); err != nil {
			return err
		}
		logger.Warn().Str("home", viper.GetString(FlagHome)).Msg("Reinitializing existing ledger")
	}

	totals, err := types.SumBalances(tokens.Len(), accounts)
	if err != nil {
		return err
	}
	attestation := types.OracleBalances{}
	if multiplier := viper.GetUint64(flagReserveMultiplier); multiplier > 0 {
		reserves, err := oracle.ScaleReserves(totals.Balances(), multiplier)
		if err != nil {
			return err
		}
		attestation = types.NewOracleBalances(reserves)
	}

	if err = os.MkdirAll(homePath(dbDir), 0755); err != nil {
		return err
	}
	db, err := badgerdb.NewDB(homePath(dbDir))
	if err != nil {
		return err
	}
	defer db.Close()
	k, err := keeper.NewKeeper(keeperConfig(tokens, opts.Depth), db, ledger)
	if err != nil {
		return err
	}
	state, err := k.Genesis(accounts, signer.PublicKey(), attestation)
	if err != nil {
		return err
	}
	if err = keeper.SaveSnapshot(homePath(snapshotFile), keeper.NewSnapshot(state, opts, tokens)); err != nil {
		return err
	}
	return printJSON(cmd, stateView(state))
}

func InitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Build the replica from an account file and initialize the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initLedger(cmd)
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd,
				flagAccounts, flagOracleKey, flagOracleKeystore, flagPassword, flagReserveMultiplier,
				flagTokens, flagDepth, flagAllowReinit, flagRequireEmptyLeaf,
			)
		},
	}
	cmd.Flags().String(flagAccounts, "", "JSON file with the initial account records")
	cmd.Flags().String(flagOracleKey, "", "Hex encoded oracle private key")
	cmd.Flags().String(flagOracleKeystore, "", "Path to the oracle keystore file")
	cmd.Flags().String(flagPassword, "", "Oracle keystore password")
	cmd.Flags().Uint64(flagReserveMultiplier, 2, "Initial reserves as a multiple of liabilities, 0 leaves the ledger unattested")
	cmd.Flags().StringSlice(flagTokens, types.DefaultTokenNames, "Token order of every balance vector")
	cmd.Flags().Int(flagDepth, smt.MaxDepth, "Account tree depth")
	cmd.Flags().Bool(flagAllowReinit, true, "Allow a later init to reset the ledger")
	cmd.Flags().Bool(flagRequireEmptyLeaf, false, "Require adds to prove the account slot is empty")
	return cmd
}
