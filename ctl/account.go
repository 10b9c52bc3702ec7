package ctl

import (
	"context"
	"encoding/json"

	"github.com/celer-network/go-reserves/smt"
	"github.com/celer-network/go-reserves/statemachine"
	"github.com/celer-network/go-reserves/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// proofFile is the published inclusion proof of one account.
type proofFile struct {
	Account json.RawMessage `json:"account"`
	Witness *smt.Witness    `json:"witness"`
	Root    common.Hash     `json:"root"`
}

type accountOp func(ctx context.Context, env *ledgerEnv, account *types.Account) (statemachine.LedgerState, error)

func runAccountOp(cmd *cobra.Command, op accountOp) error {
	return withLedger(func(env *ledgerEnv) error {
		data, err := readArg(flagAccount)
		if err != nil {
			return err
		}
		account, err := env.tokens.DecodeAccount(data)
		if err != nil {
			return err
		}
		state, err := op(context.Background(), env, account)
		if err != nil {
			return err
		}
		return printJSON(cmd, stateView(state))
	})
}

func accountCommand(use string, short string, op accountOp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountOp(cmd, op)
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, flagAccount)
		},
	}
	cmd.Flags().String(flagAccount, "", `Account record {"id": n, "<TOKEN>": n}, or @file`)
	cmd.MarkFlagRequired(flagAccount)
	return cmd
}

func AddCommand() *cobra.Command {
	return accountCommand("add", "Add a new account", func(ctx context.Context, env *ledgerEnv, account *types.Account) (statemachine.LedgerState, error) {
		return env.keeper.AddAccount(ctx, account)
	})
}

func UpdateCommand() *cobra.Command {
	return accountCommand("update", "Update the balances of an account", func(ctx context.Context, env *ledgerEnv, account *types.Account) (statemachine.LedgerState, error) {
		return env.keeper.UpdateAccount(ctx, account)
	})
}

func ProofCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proof",
		Short: "Print an account with its inclusion witness",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(func(env *ledgerEnv) error {
				proof, err := env.keeper.Proof(viper.GetUint64(flagID))
				if err != nil {
					return err
				}
				account, err := env.tokens.EncodeAccount(proof.Account)
				if err != nil {
					return err
				}
				return printJSON(cmd, &proofFile{Account: account, Witness: proof.Witness, Root: proof.Root})
			})
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, flagID)
		},
	}
	cmd.Flags().Uint64(flagID, 0, "Account id")
	cmd.MarkFlagRequired(flagID)
	return cmd
}
