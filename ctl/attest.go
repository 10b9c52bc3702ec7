package ctl

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func attest(cmd *cobra.Command) error {
	signer, err := loadSigner()
	if err != nil {
		return err
	}
	return withLedger(func(env *ledgerEnv) error {
		data, err := readArg(flagBalances)
		if err != nil {
			return err
		}
		var fields map[string]json.RawMessage
		if err = json.Unmarshal(data, &fields); err != nil {
			return fmt.Errorf("decode balances: %w", err)
		}
		reserves, err := env.tokens.DecodeBalances(fields)
		if err != nil {
			return err
		}
		attestation, sig, err := signer.Attest(reserves)
		if err != nil {
			return err
		}
		state, err := env.keeper.UpdateOracleBalance(context.Background(), attestation, sig)
		if err != nil {
			return err
		}
		return printJSON(cmd, stateView(state))
	})
}

func AttestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attest",
		Short: "Sign reserve balances with the oracle key and submit them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return attest(cmd)
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, flagBalances, flagOracleKey, flagOracleKeystore, flagPassword)
		},
	}
	cmd.Flags().String(flagBalances, "", `Reserves {"<TOKEN>": n}, or @file`)
	cmd.Flags().String(flagOracleKey, "", "Hex encoded oracle private key")
	cmd.Flags().String(flagOracleKeystore, "", "Path to the oracle keystore file")
	cmd.Flags().String(flagPassword, "", "Oracle keystore password")
	cmd.MarkFlagRequired(flagBalances)
	return cmd
}
