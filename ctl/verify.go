package ctl

import (
	"encoding/json"
	"fmt"

	"github.com/celer-network/go-reserves/keeper"
	"github.com/celer-network/go-reserves/statemachine"
	"github.com/spf13/cobra"
)

// verifyProof checks a proof file against the published snapshot alone; the
// replica is not opened.
func verifyProof(cmd *cobra.Command) error {
	snapshot, err := keeper.LoadSnapshot(homePath(snapshotFile))
	if err != nil {
		return err
	}
	state, err := snapshot.LedgerState()
	if err != nil {
		return err
	}
	tokens, err := snapshot.TokenSet()
	if err != nil {
		return err
	}
	data, err := readArg(flagProof)
	if err != nil {
		return err
	}
	var proof proofFile
	if err = json.Unmarshal(data, &proof); err != nil {
		return fmt.Errorf("decode proof: %w", err)
	}
	if proof.Witness == nil {
		return fmt.Errorf("proof without witness")
	}
	account, err := tokens.DecodeAccount(proof.Account)
	if err != nil {
		return err
	}

	ledger := statemachine.NewStateMachine(snapshot.Options())
	if err = ledger.InitState(state); err != nil {
		return err
	}
	if err = ledger.VerifyAccount(account, proof.Witness); err != nil {
		return err
	}
	logger.Info().Uint64("id", account.ID).Str("root", state.AccountTreeRoot.Hex()).Msg("Account verified")
	return printJSON(cmd, map[string]interface{}{"id": account.ID, "verified": true})
}

func VerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify an account proof against the published ledger state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return verifyProof(cmd)
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, flagProof)
		},
	}
	cmd.Flags().String(flagProof, "", "Proof JSON as printed by the proof command, or @file")
	cmd.MarkFlagRequired(flagProof)
	return cmd
}
