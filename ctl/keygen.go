package ctl

import (
	"github.com/celer-network/go-reserves/oracle"
	"github.com/spf13/cobra"
)

func KeygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an oracle signing key",
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := oracle.GenerateSigner()
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{
				"privateKey": signer.PrivateKeyHex(),
				"publicKey":  signer.PublicKey().Hex(),
			})
		},
	}
}
