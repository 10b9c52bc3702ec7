package ctl

import (
	"github.com/spf13/cobra"
)

func ShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the ledger state, total balances and attested reserves",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(func(env *ledgerEnv) error {
				totals, err := env.tokens.EncodeBalances(env.keeper.TotalBalances().Balances())
				if err != nil {
					return err
				}
				view := map[string]interface{}{
					"state":         stateView(env.keeper.State()),
					"totalBalances": totals,
				}
				if reserves := env.keeper.OracleBalances(); reserves.Len() > 0 {
					if view["oracleBalances"], err = env.tokens.EncodeBalances(reserves.Balances()); err != nil {
						return err
					}
				}
				accounts, err := env.keeper.Accounts()
				if err != nil {
					return err
				}
				view["accounts"] = len(accounts)
				return printJSON(cmd, view)
			})
		},
	}
}
