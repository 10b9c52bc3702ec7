package ctl

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand assembles the reservesctl command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "reservesctl",
		Short:        "proof of reserves ledger tool",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			err := viper.BindPFlags(cmd.Flags())
			if err != nil {
				return err
			}
			if config := viper.GetString(FlagConfig); config != "" {
				viper.SetConfigFile(config)
				return viper.ReadInConfig()
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		KeygenCommand(),
		InitCommand(),
		AddCommand(),
		UpdateCommand(),
		AttestCommand(),
		ProofCommand(),
		VerifyCommand(),
		ShowCommand(),
	)

	rootCmd.PersistentFlags().String(FlagConfig, "", "config path")
	rootCmd.PersistentFlags().String(FlagHome, "./reserves", "ledger home directory")
	return rootCmd
}
