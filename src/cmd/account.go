package cmd

import (
	"github.com/warp-contracts/licensing/src/controller"

	"github.com/spf13/cobra"
)

func init() {
	accountCmd.AddCommand(accountCreateCmd)
	RootCmd.AddCommand(accountCmd)
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manages accounts held in the key store",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Generates a new keypair, stores it and prints the account",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		return withComponents(func(components *controller.Components) error {
			account, err := components.Balance.CreateAccount()
			if err != nil {
				return err
			}
			return printJSON(account)
		})
	},
	PostRunE: finish,
}
