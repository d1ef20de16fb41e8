package cmd

import (
	"github.com/warp-contracts/licensing/src/controller"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(balanceCmd)
}

var balanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "Prints the APT balance of an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		return withComponents(func(components *controller.Components) error {
			balance, err := components.Balance.Lookup(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(balance)
		})
	},
	PostRunE: finish,
}
