package cmd

import (
	"strconv"

	"github.com/warp-contracts/licensing/src/controller"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(fundCmd)
}

var fundCmd = &cobra.Command{
	Use:   "fund <address> [amount]",
	Short: "Funds an address from the faucet and waits until the balance reflects it",
	Long:  "Amount is given in octas. Without it the configured default faucet amount is requested.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var amount uint64
		if len(args) > 1 {
			amount, err = strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return
			}
		}

		return withComponents(func(components *controller.Components) error {
			balance, err := components.Balance.FundFromFaucet(ctx, args[0], amount)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"address": args[0],
				"balance": balance,
			})
		})
	},
	PostRunE: finish,
}
