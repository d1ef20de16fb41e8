package cmd

import (
	"github.com/warp-contracts/licensing/src/controller"
	"github.com/warp-contracts/licensing/src/utils/logger"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(reconcileCmd)
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Runs a single reconciliation pass over submitted and stale pending settlements",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		return withComponents(func(components *controller.Components) error {
			n, err := components.Reconciler.RunOnce(ctx)
			if err != nil {
				return err
			}
			logger.NewSublogger("reconcile-cmd").WithField("count", n).Info("Reconciled transactions")
			return nil
		})
	},
	PostRunE: finish,
}
