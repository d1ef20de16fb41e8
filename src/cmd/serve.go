package cmd

import (
	"github.com/warp-contracts/licensing/src/controller"
	"github.com/warp-contracts/licensing/src/utils/logger"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the REST API and reconciles settlements in the background",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		controller, err := controller.NewController(conf)
		if err != nil {
			return
		}

		err = controller.Start()
		if err != nil {
			return
		}

		select {
		case <-controller.CtxRunning.Done():
		case <-ctx.Done():
		}

		controller.StopWait()

		return
	},
	PostRunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("root-cmd")
		log.Debug("Finished serve command")
		cancel()
		return
	},
}
