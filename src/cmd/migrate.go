package cmd

import (
	"github.com/warp-contracts/licensing/src/utils/logger"
	"github.com/warp-contracts/licensing/src/utils/model"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Applies database migrations",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		return model.Migrate(ctx, conf)
	},
	PostRunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("root-cmd")
		log.Debug("Finished migrate command")
		cancel()
		return
	},
}
