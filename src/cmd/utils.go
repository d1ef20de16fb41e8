package cmd

import (
	"encoding/json"
	"os"

	"github.com/warp-contracts/licensing/src/controller"
	"github.com/warp-contracts/licensing/src/utils/logger"

	"github.com/spf13/cobra"
)

// Runs fn with freshly wired components and closes them afterwards
func withComponents(fn func(components *controller.Components) error) (err error) {
	components, err := controller.NewComponents(ctx, conf, nil)
	if err != nil {
		return
	}
	defer components.Close()

	return fn(components)
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// Stops the root command from waiting for a signal
func finish(cmd *cobra.Command, args []string) (err error) {
	logger.NewSublogger("root-cmd").WithField("cmd", cmd.Name()).Debug("Finished command")
	cancel()
	return
}
