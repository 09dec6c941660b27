package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bloodstock/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "bloodstock",
	Short: "Blood stock lookup over the eRaktKosh portal",
	Long:  "Resolves free-text Indian locations against the cached state/district hierarchy and fetches live blood stock from eRaktKosh.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
