package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/quote-pivot/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "quote-pivot",
	Short: "Validate quote files and pivot them into date by period grids",
	Long: "Reads quote files (ObservationDate, Shorthand, From, To, Price), drops and reports unusable rows, " +
		"recovers missing period bounds from Q#_## labels and writes a grid with one row per observation date " +
		"and one column per period.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Arguments are already validated here; later failures are not usage errors.
		cmd.SilenceUsage = true

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
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
