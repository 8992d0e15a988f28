package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fontintel/fontintel/internal/config"
)

var (
	cfgFile string
	live    *config.Live
)

var rootCmd = &cobra.Command{
	Use:   "fontintel",
	Short: "Font classification and enrichment pipeline",
	Long:  "Parses uploaded font files, classifies them with tiered Claude models, enriches provenance from the web and stores validated results.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := config.Watch(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := l.Current().Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
		live = l

		if err := config.InitLogger(live.Current().Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
