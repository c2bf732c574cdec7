package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vista360/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "vista360",
	Short: "Consolidated 360-degree customer profiles across CRMs",
	Long:  "Merges CENTRA, FLOW360 and Gestor de Leads records per customer, annotates each profile with a generated advisor analysis, publishes the result set and serves it to a dashboard.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
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
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
