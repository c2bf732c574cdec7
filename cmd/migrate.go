package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the source and result tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		table, err := loadTable()
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), table)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		zap.L().Info("migrate complete",
			zap.String("driver", cfg.Store.Driver),
			zap.Strings("collections", table.Collections()),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
