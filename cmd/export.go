package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vista360/internal/dashboard"
	"github.com/sells-group/vista360/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the published result set to an Excel workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("export"); err != nil {
			return err
		}
		table, err := loadTable()
		if err != nil {
			return err
		}
		st, err := openStore(ctx, table)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		profiles, err := dashboard.NewService(st, nil, nil).Profiles(ctx)
		if err != nil {
			return err
		}
		if err := export.Write(exportOut, profiles, table); err != nil {
			return err
		}
		zap.L().Info("export complete", zap.String("path", exportOut), zap.Int("profiles", len(profiles)))
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d profiles to %s\n", len(profiles), exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "vista360.xlsx", "output .xlsx path")
	rootCmd.AddCommand(exportCmd)
}
