package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/vista360/internal/dashboard"
	"github.com/sells-group/vista360/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the published result set in the terminal",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("browse"); err != nil {
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

		return tui.Run(ctx, dashboard.NewService(st, nil, nil))
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
}
