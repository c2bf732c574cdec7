package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/vista360/internal/dashboard"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the active result set",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("status"); err != nil {
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

		ov, err := dashboard.NewService(st, nil, nil).Overview(ctx)
		if errors.Is(err, dashboard.ErrNoData) {
			fmt.Fprintln(cmd.OutOrStdout(), dashboard.ErrNoData.Error())
			return nil
		}
		if err != nil {
			return err
		}
		printOverview(cmd.OutOrStdout(), ov)
		return nil
	},
}

func printOverview(w io.Writer, ov *dashboard.Overview) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if ov.Set != nil {
		fmt.Fprintf(tw, "Version:\t%s\n", ov.Set.Version)
		fmt.Fprintf(tw, "Published:\t%s\n", ov.Set.PublishedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(tw, "Customers:\t%d\n", ov.Total)
	fmt.Fprintf(tw, "In several CRMs:\t%d\n", ov.MultiSource)
	fmt.Fprintf(tw, "In all CRMs:\t%d\n", ov.AllSources)
	fmt.Fprintf(tw, "Cities:\t%d (%s)\n", ov.Cities, strings.Join(ov.CityNames, ", "))
	_ = tw.Flush()
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
