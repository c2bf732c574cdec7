package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/vista360/internal/seed"
)

var (
	seedCustomers int
	seedValue     uint64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace the source collections with synthetic CRM records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("seed"); err != nil {
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

		ds := seed.Generate(seed.Options{Customers: seedCustomers, Seed: seedValue})
		counts, err := seed.Load(ctx, st, table, ds)
		if err != nil {
			return err
		}
		for _, src := range table.Sources {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records\n", src.Tag, counts[src.Tag])
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedCustomers, "customers", 50, "size of the shared customer pool")
	seedCmd.Flags().Uint64Var(&seedValue, "seed", 0, "random seed; 0 picks one at random")
	rootCmd.AddCommand(seedCmd)
}
