package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/vista360/internal/consolidate"
)

var profilePublished bool

var profileCmd = &cobra.Command{
	Use:   "profile <identifier>",
	Short: "Print the consolidated profile of one customer",
	Long:  "Consolidates the customer's records from every source and prints the profile as JSON. With --published, prints the entry of the active result set instead.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("profile"); err != nil {
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

		id := args[0]
		var v any
		if profilePublished {
			res, err := st.GetResult(ctx, id)
			if err != nil {
				return err
			}
			if res == nil {
				return eris.Errorf("identifier %s is not in the published result set", id)
			}
			v = res
		} else {
			p, err := consolidate.New(st, table).Consolidate(ctx, id)
			if err != nil {
				return err
			}
			if !p.Found() {
				return eris.Errorf("identifier %s not found in any source", id)
			}
			v = p
		}

		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal profile")
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	profileCmd.Flags().BoolVar(&profilePublished, "published", false, "show the published result instead of consolidating live")
	rootCmd.AddCommand(profileCmd)
}
