package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vista360/internal/ingest"
	"github.com/sells-group/vista360/internal/mapping"
)

var (
	importSource    string
	importFile      string
	importSheet     string
	importDelimiter string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace one source collection with the records of a CSV, XLSX or JSON export",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("import"); err != nil {
			return err
		}
		table, err := loadTable()
		if err != nil {
			return err
		}
		src, err := findSource(table, importSource)
		if err != nil {
			return err
		}

		var delim rune
		if importDelimiter != "" {
			r, size := utf8.DecodeRuneInString(importDelimiter)
			if size != len(importDelimiter) {
				return eris.Errorf("delimiter must be a single character, got %q", importDelimiter)
			}
			delim = r
		}
		docs, err := ingest.ReadFile(ctx, importFile, ingest.Options{Delimiter: delim, Sheet: importSheet})
		if err != nil {
			return err
		}

		st, err := openStore(ctx, table)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.ReplaceSource(ctx, src.Collection, docs)
		if err != nil {
			return eris.Wrapf(err, "import %s", src.Tag)
		}
		zap.L().Info("import complete",
			zap.String("source", string(src.Tag)),
			zap.String("file", importFile),
			zap.Int("records", n),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records imported from %s\n", src.Tag, n, importFile)
		return nil
	},
}

// findSource matches a source by tag or collection name, case-insensitively.
func findSource(table *mapping.Table, name string) (mapping.Source, error) {
	for _, s := range table.Sources {
		if strings.EqualFold(string(s.Tag), name) || strings.EqualFold(s.Collection, name) {
			return s, nil
		}
	}
	return mapping.Source{}, eris.Errorf("unknown source %q (want one of %s)", name, strings.Join(table.Collections(), ", "))
}

func init() {
	importCmd.Flags().StringVar(&importSource, "source", "", "source tag or collection, e.g. centra (required)")
	importCmd.Flags().StringVar(&importFile, "file", "", "export file: .csv, .xlsx or .json (required)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "xlsx sheet name (default first sheet)")
	importCmd.Flags().StringVar(&importDelimiter, "delimiter", "", "csv delimiter (default ,)")
	_ = importCmd.MarkFlagRequired("source")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
