// Package ingest reads CRM export files (CSV, XLSX or JSON) into source
// documents so a collection can be reloaded from a spreadsheet dump.
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vista360/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// Options configures ReadFile.
type Options struct {
	Format    Format // detected from the extension when empty
	Delimiter rune   // CSV only, default ','
	Sheet     string // XLSX only, default first sheet
}

// DetectFormat infers the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", eris.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
	}
}

// ReadFile parses path into documents. Tabular formats use the first row as
// field names; blank cells are left out of the document.
func ReadFile(ctx context.Context, path string, opts Options) ([]model.Document, error) {
	format := opts.Format
	if format == "" {
		f, err := DetectFormat(path)
		if err != nil {
			return nil, err
		}
		format = f
	}

	switch format {
	case FormatXLSX:
		rows, err := readSheet(path, opts.Sheet)
		if err != nil {
			return nil, err
		}
		return rowsToDocuments(rows)
	case FormatCSV, FormatJSON:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		if format == FormatJSON {
			return collect(decodeArray(ctx, f))
		}
		rows, err := collect(streamCSV(ctx, f, opts.Delimiter))
		if err != nil {
			return nil, err
		}
		return rowsToDocuments(rows)
	default:
		return nil, eris.Errorf("ingest: unknown format %q", format)
	}
}

func rowsToDocuments(rows [][]string) ([]model.Document, error) {
	if len(rows) == 0 {
		return []model.Document{}, nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if header[i] == "" {
			return nil, eris.Errorf("ingest: empty column name at position %d", i+1)
		}
	}

	docs := make([]model.Document, 0, len(rows)-1)
	for _, row := range rows[1:] {
		doc := model.Document{}
		for i, cell := range row {
			if i >= len(header) {
				break
			}
			if v := strings.TrimSpace(cell); v != "" {
				doc[header[i]] = v
			}
		}
		if len(doc) > 0 {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// collect drains a row channel and returns the first error reported.
func collect[T any](out <-chan T, errs <-chan error) ([]T, error) {
	var items []T
	for item := range out {
		items = append(items, item)
	}
	if err := <-errs; err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
