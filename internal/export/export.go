// Package export writes the published result set to an Excel workbook.
package export

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/vista360/internal/mapping"
	"github.com/sells-group/vista360/internal/model"
)

// SummarySheet is the name of the one-row-per-customer sheet.
const SummarySheet = "Vista360"

var summaryHeader = []string{"identificacion", "nombre", "ciudad", "fuentes", "analisis_fallido", "analisis"}

// Workbook builds a workbook with the summary sheet plus one sheet per source
// holding that source's records, flattened to one row per record.
func Workbook(profiles []model.AnalyzedProfile, table *mapping.Table) (*xlsx.File, error) {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet(SummarySheet)
	if err != nil {
		return nil, eris.Wrap(err, "export: add summary sheet")
	}
	addRow(sheet, summaryHeader)
	for _, p := range profiles {
		failed := ""
		if p.NarrativeFailed {
			failed = "si"
		}
		addRow(sheet, []string{p.Identifier, p.DisplayName, p.City, joinSources(p.Sources), failed, p.Narrative})
	}

	for _, src := range table.Sources {
		sheet, err := f.AddSheet(string(src.Tag))
		if err != nil {
			return nil, eris.Wrapf(err, "export: add %s sheet", src.Tag)
		}
		var owners []string
		var docs []model.Document
		for _, p := range profiles {
			for _, d := range recordsOf(p.Profile, src.Kind) {
				owners = append(owners, p.Identifier)
				docs = append(docs, d)
			}
		}
		columns := columnsOf(docs)
		addRow(sheet, append([]string{"cliente"}, columns...))
		for i, d := range docs {
			row := make([]string, 0, len(columns)+1)
			row = append(row, owners[i])
			for _, c := range columns {
				row = append(row, d.Text(c))
			}
			addRow(sheet, row)
		}
	}
	return f, nil
}

// Write saves the workbook for profiles at path.
func Write(path string, profiles []model.AnalyzedProfile, table *mapping.Table) error {
	f, err := Workbook(profiles, table)
	if err != nil {
		return err
	}
	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

func recordsOf(p model.ConsolidatedProfile, kind model.SourceKind) []model.Document {
	switch kind {
	case model.KindPolicy:
		if len(p.PolicyRecord) == 0 {
			return nil
		}
		return []model.Document{p.PolicyRecord}
	case model.KindMultiPolicy:
		return p.MultiPolicyRecords
	case model.KindLead:
		return p.LeadRecords
	default:
		return nil
	}
}

// columnsOf returns the union of field names across docs, sorted.
func columnsOf(docs []model.Document) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, d := range docs {
		for k := range d {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

func joinSources(tags []model.SourceTag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
