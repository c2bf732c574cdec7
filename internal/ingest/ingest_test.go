package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/vista360/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"centra.csv", FormatCSV},
		{"CENTRA.CSV", FormatCSV},
		{"dump.txt", FormatCSV},
		{"flow360.xlsx", FormatXLSX},
		{"leads.json", FormatJSON},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := DetectFormat("data.xls")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestReadFile_CSV(t *testing.T) {
	path := writeFile(t, "centra.csv",
		"\ufeffcedula_cliente,nombre_cliente,ciudad,prima_mensual\n"+
			"123,Ana Pérez,Cali,150000\n"+
			"456, Luis ,,\n"+
			",,,\n")

	docs, err := ReadFile(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, docs, 2, "all-blank rows are dropped")
	assert.Equal(t, model.Document{
		"cedula_cliente": "123",
		"nombre_cliente": "Ana Pérez",
		"ciudad":         "Cali",
		"prima_mensual":  "150000",
	}, docs[0])
	assert.Equal(t, model.Document{"cedula_cliente": "456", "nombre_cliente": "Luis"}, docs[1])
}

func TestReadFile_CSVDelimiter(t *testing.T) {
	path := writeFile(t, "flow.csv", "identificacion;ramo\n1;Autos\n")
	docs, err := ReadFile(context.Background(), path, Options{Delimiter: ';'})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Autos", docs[0]["ramo"])
}

func TestReadFile_CSVShortRows(t *testing.T) {
	path := writeFile(t, "flow.csv", "identificacion,ramo,estado\n1,Autos\n2,Hogar,Vigente,extra\n")
	docs, err := ReadFile(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.NotContains(t, docs[0], "estado")
	assert.Len(t, docs[1], 3)
}

func TestReadFile_CSVEmptyHeader(t *testing.T) {
	path := writeFile(t, "bad.csv", "identificacion,,estado\n1,2,3\n")
	_, err := ReadFile(context.Background(), path, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty column name at position 2")
}

func TestReadFile_EmptyCSV(t *testing.T) {
	path := writeFile(t, "empty.csv", "")
	docs, err := ReadFile(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestReadFile_XLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Leads": {
			{"documento", "nombre", "probabilidad_cierre"},
			{"789", "Diana", "80"},
		},
	})

	docs, err := ReadFile(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, model.Document{"documento": "789", "nombre": "Diana", "probabilidad_cierre": "80"}, docs[0])
}

func TestReadFile_XLSXSheet(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {{"a"}, {"1"}},
	})

	_, err := ReadFile(context.Background(), path, Options{Sheet: "Leads"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "Leads" not found`)

	docs, err := ReadFile(context.Background(), path, Options{Sheet: "Sheet1"})
	require.NoError(t, err)
	assert.Equal(t, []model.Document{{"a": "1"}}, docs)
}

func TestReadFile_JSON(t *testing.T) {
	path := writeFile(t, "leads.json", `[
		{"_id": {"$oid": "65f0"}, "documento": "123", "probabilidad_cierre": 80},
		null,
		{"documento": "456"}
	]`)

	docs, err := ReadFile(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, model.Document{"documento": "123", "probabilidad_cierre": float64(80)}, docs[0])
	assert.Equal(t, "456", docs[1]["documento"])
}

func TestReadFile_JSONNotArray(t *testing.T) {
	path := writeFile(t, "leads.json", `{"documento": "1"}`)
	_, err := ReadFile(context.Background(), path, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected '['")
}

func TestReadFile_JSONMalformed(t *testing.T) {
	path := writeFile(t, "leads.json", `[{"documento": }]`)
	_, err := ReadFile(context.Background(), path, Options{})
	require.Error(t, err)
}

func TestReadFile_Cancelled(t *testing.T) {
	var b strings.Builder
	b.WriteString("identificacion\n")
	for i := 0; i < 1000; i++ {
		b.WriteString("1\n")
	}
	path := writeFile(t, "big.csv", b.String())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadFile(ctx, path, Options{})
	require.Error(t, err)
}

func TestReadFile_MissingFile(t *testing.T) {
	_, err := ReadFile(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), Options{})
	require.Error(t, err)
}

func TestReadFile_ExplicitFormat(t *testing.T) {
	path := writeFile(t, "export.dat", "documento\n1\n")
	docs, err := ReadFile(context.Background(), path, Options{Format: FormatCSV})
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, err = ReadFile(context.Background(), path, Options{Format: "parquet"})
	require.Error(t, err)
}
