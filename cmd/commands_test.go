package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/vista360/internal/config"
	"github.com/sells-group/vista360/internal/dashboard"
	"github.com/sells-group/vista360/internal/model"
	"github.com/sells-group/vista360/internal/store"
)

// testConfig points cfg at a temp SQLite database and the given Anthropic
// endpoint, restoring the previous value on cleanup.
func testConfig(t *testing.T, anthropicURL string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "vista360.db")

	c := &config.Config{}
	c.Store.Driver = "sqlite"
	c.Store.DatabaseURL = dbPath
	c.Anthropic.Key = "sk-ant-test"
	c.Anthropic.BaseURL = anthropicURL
	c.Anthropic.Model = "claude-sonnet-4-5-20250929"
	c.Anthropic.MaxTokens = 512
	c.Narrative.TimeoutSecs = 5
	c.Narrative.MaxAttempts = 1
	c.Narrative.InitialBackoffMs = 1
	c.Narrative.MaxBackoffMs = 1
	c.Narrative.Temperature = 0.3
	c.Batch.Limit = 10
	c.Batch.Concurrency = 2
	c.Batch.OnNarrativeError = config.OnErrorDegrade
	c.Server.Port = 8080
	c.Cache.TTLSecs = 60
	c.Cache.Size = 4

	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
	return dbPath
}

func anthropicStub(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"content":     []map[string]any{{"type": "text", "text": "Cliente con potencial de venta cruzada."}},
			"model":       "claude-sonnet-4-5-20250929",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 100, "output_tokens": 20},
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func execute(t *testing.T, cmd *cobra.Command, args []string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	t.Cleanup(func() { cmd.SetOut(nil) })
	err := cmd.RunE(cmd, args)
	return out.String(), err
}

func setSeedFlags(t *testing.T, customers int, seed uint64) {
	t.Helper()
	prevC, prevS := seedCustomers, seedValue
	seedCustomers, seedValue = customers, seed
	t.Cleanup(func() { seedCustomers, seedValue = prevC, prevS })
}

func openTestStore(t *testing.T, dbPath string) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return st
}

func TestSeedAndAnalyze_EndToEnd(t *testing.T) {
	ts := anthropicStub(t)
	dbPath := testConfig(t, ts.URL)
	setSeedFlags(t, 8, 42)

	out, err := execute(t, seedCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "CENTRA:")
	assert.Contains(t, out, "FLOW360:")
	assert.Contains(t, out, "GESTOR_LEADS:")

	prevLimit := analyzeLimit
	analyzeLimit = 3
	t.Cleanup(func() { analyzeLimit = prevLimit })

	out, err = execute(t, analyzeCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "published ")
	assert.Contains(t, out, ": 3 profiles")

	st := openTestStore(t, dbPath)
	results, err := st.ListResults(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, "Cliente con potencial de venta cruzada.", r.Narrative)
		assert.False(t, r.NarrativeFailed)
	}
	assert.True(t, results[0].Identifier < results[1].Identifier)
}

func TestAnalyze_DryRunPublishesNothing(t *testing.T) {
	ts := anthropicStub(t)
	dbPath := testConfig(t, ts.URL)
	setSeedFlags(t, 4, 7)
	_, err := execute(t, seedCmd, nil)
	require.NoError(t, err)

	analyzeDryRun = true
	t.Cleanup(func() { analyzeDryRun = false })

	out, err := execute(t, analyzeCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "dry run:")

	set, err := openTestStore(t, dbPath).ActiveSet(context.Background())
	require.NoError(t, err)
	assert.Nil(t, set)
}

func TestAnalyze_WritesMetricsTextfile(t *testing.T) {
	ts := anthropicStub(t)
	testConfig(t, ts.URL)
	setSeedFlags(t, 3, 9)
	_, err := execute(t, seedCmd, nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "vista360.prom")
	analyzeMetricsFile = path
	t.Cleanup(func() { analyzeMetricsFile = "" })

	_, err = execute(t, analyzeCmd, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "vista360_")
}

func TestAnalyze_RequiresAPIKey(t *testing.T) {
	testConfig(t, "")
	cfg.Anthropic.Key = ""

	_, err := execute(t, analyzeCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
}

func TestStatus_NoData(t *testing.T) {
	testConfig(t, "")

	out, err := execute(t, statusCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "no data")
}

func TestStatusExportAndProfile_AfterPublish(t *testing.T) {
	dbPath := testConfig(t, "")
	st := openTestStore(t, dbPath)
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx, store.Collection{Name: "centra", KeyField: "cedula_cliente"}))

	p := model.NewConsolidatedProfile("1001")
	p.DisplayName = "Ana Gómez"
	p.City = "Medellín"
	p.AddSource(model.SourcePolicyCRM)
	p.PolicyRecord = model.Document{"cedula_cliente": "1001", "producto": "Vida"}
	_, err := st.PublishResults(ctx, []model.AnalyzedProfile{model.NewAnalyzedProfile(p, "Cliente fiel.")})
	require.NoError(t, err)

	out, err := execute(t, statusCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Customers:")
	assert.Contains(t, out, "Medellín")

	prevOut := exportOut
	exportOut = filepath.Join(t.TempDir(), "out.xlsx")
	t.Cleanup(func() { exportOut = prevOut })
	out, err = execute(t, exportCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 1 profiles")
	wb, err := xlsx.OpenFile(exportOut)
	require.NoError(t, err)
	assert.NotNil(t, wb.Sheet["Vista360"])

	profilePublished = true
	t.Cleanup(func() { profilePublished = false })
	out, err = execute(t, profileCmd, []string{"1001"})
	require.NoError(t, err)
	assert.Contains(t, out, "Cliente fiel.")

	_, err = execute(t, profileCmd, []string{"9999"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the published result set")
}

func TestProfile_ConsolidatesLive(t *testing.T) {
	dbPath := testConfig(t, "")
	st := openTestStore(t, dbPath)
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx,
		store.Collection{Name: "centra", KeyField: "cedula_cliente"},
		store.Collection{Name: "flow360", KeyField: "identificacion"},
	))
	_, err := st.ReplaceSource(ctx, "flow360", []model.Document{
		{"identificacion": "77", "nombre_completo": "Luis Pérez", "numero_poliza": "POL-1"},
	})
	require.NoError(t, err)

	out, err := execute(t, profileCmd, []string{"77"})
	require.NoError(t, err)
	assert.Contains(t, out, "Luis Pérez")
	assert.Contains(t, out, "POL-1")

	_, err = execute(t, profileCmd, []string{"78"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in any source")
}

func TestImport_CSV(t *testing.T) {
	dbPath := testConfig(t, "")
	file := filepath.Join(t.TempDir(), "centra.csv")
	require.NoError(t, os.WriteFile(file, []byte("cedula_cliente;nombre_cliente;ciudad\n1;Ana;Cali\n2;Luis;Bogotá\n"), 0o644))

	prev := [4]string{importSource, importFile, importSheet, importDelimiter}
	importSource, importFile, importDelimiter = "CENTRA", file, ";"
	t.Cleanup(func() { importSource, importFile, importSheet, importDelimiter = prev[0], prev[1], prev[2], prev[3] })

	out, err := execute(t, importCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "CENTRA: 2 records imported")

	keys, err := openTestStore(t, dbPath).DistinctKeys(context.Background(), "centra", "cedula_cliente")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2"}, keys)
}

func TestImport_UnknownSource(t *testing.T) {
	testConfig(t, "")
	prev := importSource
	importSource = "salesforce"
	t.Cleanup(func() { importSource = prev })

	_, err := execute(t, importCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source")
}

func TestImport_BadDelimiter(t *testing.T) {
	testConfig(t, "")
	prev := [2]string{importSource, importDelimiter}
	importSource, importDelimiter = "centra", ";;"
	t.Cleanup(func() { importSource, importDelimiter = prev[0], prev[1] })

	_, err := execute(t, importCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single character")
}

func TestBuildHandler_ServesSummary(t *testing.T) {
	dbPath := testConfig(t, "")
	st := openTestStore(t, dbPath)
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	p := model.NewConsolidatedProfile("5")
	p.AddSource(model.SourceLeadCRM)
	_, err := st.PublishResults(ctx, []model.AnalyzedProfile{model.NewAnalyzedProfile(p, "ok")})
	require.NoError(t, err)

	h, closeFn, err := buildHandler(ctx, st)
	require.NoError(t, err)
	defer closeFn()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var ov dashboard.Overview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ov))
	assert.Equal(t, 1, ov.Total)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
