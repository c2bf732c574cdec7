package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/vista360/internal/model"
)

func TestMoney(t *testing.T) {
	assert.Equal(t, "$1,500,000", money(1500000))
	assert.Equal(t, "$0", money(0))
	assert.Equal(t, "$251", money(250.6))
}

func TestRenderPolicy_Placeholders(t *testing.T) {
	out := renderPolicy(model.Document{"producto": "Vida"})
	assert.Contains(t, out, "Vida")
	assert.Contains(t, out, "N/A")
	assert.Contains(t, out, "$0")
}

func TestRenderPolicy_Empty(t *testing.T) {
	assert.Contains(t, renderPolicy(nil), "no tiene registros en CENTRA")
}

func TestRenderPolicies(t *testing.T) {
	out := renderPolicies([]model.Document{
		{"ramo": "Autos", "numero_poliza": "POL-000001", "valor_asegurado": 1200000.0},
		{"ramo": "Hogar"},
	})
	assert.Contains(t, out, "Pólizas en FLOW360 (2 registros)")
	assert.Contains(t, out, "Póliza 1: Autos — POL-000001")
	assert.Contains(t, out, "Póliza 2: Hogar — N/A")
	assert.Contains(t, out, "$1,200,000")
}

func TestRenderLeads(t *testing.T) {
	out := renderLeads([]model.Document{
		{"producto_interes": "Salud", "probabilidad_cierre": 45.0, "observaciones": "Llamar en la tarde"},
	})
	assert.Contains(t, out, "Leads en Gestor (1 registros)")
	assert.Contains(t, out, "45% probabilidad")
	assert.Contains(t, out, "Llamar en la tarde")

	assert.Contains(t, renderLeads(nil), "no tiene leads")
}

func TestRenderAnalysis(t *testing.T) {
	p := model.AnalyzedProfile{Narrative: "  "}
	assert.Contains(t, renderAnalysis(p, 80), "Sin análisis disponible")

	p = model.AnalyzedProfile{Narrative: "texto", NarrativeFailed: true}
	out := renderAnalysis(p, 80)
	assert.Contains(t, out, "texto")
	assert.Contains(t, out, "no pudo generarse")
}
