package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/vista360/internal/dashboard"
	"github.com/sells-group/vista360/internal/model"
)

var (
	labelStyle   = lipgloss.NewStyle().Bold(true)
	headingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00A859")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	bandStyles   = map[dashboard.Band]lipgloss.Style{
		dashboard.BandHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true),
		dashboard.BandMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true),
		dashboard.BandLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
	}
)

var printer = message.NewPrinter(language.English)

// money renders an amount as "$1,500,000". Missing amounts render as "$0".
func money(v float64) string {
	return printer.Sprintf("$%d", int64(math.Round(v)))
}

type field struct {
	label string
	value string
}

func fields(b *strings.Builder, fs ...field) {
	for _, f := range fs {
		fmt.Fprintf(b, "%s %s\n", labelStyle.Render(f.label+":"), f.value)
	}
}

func renderAnalysis(p model.AnalyzedProfile, width int) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Análisis: recomendaciones para el asesor"))
	b.WriteString("\n\n")
	text := strings.TrimSpace(p.Narrative)
	if text == "" {
		text = "Sin análisis disponible"
	}
	if p.NarrativeFailed {
		b.WriteString(mutedStyle.Render("(el análisis no pudo generarse en la última ejecución)"))
		b.WriteString("\n\n")
	}
	b.WriteString(lipgloss.NewStyle().Width(max(20, width)).Render(text))
	return b.String()
}

func renderPolicy(doc model.Document) string {
	if len(doc) == 0 {
		return mutedStyle.Render("Este cliente no tiene registros en CENTRA.")
	}
	var b strings.Builder
	b.WriteString(headingStyle.Render("Datos en CENTRA"))
	b.WriteString("\n\n")
	fields(&b,
		field{"Producto", doc.TextOr("producto")},
		field{"Estado póliza", doc.TextOr("estado_poliza")},
		field{"Prima mensual", money(doc.Number("prima_mensual"))},
		field{"Asesor", doc.TextOr("asesor")},
		field{"Fecha inicio", doc.TextOr("fecha_inicio")},
		field{"Fecha vencimiento", doc.TextOr("fecha_vencimiento")},
	)
	return b.String()
}

func renderPolicies(docs []model.Document) string {
	if len(docs) == 0 {
		return mutedStyle.Render("Este cliente no tiene registros en FLOW360.")
	}
	var b strings.Builder
	b.WriteString(headingStyle.Render(fmt.Sprintf("Pólizas en FLOW360 (%d registros)", len(docs))))
	b.WriteString("\n")
	for i, d := range docs {
		fmt.Fprintf(&b, "\n%s\n", labelStyle.Render(fmt.Sprintf("Póliza %d: %s — %s", i+1, d.TextOr("ramo"), d.TextOr("numero_poliza"))))
		fields(&b,
			field{"Estado", d.TextOr("estado")},
			field{"Valor asegurado", money(d.Number("valor_asegurado"))},
			field{"Ejecutivo", d.TextOr("ejecutivo")},
			field{"Expedición", d.TextOr("fecha_expedicion")},
			field{"Renovación", d.TextOr("fecha_renovacion")},
			field{"Último contacto", d.TextOr("ultimo_contacto")},
		)
	}
	return b.String()
}

func renderLeads(docs []model.Document) string {
	if len(docs) == 0 {
		return mutedStyle.Render("Este cliente no tiene leads en Gestor de Leads.")
	}
	var b strings.Builder
	b.WriteString(headingStyle.Render(fmt.Sprintf("Leads en Gestor (%d registros)", len(docs))))
	b.WriteString("\n")
	for i, d := range docs {
		prob := d.Number("probabilidad_cierre")
		band := dashboard.ProbabilityBand(prob)
		fmt.Fprintf(&b, "\n%s %s\n",
			labelStyle.Render(fmt.Sprintf("Lead %d: %s —", i+1, d.TextOr("producto_interes"))),
			bandStyles[band].Render(fmt.Sprintf("%.0f%% probabilidad", prob)),
		)
		fields(&b,
			field{"Estado", d.TextOr("estado_lead")},
			field{"Valor estimado", money(d.Number("valor_estimado"))},
			field{"Asesor", d.TextOr("asesor_asignado")},
			field{"Creación", d.TextOr("fecha_creacion")},
			field{"Último seguimiento", d.TextOr("fecha_ultimo_seguimiento")},
			field{"Observaciones", d.TextOr("observaciones")},
		)
	}
	return b.String()
}
