package narrative

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vista360/internal/model"
)

// systemPrompt is shared by every request in a run.
const systemPrompt = `Eres un analista experto de clientes de Seguros Bolívar, la aseguradora más grande de Colombia.
Tu tarea es analizar el perfil consolidado de un cliente que viene de múltiples sistemas CRM
y generar recomendaciones accionables para el asesor comercial.
Responde en español, de forma clara y directa. Usa el contexto de seguros colombianos.`

const instructions = `Por favor genera un análisis estructurado con las siguientes secciones:

1. RESUMEN DEL CLIENTE
   - Nombre, ciudad, fuentes donde aparece
   - Productos actuales y su estado

2. ALERTAS PRIORITARIAS
   - Pólizas próximas a vencer
   - Pólizas canceladas o suspendidas
   - Leads sin gestión reciente

3. OPORTUNIDADES COMERCIALES
   - Productos que podría necesitar según su perfil
   - Momento óptimo para contactar
   - Probabilidad estimada de cierre

4. RECOMENDACIÓN PARA EL ASESOR
   - Acción concreta que debe tomar hoy
   - Mensaje sugerido para contactar al cliente
   - Prioridad: ALTA / MEDIA / BAJA`

// BuildPrompt renders the user message for p. The profile is embedded as
// indented JSON; struct order and sorted map keys make it byte-stable for the
// same input.
func BuildPrompt(p *model.ConsolidatedProfile) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return "", eris.Wrapf(err, "narrative: encode profile %s", p.Identifier)
	}

	var b strings.Builder
	b.WriteString("PERFIL CONSOLIDADO DEL CLIENTE:\n")
	b.Write(bytes.TrimRight(buf.Bytes(), "\n"))
	b.WriteString("\n\n")
	b.WriteString(instructions)
	return b.String(), nil
}
