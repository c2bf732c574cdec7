// Package seed generates synthetic CRM records for local runs and demos.
package seed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vista360/internal/mapping"
	"github.com/sells-group/vista360/internal/model"
)

var (
	policyProducts      = []string{"Vida Individual", "Vida Grupo", "Accidentes Personales", "Salud"}
	multiPolicyProducts = []string{"SOAT", "Hogar", "Pyme", "Autos"}
	leadStates          = []string{"Nuevo", "En gestión", "Cotizado", "Cerrado ganado", "Cerrado perdido"}
	advisors            = []string{"Carlos Martínez", "Laura Gómez", "Andrés Pérez", "María López", "Felipe Torres"}
	cities              = []string{"Bogotá", "Medellín", "Cali", "Barranquilla", "Bucaramanga"}
	policyStates        = []string{"Activa", "Vencida", "Suspendida"}
	multiPolicyStates   = []string{"Vigente", "Por vencer", "Cancelada"}
)

// Inclusion rates per source.
const (
	policyRate      = 0.7
	multiPolicyRate = 0.6
	leadRate        = 0.5
)

// Options configures Generate.
type Options struct {
	Customers int
	// Seed makes the output reproducible. Zero picks a random seed.
	Seed uint64
	// Now anchors the generated dates. Defaults to time.Now().
	Now time.Time
}

// Dataset holds generated documents per source kind.
type Dataset map[model.SourceKind][]model.Document

type customer struct {
	id    string
	name  string
	email string
	phone string
	city  string
}

// Generate builds a shared customer pool and draws each source's records from
// it, so the same identifier shows up in several sources.
func Generate(opts Options) Dataset {
	if opts.Customers <= 0 {
		opts.Customers = 50
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	f := gofakeit.New(opts.Seed)

	pool := make([]customer, 0, opts.Customers)
	seen := make(map[string]bool, opts.Customers)
	for len(pool) < opts.Customers {
		id := strconv.Itoa(f.IntRange(10000000, 1099999999))
		if seen[id] {
			continue
		}
		seen[id] = true
		pool = append(pool, customer{
			id:    id,
			name:  f.Name(),
			email: f.Email(),
			phone: f.Phone(),
			city:  f.RandomString(cities),
		})
	}

	past := func(days int) time.Time { return now.AddDate(0, 0, -f.IntRange(1, days)) }
	future := func(days int) time.Time { return now.AddDate(0, 0, f.IntRange(30, days)) }
	amount := func(lo, hi float64) float64 { return float64(int64(f.Float64Range(lo, hi))) }

	ds := Dataset{}
	for _, c := range pool {
		if f.Float64() < policyRate {
			ds[model.KindPolicy] = append(ds[model.KindPolicy], model.Document{
				"fuente":            "CENTRA",
				"cedula_cliente":    c.id,
				"nombre_cliente":    c.name,
				"email":             c.email,
				"telefono":          c.phone,
				"ciudad":            c.city,
				"producto":          f.RandomString(policyProducts),
				"estado_poliza":     f.RandomString(policyStates),
				"fecha_inicio":      past(730),
				"fecha_vencimiento": future(365),
				"prima_mensual":     amount(50000, 500000),
				"asesor":            f.RandomString(advisors),
				"ultima_gestion":    past(90),
				"created_at":        now,
			})
		}
	}
	for _, c := range pool {
		if f.Float64() < multiPolicyRate {
			n := f.IntRange(1, 3)
			for i := 0; i < n; i++ {
				ds[model.KindMultiPolicy] = append(ds[model.KindMultiPolicy], model.Document{
					"fuente":           "FLOW360",
					"identificacion":   c.id,
					"nombre_completo":  c.name,
					"correo":           c.email,
					"celular":          c.phone,
					"municipio":        c.city,
					"ramo":             f.RandomString(multiPolicyProducts),
					"numero_poliza":    fmt.Sprintf("POL-%d", f.IntRange(100000, 999999)),
					"estado":           f.RandomString(multiPolicyStates),
					"valor_asegurado":  amount(5000000, 500000000),
					"fecha_expedicion": past(500),
					"fecha_renovacion": future(180),
					"ejecutivo":        f.RandomString(advisors),
					"ultimo_contacto":  past(60),
					"created_at":       now,
				})
			}
		}
	}
	leadProducts := append(append([]string{}, policyProducts...), multiPolicyProducts...)
	for _, c := range pool {
		if f.Float64() < leadRate {
			ds[model.KindLead] = append(ds[model.KindLead], model.Document{
				"fuente":                   "GESTOR_LEADS",
				"documento":                c.id,
				"nombre":                   c.name,
				"email_contacto":           c.email,
				"telefono_contacto":        c.phone,
				"ciudad_interes":           c.city,
				"producto_interes":         f.RandomString(leadProducts),
				"estado_lead":              f.RandomString(leadStates),
				"probabilidad_cierre":      f.IntRange(10, 95),
				"valor_estimado":           amount(100000, 2000000),
				"asesor_asignado":          f.RandomString(advisors),
				"fecha_creacion":           past(180),
				"fecha_ultimo_seguimiento": past(30),
				"observaciones":            f.Sentence(12),
				"created_at":               now,
			})
		}
	}
	return ds
}

// SourceWriter replaces the contents of a source collection.
type SourceWriter interface {
	ReplaceSource(ctx context.Context, collection string, docs []model.Document) (int, error)
}

// Load replaces every source collection named in table with the dataset's
// records for that kind. Kinds with no records are emptied.
func Load(ctx context.Context, w SourceWriter, table *mapping.Table, ds Dataset) (map[model.SourceTag]int, error) {
	counts := make(map[model.SourceTag]int, len(table.Sources))
	for _, src := range table.Sources {
		docs := ds[src.Kind]
		if docs == nil {
			docs = []model.Document{}
		}
		n, err := w.ReplaceSource(ctx, src.Collection, docs)
		if err != nil {
			return nil, eris.Wrapf(err, "seed: load %s", src.Tag)
		}
		counts[src.Tag] = n
		zap.L().Info("seed: collection replaced",
			zap.String("source", string(src.Tag)),
			zap.String("collection", src.Collection),
			zap.Int("records", n),
		)
	}
	return counts, nil
}
