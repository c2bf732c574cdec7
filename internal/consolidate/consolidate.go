// Package consolidate merges the per-CRM records of one customer into a
// single profile.
package consolidate

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vista360/internal/mapping"
	"github.com/sells-group/vista360/internal/model"
	"github.com/sells-group/vista360/internal/store"
)

// Consolidator builds profiles from the source collections described by a
// mapping table.
type Consolidator struct {
	reader store.SourceReader
	table  *mapping.Table
}

// New returns a Consolidator reading through reader.
func New(reader store.SourceReader, table *mapping.Table) *Consolidator {
	return &Consolidator{reader: reader, table: table}
}

// Table returns the mapping table in use.
func (c *Consolidator) Table() *mapping.Table {
	return c.table
}

// Consolidate gathers every record keyed by identifier. A customer present in
// no source yields a profile with empty sources, not an error.
func (c *Consolidator) Consolidate(ctx context.Context, identifier string) (*model.ConsolidatedProfile, error) {
	p := model.NewConsolidatedProfile(identifier)
	log := zap.L().With(zap.String("identifier", identifier))

	// Sources are already in evaluation order.
	var resolved []model.SourceRecord
	for _, src := range c.table.Sources {
		docs, err := c.reader.FindByKey(ctx, src.Collection, src.KeyField, identifier)
		if err != nil {
			return nil, eris.Wrapf(err, "consolidate: read %s for %s", src.Tag, identifier)
		}
		if len(docs) == 0 {
			continue
		}
		p.AddSource(src.Tag)

		switch src.Kind {
		case model.KindPolicy:
			if len(docs) > 1 {
				log.Warn("multiple policy records for identifier, keeping the first",
					zap.String("source", string(src.Tag)),
					zap.Int("records", len(docs)),
				)
			}
			rec := src.Record(docs[0])
			p.PolicyRecord = rec.Fields
			resolved = append(resolved, rec)
		case model.KindMultiPolicy:
			for _, d := range docs {
				rec := src.Record(d)
				p.MultiPolicyRecords = append(p.MultiPolicyRecords, rec.Fields)
				resolved = append(resolved, rec)
			}
		case model.KindLead:
			for _, d := range docs {
				rec := src.Record(d)
				p.LeadRecords = append(p.LeadRecords, rec.Fields)
				resolved = append(resolved, rec)
			}
		}
	}

	p.DisplayName = c.firstValue(resolved, func(f mapping.FieldNames) string { return f.Name })
	p.City = c.firstValue(resolved, func(f mapping.FieldNames) string { return f.City })
	p.Email = c.firstValue(resolved, func(f mapping.FieldNames) string { return f.Email })

	if !p.Found() {
		log.Debug("identifier not present in any source")
	}
	return p, nil
}

// firstValue returns the first non-empty value of a shared field across
// records, which are already in source then retrieval order.
func (c *Consolidator) firstValue(records []model.SourceRecord, field func(mapping.FieldNames) string) string {
	for _, rec := range records {
		src, ok := c.table.ByKind(rec.Kind)
		if !ok {
			continue
		}
		name := field(src.Fields)
		if name == "" {
			continue
		}
		if v := rec.Fields.Text(name); v != "" {
			return v
		}
	}
	return ""
}
