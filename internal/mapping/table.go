// Package mapping holds the per-source field translation table used to merge
// heterogeneous CRM records into one profile.
package mapping

import (
	_ "embed"
	"os"
	"regexp"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/vista360/internal/model"
)

//go:embed default.yaml
var defaultTable []byte

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Table is the full mapping configuration for all source variants.
type Table struct {
	Version string   `yaml:"version"`
	Sources []Source `yaml:"sources"`
}

// Source maps one source variant onto the consolidated profile.
type Source struct {
	Tag        model.SourceTag         `yaml:"tag"`
	Kind       model.SourceKind        `yaml:"kind"`
	Collection string                  `yaml:"collection"`
	KeyField   string                  `yaml:"key_field"`
	Fields     FieldNames              `yaml:"fields"`
	Coerce     map[string]CoercionType `yaml:"coerce"`
}

// FieldNames gives the source-specific names of the shared scalar concepts.
type FieldNames struct {
	Name    string `yaml:"name"`
	City    string `yaml:"city"`
	Email   string `yaml:"email"`
	Advisor string `yaml:"advisor"`
}

// Default returns the embedded mapping table.
func Default() (*Table, error) {
	return Parse(defaultTable)
}

// Load reads a mapping table from a YAML file. An empty path loads the
// embedded default.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "mapping: read table %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a mapping table. Sources are returned in
// evaluation order (policy, multi_policy, lead) regardless of file order.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, eris.Wrap(err, "mapping: parse table")
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	sort.SliceStable(t.Sources, func(i, j int) bool {
		return t.Sources[i].Kind.Rank() < t.Sources[j].Kind.Rank()
	})
	return &t, nil
}

// Validate checks that the table names each kind exactly once and that every
// collection and field name is a plain identifier.
func (t *Table) Validate() error {
	if len(t.Sources) == 0 {
		return eris.New("mapping: no sources defined")
	}
	kinds := make(map[model.SourceKind]bool)
	tags := make(map[model.SourceTag]bool)
	for _, s := range t.Sources {
		if !s.Kind.Valid() {
			return eris.Errorf("mapping: source %q has unknown kind %q", s.Tag, s.Kind)
		}
		if kinds[s.Kind] {
			return eris.Errorf("mapping: kind %q defined more than once", s.Kind)
		}
		kinds[s.Kind] = true
		if s.Tag == "" {
			return eris.Errorf("mapping: %s source has no tag", s.Kind)
		}
		if tags[s.Tag] {
			return eris.Errorf("mapping: tag %q defined more than once", s.Tag)
		}
		tags[s.Tag] = true
		if !identPattern.MatchString(s.Collection) {
			return eris.Errorf("mapping: source %q has invalid collection %q", s.Tag, s.Collection)
		}
		names := []string{s.KeyField, s.Fields.Name, s.Fields.City, s.Fields.Email, s.Fields.Advisor}
		for i, n := range names {
			if n == "" && i > 0 {
				continue
			}
			if !identPattern.MatchString(n) {
				return eris.Errorf("mapping: source %q has invalid field name %q", s.Tag, n)
			}
		}
		for field, c := range s.Coerce {
			if !identPattern.MatchString(field) {
				return eris.Errorf("mapping: source %q has invalid coerce field %q", s.Tag, field)
			}
			if !c.valid() {
				return eris.Errorf("mapping: source %q field %q has unknown coercion %q", s.Tag, field, c)
			}
		}
	}
	for _, k := range []model.SourceKind{model.KindPolicy, model.KindMultiPolicy, model.KindLead} {
		if !kinds[k] {
			return eris.Errorf("mapping: missing %s source", k)
		}
	}
	return nil
}

// ByKind returns the source for kind.
func (t *Table) ByKind(kind model.SourceKind) (Source, bool) {
	for _, s := range t.Sources {
		if s.Kind == kind {
			return s, true
		}
	}
	return Source{}, false
}

// Collections lists the collection names in evaluation order.
func (t *Table) Collections() []string {
	out := make([]string, len(t.Sources))
	for i, s := range t.Sources {
		out[i] = s.Collection
	}
	return out
}

// Record applies the coercion rules to a raw document and tags it.
func (s Source) Record(raw model.Document) model.SourceRecord {
	return model.SourceRecord{
		Source: s.Tag,
		Kind:   s.Kind,
		Fields: s.Apply(raw),
	}
}

// Apply returns a copy of raw with every coercion rule applied. Fields that are
// absent stay absent.
func (s Source) Apply(raw model.Document) model.Document {
	out := raw.Clone()
	if out == nil {
		out = model.Document{}
	}
	for field, c := range s.Coerce {
		v, ok := out[field]
		if !ok || v == nil {
			continue
		}
		out[field] = c.apply(v)
	}
	// Timestamps outside the table are still stored as calendar dates, and
	// non-finite numbers read as absent.
	for k, v := range out {
		if !finite(v) {
			delete(out, k)
			continue
		}
		if d, ok := timestampValue(v); ok {
			out[k] = d
		}
	}
	return out
}
