package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vista360/internal/model"
)

// activeSetName is the row key of the active-version pointer.
const activeSetName = "default"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Collection describes a source collection and the field its records are
// keyed by.
type Collection struct {
	Name     string
	KeyField string
}

// SourceReader runs read-only queries against the source collections.
type SourceReader interface {
	// FindByKey returns every document whose keyField equals value, in
	// retrieval (ingestion) order.
	FindByKey(ctx context.Context, collection, keyField, value string) ([]model.Document, error)
	// DistinctKeys returns the distinct non-null values of keyField.
	DistinctKeys(ctx context.Context, collection, keyField string) ([]string, error)
}

// ResultReader is the dashboard read path over the active result set.
type ResultReader interface {
	ListResults(ctx context.Context) ([]model.AnalyzedProfile, error)
	// GetResult returns nil when identifier is not in the active set.
	GetResult(ctx context.Context, identifier string) (*model.AnalyzedProfile, error)
	// ActiveSet returns nil when nothing has been published yet.
	ActiveSet(ctx context.Context) (*model.PublishedSet, error)
}

// ResultWriter replaces the result collection.
type ResultWriter interface {
	// PublishResults writes results as a new version and makes it active in
	// one transaction. Older versions are removed. Readers see either the
	// previous set or the new one, never a mix.
	PublishResults(ctx context.Context, results []model.AnalyzedProfile) (*model.PublishedSet, error)
}

// Store defines the persistence interface for vista360.
type Store interface {
	SourceReader
	ResultReader
	ResultWriter

	// ReplaceSource drops every document in collection and inserts docs.
	ReplaceSource(ctx context.Context, collection string, docs []model.Document) (int, error)

	// Lifecycle
	Migrate(ctx context.Context, collections ...Collection) error
	Ping(ctx context.Context) error
	Close() error
}

func decodeDocument(data []byte) (model.Document, error) {
	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "store: decode document")
	}
	if doc == nil {
		doc = model.Document{}
	}
	return doc, nil
}

func decodeResult(data []byte) (model.AnalyzedProfile, error) {
	var p model.AnalyzedProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return p, eris.Wrap(err, "store: decode result")
	}
	return p, nil
}

func indexName(c Collection) string {
	return fmt.Sprintf("idx_%s_%s", c.Name, c.KeyField)
}

func validateCollection(name string) error {
	if !identPattern.MatchString(name) {
		return eris.Errorf("store: invalid collection name %q", name)
	}
	return nil
}

func validateField(name string) error {
	if !identPattern.MatchString(name) {
		return eris.Errorf("store: invalid field name %q", name)
	}
	return nil
}
