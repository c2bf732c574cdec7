package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/vista360/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Documents are stored
// as JSON text and queried with json_extract.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteResultsMigration = `
CREATE TABLE IF NOT EXISTS vista360_results (
	version    TEXT NOT NULL,
	identifier TEXT NOT NULL,
	doc        TEXT NOT NULL,
	PRIMARY KEY (version, identifier)
);

CREATE TABLE IF NOT EXISTS vista360_active (
	name         TEXT PRIMARY KEY,
	version      TEXT NOT NULL,
	published_at DATETIME NOT NULL DEFAULT (datetime('now')),
	count        INTEGER NOT NULL DEFAULT 0
);
`

func sqliteSourceMigration(c Collection) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS "%[1]s" (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	doc         TEXT NOT NULL,
	ingested_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS "%[2]s" ON "%[1]s" (json_extract(doc, '$.%[3]s'));
`, c.Name, indexName(c), c.KeyField)
}

func (s *SQLiteStore) Migrate(ctx context.Context, collections ...Collection) error {
	if _, err := s.db.ExecContext(ctx, sqliteResultsMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate results")
	}
	for _, c := range collections {
		if err := validateCollection(c.Name); err != nil {
			return err
		}
		if err := validateField(c.KeyField); err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, sqliteSourceMigration(c)); err != nil {
			return eris.Wrapf(err, "sqlite: migrate collection %s", c.Name)
		}
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FindByKey(ctx context.Context, collection, keyField, value string) ([]model.Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if err := validateField(keyField); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT doc FROM "%s" WHERE CAST(json_extract(doc, '$.' || ?) AS TEXT) = ? ORDER BY seq`, collection),
		keyField, value,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find in %s", collection)
	}
	defer rows.Close()

	docs := []model.Document{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s", collection)
		}
		doc, err := decodeDocument([]byte(raw))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, eris.Wrapf(rows.Err(), "sqlite: find in %s iterate", collection)
}

func (s *SQLiteStore) DistinctKeys(ctx context.Context, collection, keyField string) ([]string, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if err := validateField(keyField); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT DISTINCT CAST(json_extract(doc, '$.' || ?1) AS TEXT) FROM "%s"
		 WHERE json_extract(doc, '$.' || ?1) IS NOT NULL`, collection),
		keyField,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: distinct keys in %s", collection)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan key in %s", collection)
		}
		keys = append(keys, k)
	}
	return keys, eris.Wrapf(rows.Err(), "sqlite: distinct keys in %s iterate", collection)
}

func (s *SQLiteStore) ReplaceSource(ctx context.Context, collection string, docs []model.Document) (int, error) {
	if err := validateCollection(collection); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin replace source")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM "%s"`, collection)); err != nil {
		return 0, eris.Wrapf(err, "sqlite: clear %s", collection)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO "%s" (id, doc) VALUES (?, ?)`, collection))
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: prepare insert %s", collection)
	}
	defer stmt.Close()

	for _, d := range docs {
		data, err := json.Marshal(d)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: marshal %s document", collection)
		}
		if _, err := stmt.ExecContext(ctx, uuid.New().String(), string(data)); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert %s", collection)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "sqlite: commit replace %s", collection)
	}
	return len(docs), nil
}

func (s *SQLiteStore) PublishResults(ctx context.Context, results []model.AnalyzedProfile) (*model.PublishedSet, error) {
	set := &model.PublishedSet{
		Version:     uuid.New().String(),
		PublishedAt: time.Now().UTC(),
		Count:       len(results),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin publish")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO vista360_results (version, identifier, doc) VALUES (?, ?, ?)`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare insert result")
	}
	defer stmt.Close()

	for _, r := range results {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: marshal result %s", r.Identifier)
		}
		if _, err := stmt.ExecContext(ctx, set.Version, r.Identifier, string(data)); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert result %s", r.Identifier)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vista360_active (name, version, published_at, count) VALUES (?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET version = excluded.version, published_at = excluded.published_at, count = excluded.count`,
		activeSetName, set.Version, set.PublishedAt, set.Count,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: flip active version")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vista360_results WHERE version <> ?`, set.Version); err != nil {
		return nil, eris.Wrap(err, "sqlite: delete superseded results")
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit publish")
	}
	return set, nil
}

func (s *SQLiteStore) ListResults(ctx context.Context) ([]model.AnalyzedProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.doc FROM vista360_results r
		 JOIN vista360_active a ON a.version = r.version AND a.name = ?
		 ORDER BY r.identifier`,
		activeSetName,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list results")
	}
	defer rows.Close()

	results := []model.AnalyzedProfile{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		p, err := decodeResult([]byte(raw))
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list results iterate")
}

func (s *SQLiteStore) GetResult(ctx context.Context, identifier string) (*model.AnalyzedProfile, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT r.doc FROM vista360_results r
		 JOIN vista360_active a ON a.version = r.version AND a.name = ?
		 WHERE r.identifier = ?`,
		activeSetName, identifier,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get result %s", identifier)
	}
	p, err := decodeResult([]byte(raw))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) ActiveSet(ctx context.Context) (*model.PublishedSet, error) {
	var set model.PublishedSet
	err := s.db.QueryRowContext(ctx,
		`SELECT version, published_at, count FROM vista360_active WHERE name = ?`,
		activeSetName,
	).Scan(&set.Version, &set.PublishedAt, &set.Count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get active set")
	}
	return &set, nil
}
