package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/vista360/internal/db"
	"github.com/sells-group/vista360/internal/model"
)

// PostgresStore implements Store using pgxpool. Source documents live in JSONB
// columns so each collection keeps its own shape.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool. The pool is
// pinged before returning so an unreachable database fails fast.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. The caller keeps ownership.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresResultsMigration = `
CREATE TABLE IF NOT EXISTS vista360_results (
	version    TEXT NOT NULL,
	identifier TEXT NOT NULL,
	doc        JSONB NOT NULL,
	PRIMARY KEY (version, identifier)
);

CREATE TABLE IF NOT EXISTS vista360_active (
	name         TEXT PRIMARY KEY,
	version      TEXT NOT NULL,
	published_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	count        INTEGER NOT NULL DEFAULT 0
);
`

func postgresSourceMigration(c Collection) string {
	table := db.QuoteIdent(c.Name)
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	seq         BIGSERIAL,
	doc         JSONB NOT NULL,
	ingested_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS %[2]s ON %[1]s ((doc->>'%[3]s'));
`, table, db.QuoteIdent(indexName(c)), c.KeyField)
}

func (s *PostgresStore) Migrate(ctx context.Context, collections ...Collection) error {
	if _, err := s.pool.Exec(ctx, postgresResultsMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate results")
	}
	for _, c := range collections {
		if err := validateCollection(c.Name); err != nil {
			return err
		}
		if err := validateField(c.KeyField); err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, postgresSourceMigration(c)); err != nil {
			return eris.Wrapf(err, "postgres: migrate collection %s", c.Name)
		}
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) FindByKey(ctx context.Context, collection, keyField, value string) ([]model.Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT doc FROM %s WHERE doc->>$1 = $2 ORDER BY seq`, db.QuoteIdent(collection)),
		keyField, value,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find in %s", collection)
	}
	defer rows.Close()

	docs := []model.Document{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s", collection)
		}
		doc, err := decodeDocument(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, eris.Wrapf(rows.Err(), "postgres: find in %s iterate", collection)
}

func (s *PostgresStore) DistinctKeys(ctx context.Context, collection, keyField string) ([]string, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT DISTINCT doc->>$1 FROM %s WHERE doc->>$1 IS NOT NULL`, db.QuoteIdent(collection)),
		keyField,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: distinct keys in %s", collection)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan key in %s", collection)
		}
		keys = append(keys, k)
	}
	return keys, eris.Wrapf(rows.Err(), "postgres: distinct keys in %s iterate", collection)
}

func (s *PostgresStore) ReplaceSource(ctx context.Context, collection string, docs []model.Document) (int, error) {
	if err := validateCollection(collection); err != nil {
		return 0, err
	}
	rows := make([][]any, 0, len(docs))
	for _, d := range docs {
		data, err := json.Marshal(d)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal %s document", collection)
		}
		rows = append(rows, []any{uuid.New().String(), data})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin replace source")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, db.QuoteIdent(collection))); err != nil {
		return 0, eris.Wrapf(err, "postgres: clear %s", collection)
	}
	n, err := db.CopyFrom(ctx, tx, collection, []string{"id", "doc"}, rows)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "postgres: commit replace %s", collection)
	}
	return int(n), nil
}

func (s *PostgresStore) PublishResults(ctx context.Context, results []model.AnalyzedProfile) (*model.PublishedSet, error) {
	set := &model.PublishedSet{
		Version:     uuid.New().String(),
		PublishedAt: time.Now().UTC(),
		Count:       len(results),
	}

	rows := make([][]any, 0, len(results))
	for _, r := range results {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: marshal result %s", r.Identifier)
		}
		rows = append(rows, []any{set.Version, r.Identifier, data})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin publish")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := db.CopyFrom(ctx, tx, "vista360_results", []string{"version", "identifier", "doc"}, rows); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO vista360_active (name, version, published_at, count) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO UPDATE SET version = EXCLUDED.version, published_at = EXCLUDED.published_at, count = EXCLUDED.count`,
		activeSetName, set.Version, set.PublishedAt, set.Count,
	); err != nil {
		return nil, eris.Wrap(err, "postgres: flip active version")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM vista360_results WHERE version <> $1`, set.Version); err != nil {
		return nil, eris.Wrap(err, "postgres: delete superseded results")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit publish")
	}
	return set, nil
}

func (s *PostgresStore) ListResults(ctx context.Context) ([]model.AnalyzedProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.doc FROM vista360_results r
		 JOIN vista360_active a ON a.version = r.version AND a.name = $1
		 ORDER BY r.identifier`,
		activeSetName,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list results")
	}
	defer rows.Close()

	results := []model.AnalyzedProfile{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		p, err := decodeResult(raw)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list results iterate")
}

func (s *PostgresStore) GetResult(ctx context.Context, identifier string) (*model.AnalyzedProfile, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT r.doc FROM vista360_results r
		 JOIN vista360_active a ON a.version = r.version AND a.name = $1
		 WHERE r.identifier = $2`,
		activeSetName, identifier,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get result %s", identifier)
	}
	p, err := decodeResult(raw)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) ActiveSet(ctx context.Context) (*model.PublishedSet, error) {
	var set model.PublishedSet
	err := s.pool.QueryRow(ctx,
		`SELECT version, published_at, count FROM vista360_active WHERE name = $1`,
		activeSetName,
	).Scan(&set.Version, &set.PublishedAt, &set.Count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get active set")
	}
	return &set, nil
}
