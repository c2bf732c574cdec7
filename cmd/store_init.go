package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vista360/internal/mapping"
	"github.com/sells-group/vista360/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "vista360.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func loadTable() (*mapping.Table, error) {
	table, err := mapping.Load(cfg.Mapping.Path)
	if err != nil {
		return nil, eris.Wrap(err, "load mapping table")
	}
	return table, nil
}

func collections(table *mapping.Table) []store.Collection {
	out := make([]store.Collection, len(table.Sources))
	for i, s := range table.Sources {
		out[i] = store.Collection{Name: s.Collection, KeyField: s.KeyField}
	}
	return out
}

// openStore connects, pings and migrates the store for table. The store is
// unusable when any step fails, so the error is returned to the command.
func openStore(ctx context.Context, table *mapping.Table) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Ping(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "store unavailable")
	}
	if err := st.Migrate(ctx, collections(table)...); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
