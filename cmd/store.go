package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/zonemap/internal/store"
)

// initStore opens the configured run store and applies migrations.
func initStore(ctx context.Context) (store.Store, error) {
	if !cfg.Store.Enabled() {
		return nil, eris.New("run history is disabled (set ZONEMAP_STORE_DRIVER)")
	}
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}
