package store

import (
	"context"
	"fmt"

	"github.com/chida-tennis/chida-crawler/internal/config"
)

// Open connects to the store described by cfg. SQLite databases are
// migrated on open; Postgres schemas are migrated explicitly with Migrate.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.URL)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.URL, cfg.ServiceKey)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}
