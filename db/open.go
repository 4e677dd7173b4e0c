package db

import (
	"context"
	"fmt"
)

// Supported values for Config.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config selects and addresses a backend. Path is used by sqlite, DSN by
// postgres.
type Config struct {
	Driver string
	Path   string
	DSN    string
}

// Open returns the configured Store with its table in place.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverSQLite, "sqlite3", "":
		return OpenSQLite(ctx, cfg.Path)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, persistErr("open", fmt.Errorf("unsupported driver %q", cfg.Driver))
	}
}
