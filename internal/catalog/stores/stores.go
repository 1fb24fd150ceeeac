// Package stores wires the catalog interfaces to their persistence
// backends. It lives apart from the catalog types so the backends can
// import those types without a cycle.
package stores

import (
	"fmt"
	"os"

	"battcore/internal/catalog"
	"battcore/internal/infra/persistence/memory"
	"battcore/internal/infra/persistence/postgres"
	"battcore/internal/infra/persistence/sqlite"
)

// Driver identifies a concrete persistent storage implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// NewMemory constructs an ephemeral in-memory catalog store.
func NewMemory() *memory.Store {
	return memory.NewStore()
}

// NewSQLite constructs a SQLite-backed catalog store at the given path
// (defaults to ./battcore.db when empty).
func NewSQLite(path string) (*sqlite.Store, error) {
	return sqlite.NewStore(path)
}

// NewPostgres constructs a Postgres-backed catalog store from the
// provided DSN.
func NewPostgres(dsn string) (*postgres.Store, error) {
	return postgres.NewStore(dsn)
}

// Open selects a backend using environment variables. Defaults to sqlite
// when unset.
//
//	BATTCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	BATTCORE_SQLITE_PATH: path to sqlite file (default ./battcore.db)
//	BATTCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func Open() (catalog.Store, error) {
	driver := os.Getenv("BATTCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(DriverSQLite)
	}
	switch Driver(driver) {
	case DriverMemory:
		return memory.NewStore(), nil
	case DriverSQLite:
		path := os.Getenv("BATTCORE_SQLITE_PATH")
		return sqlite.NewStore(path)
	case DriverPostgres:
		dsn := os.Getenv("BATTCORE_POSTGRES_DSN")
		return postgres.NewStore(dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
