package sqlite

import (
	"context"
	"database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/aquilax/inquiryboard/database/sqldb"
	"github.com/aquilax/inquiryboard/inquiry"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	msqlite "modernc.org/sqlite"
)

// The busy_timeout pragma must come first so the connection blocks on busy
// before WAL mode is switched on.
const pragmas = "_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=temp_store(MEMORY)"

//go:embed migrations/*.sql
var migrations embed.FS

// lowerFunc folds case like the in-memory store does. The built-in LOWER
// only knows ASCII.
const lowerFunc = "inquiry_lower"

func init() {
	msqlite.MustRegisterDeterministicScalarFunction(lowerFunc, 1, lower)
}

func lower(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	}
	return args[0], nil
}

// DSN appends the default pragmas to a database path unless the caller
// already passed query parameters.
func DSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?" + pragmas
}

// Open connects to the database file at dsn and applies pending migrations.
func Open(ctx context.Context, dsn string) (*sqldb.Store, error) {
	db, err := sqlx.Open("sqlite", DSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w: %w", inquiry.ErrStorageUnavailable, err)
	}
	// A single writer keeps transactions from hitting SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w: %w", inquiry.ErrStorageUnavailable, err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return sqldb.New(db, sqldb.WithLower(lowerFunc)), nil
}

func migrateUp(db *sqlx.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w: %w", inquiry.ErrStorageUnavailable, err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	// m.Close would close db as well.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w: %w", inquiry.ErrStorageUnavailable, err)
	}
	return nil
}
