package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/aquilax/inquiryboard/database/sqldb"
	"github.com/aquilax/inquiryboard/inquiry"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open connects with lib/pq and brings the schema up to date.
func Open(ctx context.Context, dsn string) (*sqldb.Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w: %w", inquiry.ErrStorageUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w: %w", inquiry.ErrStorageUnavailable, err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return sqldb.New(db), nil
}

// Migrations run in a transaction, so a failed step rolls back.
func migrateUp(db *sqlx.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{MigrationsTable: "inquiry_migrations"})
	if err != nil {
		return fmt.Errorf("migration driver: %w: %w", inquiry.ErrStorageUnavailable, err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w: %w", inquiry.ErrStorageUnavailable, err)
	}
	return nil
}
