package migrate

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mongodb"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	migrationsFS "github.com/Miraines/MoonyAndStarry/shop-service/scripts/db/migrations"
)

const (
	dirMongo    = "mongo"
	dirPostgres = "postgres"
)

func Source(dir string) (source.Driver, error) {
	return iofs.New(migrationsFS.FS, dir)
}

// UpPostgres applies the relational schema through an existing handle.
func UpPostgres(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migrate postgres driver: %w", err)
	}
	return up(dirPostgres, "postgres", driver)
}

// UpMongo applies the index migrations to dbName.
func UpMongo(client *mongodriver.Client, dbName string) error {
	driver, err := mongodb.WithInstance(client, &mongodb.Config{DatabaseName: dbName})
	if err != nil {
		return fmt.Errorf("migrate mongo driver: %w", err)
	}
	return up(dirMongo, "mongodb", driver)
}

func up(dir, dbName string, driver database.Driver) error {
	src, err := Source(dir)
	if err != nil {
		return fmt.Errorf("migrate source %s: %w", dir, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dbName, driver)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up %s: %w", dir, err)
	}
	return nil
}
