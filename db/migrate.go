package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/mattn/go-sqlite3"
)

// MigrationConfig points Migrate at a sqlite database file and a directory
// of .up.sql/.down.sql migration files, the same split the teacher's
// Postgres MigrationConfig uses.
type MigrationConfig struct {
	DatabasePath  string
	MigrationsDir string
}

// NewMigrationConfig returns a MigrationConfig with the conventional
// migrations directory.
func NewMigrationConfig(databasePath string) *MigrationConfig {
	return &MigrationConfig{DatabasePath: databasePath, MigrationsDir: "db/migrations"}
}

// Migrate applies all pending "up" migrations from MigrationsDir to the
// sqlite database at DatabasePath.
func (m *MigrationConfig) Migrate() error {
	if err := os.MkdirAll(m.MigrationsDir, 0o755); err != nil {
		return fmt.Errorf("create migrations dir: %w", err)
	}
	absMigrationsPath, err := filepath.Abs(m.MigrationsDir)
	if err != nil {
		return fmt.Errorf("resolve migrations absolute path: %w", err)
	}

	database, err := sql.Open("sqlite3", m.DatabasePath)
	if err != nil {
		return fmt.Errorf("sql open (sqlite3): %w", err)
	}
	defer database.Close()

	driver, err := sqlite3.WithInstance(database, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("sqlite3 driver instance: %w", err)
	}

	sourceURL := fmt.Sprintf("file://%s", absMigrationsPath)
	migrator, err := migrate.NewWithDatabaseInstance(sourceURL, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	defer func() {
		if _, err := migrator.Close(); err != nil {
			log.Printf("migration close warning: %v", err)
		}
	}()

	err = migrator.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migrate up: %w", err)
	}
	if err == migrate.ErrNoChange {
		log.Printf("no migration needed, catalog schema is up to date")
	} else {
		log.Printf("catalog database migrations applied successfully")
	}
	return nil
}
