// Package db owns the embedded sqlite connection and schema migrations
// backing internal/catalog's Repository, the local-embedded-store
// counterpart to the teacher's Postgres connect-with-retry helper.
package db

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Connect opens (creating if absent) the sqlite database file at dir/name,
// retrying briefly since the directory may still be mounting on first run
// of a packaged desktop build.
func Connect(dir, name string) *gorm.DB {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatalf("create catalog database directory %q: %v", dir, err)
	}
	path := filepath.Join(dir, name+".db")
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)", path)

	var database *gorm.DB
	var err error

	const maxRetries = 5
	for i := 0; i < maxRetries; i++ {
		database, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{})
		if err == nil {
			sqlDB, dbErr := database.DB()
			if dbErr == nil {
				if pingErr := sqlDB.Ping(); pingErr == nil {
					log.Printf("connected to catalog database %q", path)
					return database
				}
			}
		}
		retryDelay := time.Duration(i+1) * 200 * time.Millisecond
		log.Printf("failed to open catalog database: %v. retrying in %v... (%d/%d)", err, retryDelay, i+1, maxRetries)
		time.Sleep(retryDelay)
	}

	log.Fatalf("failed to open catalog database after %d attempts: %v", maxRetries, err)
	return nil
}
